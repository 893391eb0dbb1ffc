package parse

import (
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/xmltree"
)

// Walker drives one activity element through the dialect's handler table in
// document order.
type Walker struct {
	registry *Registry
	logger   ectologger.Logger
}

// NewWalker creates a walker over the given registry.
func NewWalker(registry *Registry, logger ectologger.Logger) *Walker {
	return &Walker{
		registry: registry,
		logger:   logger,
	}
}

// DetectVersion reads the schema version off the document root. A missing
// or unsupported version is fatal for the whole document.
func DetectVersion(root *xmltree.Element) (string, error) {
	version := root.Attr("version")
	if version == "" {
		return "", iatierrors.NewParserError("document has no schema version attribute")
	}
	if !IsSupportedVersion(version) {
		return "", iatierrors.NewParserError("unsupported schema version '" + version + "'")
	}
	return version, nil
}

// Walk dispatches the activity element and its subtree. Any handler error
// aborts the walk and rejects the activity, except ignored-vocabulary
// errors, which are recorded on the context while the walk continues past
// the dropped element.
func (w *Walker) Walk(c *Context, activityEl *xmltree.Element) error {
	ctx, span := tracing.StartSpan(c.Ctx, "parse.Walker.Walk")
	defer span.End()
	c.Ctx = ctx

	return w.walk(c, activityEl, NormalizePathSegment(activityEl.Tag()))
}

func (w *Walker) walk(c *Context, el *xmltree.Element, path string) error {
	handler, ok := w.registry.Get(c.Version, path)
	if ok {
		c.skipChildren = false
		if err := handler(c, el); err != nil {
			pe := iatierrors.WrapParseError(err).AddElementPath(path)
			if iatierrors.IsIgnoredVocabulary(pe) {
				// The element is recognised but its vocabulary is not
				// resolved; note it, drop the subtree, keep walking.
				c.AddError(pe)
				return nil
			}
			return pe
		}
		if c.skipChildren {
			c.skipChildren = false
			return nil
		}
	}
	// Unregistered paths are skipped silently but their subtrees are still
	// visited, matching how unknown sibling elements behave.

	for _, child := range el.Children {
		if err := w.walk(c, child, JoinPath(path, child.Tag())); err != nil {
			return err
		}
	}
	return nil
}
