package parse

import (
	"github.com/Ramsey-B/fern/pkg/iatierrors"
)

// handleNarrative attaches a 2.x narrative element to whatever owner the
// enclosing element registered. A narrative must carry text and a resolvable
// language (its own xml:lang or the activity default).
func handleNarrative(c *Context, el *Element) error {
	if _, _, ok := c.NarrativeOwner(); !ok {
		return iatierrors.NewFieldValidationError("narrative", "owner", "narrative element has no owner to attach to")
	}

	language, err := narrativeLanguage(c, el)
	if err != nil {
		return err
	}

	content := el.TrimmedText()
	if content == "" {
		return iatierrors.NewRequiredFieldError("narrative", "text")
	}

	c.AddNarrative(language, content)
	return nil
}

// narrativeLanguage resolves the language for a narrative from the element's
// xml:lang, falling back to the activity default.
func narrativeLanguage(c *Context, el *Element) (*string, error) {
	if lang := el.Lang(); lang != "" {
		return &lang, nil
	}
	if c.Activity().DefaultLanguage != nil {
		return c.Activity().DefaultLanguage, nil
	}
	return nil, iatierrors.NewRequiredFieldError("narrative", "xml:lang")
}

// addTextNarrative attaches element text as a narrative for 1.x dialects,
// where owner elements carry their text directly instead of narrative
// children. The owner must be registered by the caller first. An owner with
// no text carries no narrative; text without a resolvable language is an
// error, same as a 2.x narrative element.
func addTextNarrative(c *Context, el *Element) error {
	content := el.TrimmedText()
	if content == "" {
		return nil
	}

	language, err := narrativeLanguage(c, el)
	if err != nil {
		return err
	}

	c.AddNarrative(language, content)
	return nil
}
