// Package parse turns IATI activity XML into persisted activity records.
// Each supported schema dialect registers element handlers keyed by the
// normalized path of the element; a walker visits the document in order and
// dispatches to whatever handler the active dialect provides.
package parse

import (
	"strings"
)

// Supported schema dialects. 1.03 through 1.05 share one handler table,
// 2.01 and 2.02 share another.
const (
	Version103 = "1.03"
	Version104 = "1.04"
	Version105 = "1.05"
	Version201 = "2.01"
	Version202 = "2.02"
)

var v1Versions = []string{Version103, Version104, Version105}
var v2Versions = []string{Version201, Version202}

// SupportedVersions lists every dialect the engine can parse.
var SupportedVersions = []string{Version103, Version104, Version105, Version201, Version202}

// Handler processes one XML element in the context of the activity being
// assembled. Returning an error records a dataset note and skips the
// element's subtree; fatal errors abort the document.
type Handler func(c *Context, el *Element) error

// Registry maps (version, normalized element path) to handlers.
type Registry struct {
	handlers map[string]map[string]Handler
}

// NewRegistry builds the registry with every dialect's handler table
// installed.
func NewRegistry() *Registry {
	r := &Registry{handlers: map[string]map[string]Handler{}}
	for _, v := range SupportedVersions {
		r.handlers[v] = map[string]Handler{}
	}
	registerV2(r)
	registerV1(r)
	return r
}

// Register installs a handler for the given path on each listed version.
func (r *Registry) Register(versions []string, path string, h Handler) {
	for _, v := range versions {
		r.handlers[v][path] = h
	}
}

// Get returns the handler for (version, path) when one exists.
func (r *Registry) Get(version, path string) (Handler, bool) {
	byPath, ok := r.handlers[version]
	if !ok {
		return nil, false
	}
	h, ok := byPath[path]
	return h, ok
}

// IsSupportedVersion reports whether the engine has a handler table for the
// given schema version.
func IsSupportedVersion(version string) bool {
	_, ok := map[string]struct{}{
		Version103: {}, Version104: {}, Version105: {}, Version201: {}, Version202: {},
	}[version]
	return ok
}

// NormalizePathSegment converts an element tag to its registry form:
// hyphens become underscores so paths read like Go identifiers.
func NormalizePathSegment(tag string) string {
	return strings.ReplaceAll(tag, "-", "_")
}

// JoinPath appends a normalized segment to a parent path.
func JoinPath(parent, tag string) string {
	seg := NormalizePathSegment(tag)
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}
