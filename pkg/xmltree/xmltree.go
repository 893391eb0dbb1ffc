// Package xmltree decodes arbitrary XML into a generic element tree. The
// ingestion walker needs to visit elements in document order without a
// schema-bound struct per dialect, so the tree keeps every element, attribute
// and text node as-is.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// Element is one XML element with its attributes, text content and children
// in document order.
type Element struct {
	XMLName  xml.Name   `xml:""`
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Element `xml:",any"`
}

// Decode parses a full XML document and returns its root element.
func Decode(data []byte) (*Element, error) {
	var root Element
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// Tag returns the element's local name.
func (e *Element) Tag() string {
	return e.XMLName.Local
}

// Attr returns the named attribute's value, or "" when absent. Namespace
// prefixes on attribute names are ignored; lookup is by local name.
func (e *Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present, even if empty.
func (e *Element) HasAttr(name string) bool {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// Lang returns the xml:lang attribute, or "" when absent.
func (e *Element) Lang() string {
	for _, a := range e.Attrs {
		if a.Name.Local == "lang" {
			return a.Value
		}
	}
	return ""
}

// TrimmedText returns the element's own character data with surrounding
// whitespace removed.
func (e *Element) TrimmedText() string {
	return strings.TrimSpace(e.Text)
}

// Child returns the first direct child with the given tag, or nil.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.XMLName.Local == tag {
			return c
		}
	}
	return nil
}

// ChildText returns the trimmed text of the first direct child with the
// given tag, or "" when the child is absent.
func (e *Element) ChildText(tag string) string {
	if c := e.Child(tag); c != nil {
		return c.TrimmedText()
	}
	return ""
}
