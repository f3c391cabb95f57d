// Package rules loads hook rule files: XML documents with an Actions root
// whose children form a tree of filters and actions. Parsing happens in two
// steps: a generic element tree that survives re-serialization unchanged,
// then compilation into typed nodes with all regular expressions compiled
// up front.
package rules

import (
	"encoding/xml"
	"fmt"
	"os"
)

// RootTag is the required document root of every rule file.
const RootTag = "Actions"

// Element is a generic XML element. Attribute order, child order, and
// nesting survive an unmarshal/marshal round trip.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []Element  `xml:",any"`
}

// Name returns the element's local tag name.
func (e *Element) Name() string {
	return e.XMLName.Local
}

// Attr returns the named attribute value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first child with the given tag name, or nil.
func (e *Element) Find(name string) *Element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// FindAll returns all children with the given tag name, in document order.
func (e *Element) FindAll(name string) []*Element {
	var found []*Element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			found = append(found, &e.Children[i])
		}
	}
	return found
}

// ParseDocument parses a rule document and verifies its root tag.
func ParseDocument(data []byte) (*Element, error) {
	var root Element
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse rule file: %w", err)
	}
	if root.XMLName.Local != RootTag {
		return nil, fmt.Errorf("unexpected root tag %q, want %q", root.XMLName.Local, RootTag)
	}
	return &root, nil
}

// ReadDocument reads and parses a rule file.
func ReadDocument(path string) (*Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	return ParseDocument(data)
}

// Serialize renders the element tree back to XML.
func (e *Element) Serialize() ([]byte, error) {
	return xml.Marshal(e)
}
