// Package sanity holds the destination CMS document schema (Portable
// Text) and the pure formatter that maps a translated article into it.
package sanity

import (
	"encoding/json"
	"fmt"
)

// Document is a Sanity CMS post: a title, a slug, an excerpt, and an
// ordered sequence of styled text blocks with source attribution.
type Document struct {
	Type        string  `json:"_type"`
	Title       string  `json:"title"`
	Slug        Slug    `json:"slug"`
	PublishedAt string  `json:"publishedAt"`
	Excerpt     string  `json:"excerpt"`
	Content     []Block `json:"content"`
	Source      Source  `json:"originalSource"`
}

// Slug is the Sanity slug wrapper object.
type Slug struct {
	Type    string `json:"_type"`
	Current string `json:"current"`
}

// Block is one Portable Text block: a style plus inline spans.
type Block struct {
	Type     string   `json:"_type"`
	Key      string   `json:"_key"`
	Style    string   `json:"style"`
	MarkDefs []string `json:"markDefs"`
	Children []Span   `json:"children"`
}

// Span is one inline text run inside a block.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// Source is the attribution back to the original article.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Site  string `json:"site"`
}

// Parse decodes a serialized document and checks it is well-formed.
func Parse(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the structural invariants of the schema: a post type,
// a non-empty title and slug, and at least one span in every block.
func (d *Document) Validate() error {
	if d.Type != "post" {
		return fmt.Errorf("document _type is %q, want %q", d.Type, "post")
	}
	if d.Title == "" {
		return fmt.Errorf("document has no title")
	}
	if d.Slug.Current == "" {
		return fmt.Errorf("document has no slug")
	}
	if len(d.Content) == 0 {
		return fmt.Errorf("document has no content blocks")
	}
	for i, b := range d.Content {
		if b.Type != "block" {
			return fmt.Errorf("content[%d] _type is %q, want %q", i, b.Type, "block")
		}
		if len(b.Children) == 0 {
			return fmt.Errorf("content[%d] has no spans", i)
		}
		for j, s := range b.Children {
			if s.Type != "span" {
				return fmt.Errorf("content[%d].children[%d] _type is %q, want %q", i, j, s.Type, "span")
			}
		}
	}
	return nil
}

// Marshal serializes the document. Field order is fixed by the struct, so
// serialization is byte-for-byte stable for equal documents.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}
