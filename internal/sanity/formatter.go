package sanity

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// Input is everything the formatter needs to build a document. The
// publish timestamp is a caller-supplied placeholder so that formatting
// stays a pure function of its input.
type Input struct {
	Title       string
	Body        string
	Summary     string
	SourceName  string
	SourceURL   string
	SourceTitle string
	PublishedAt string
}

var reBlankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Format maps a translated article into a Document. Paragraph-level
// blocks are split on blank-line boundaries; each paragraph becomes one
// block with a single span carrying the full paragraph text. The same
// input always yields the same document, keys included.
func Format(in Input) *Document {
	doc := &Document{
		Type:        "post",
		Title:       in.Title,
		Slug:        Slug{Type: "slug", Current: Slugify(in.Title)},
		PublishedAt: in.PublishedAt,
		Excerpt:     Excerpt(in.Summary),
		Source: Source{
			URL:   in.SourceURL,
			Title: in.SourceTitle,
			Site:  in.SourceName,
		},
	}

	for i, para := range SplitParagraphs(in.Body) {
		doc.Content = append(doc.Content, Block{
			Type:     "block",
			Key:      contentKey("block", i, para),
			Style:    "normal",
			MarkDefs: []string{},
			Children: []Span{{
				Type:  "span",
				Key:   contentKey("span", i, para),
				Text:  para,
				Marks: []string{},
			}},
		})
	}
	return doc
}

// SplitParagraphs splits body text on blank-line boundaries, trimming
// each paragraph and dropping empty ones.
func SplitParagraphs(body string) []string {
	var paras []string
	for _, p := range reBlankLine.Split(body, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// contentKey derives a stable _key from the element's position and text.
// Sanity wants keys to be unique per document; deriving them instead of
// randomizing keeps formatting deterministic.
func contentKey(kind string, index int, text string) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d:%s", kind, index, text)
	return fmt.Sprintf("%s-%d-%08x", kind, index, h.Sum32())
}
