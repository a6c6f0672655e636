// Package intake registers source article files in the stage store. It
// accepts the feed-export JSON format of the upstream scraper: one file
// per article with title, summary, content (HTML or plain text), source
// and link fields.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	nurl "net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"github.com/rmaia/ponte/internal/model"
	"github.com/rmaia/ponte/internal/sanity"
)

// Registry is the subset of the store intake needs.
type Registry interface {
	FindBySlug(ctx context.Context, slug string) (*model.Article, error)
	CreateArticle(ctx context.Context, a model.Article) error
}

// Summary counts the outcome of one intake scan.
type Summary struct {
	Registered int
	Skipped    int
	Invalid    int
}

const defaultMaxTextLength = 15000

// Loader scans a directory of article JSON files into the store.
type Loader struct {
	store Registry

	// MaxTextLength bounds the normalized body length in runes.
	MaxTextLength int
}

// NewLoader creates a Loader.
func NewLoader(store Registry) *Loader {
	return &Loader{store: store, MaxTextLength: defaultMaxTextLength}
}

// sourceArticle is the on-disk article format.
type sourceArticle struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Source  string `json:"source"`
	Link    string `json:"link"`
}

// ScanDir registers every *.json article in dir that is not already
// known. Articles are keyed by title-derived slug; a file whose slug is
// already registered is skipped, so re-scanning is idempotent.
func (l *Loader) ScanDir(ctx context.Context, dir string) (Summary, error) {
	var sum Summary

	entries, err := os.ReadDir(dir)
	if err != nil {
		return sum, fmt.Errorf("read intake dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		ok, err := l.registerFile(ctx, path)
		if err != nil {
			slog.Warn("skipping invalid intake file", "file", entry.Name(), "error", err)
			sum.Invalid++
			continue
		}
		if ok {
			sum.Registered++
		} else {
			sum.Skipped++
		}
	}
	return sum, nil
}

func (l *Loader) registerFile(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	var src sourceArticle
	if err := json.Unmarshal(data, &src); err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}
	if strings.TrimSpace(src.Title) == "" {
		return false, fmt.Errorf("article has no title")
	}

	slug := sanity.Slugify(src.Title)
	if slug == "" {
		return false, fmt.Errorf("title %q produces an empty slug", src.Title)
	}

	existing, err := l.store.FindBySlug(ctx, slug)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	body, err := l.normalizeBody(src)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(body) == "" {
		return false, fmt.Errorf("article has no body text")
	}

	a := model.NewArticle(
		uuid.New().String(), slug,
		src.Source, src.Link,
		strings.TrimSpace(src.Title),
		normalizeFragment(src.Summary),
		body,
	)
	if err := l.store.CreateArticle(ctx, a); err != nil {
		return false, fmt.Errorf("create article: %w", err)
	}
	slog.Info("article registered", "id", a.ID, "slug", a.Slug, "source", a.SourceName)
	return true, nil
}

// normalizeBody turns the content field into blank-line separated plain
// text paragraphs. Full HTML documents go through readability; fragments
// (the common feed-export case) get their tags stripped directly.
func (l *Loader) normalizeBody(src sourceArticle) (string, error) {
	text := src.Content
	if looksLikeDocument(text) {
		u, _ := nurl.Parse(src.Link)
		article, err := readability.FromReader(strings.NewReader(text), u)
		if err != nil {
			return "", fmt.Errorf("readability: %w", err)
		}
		text = article.TextContent
	} else {
		text = normalizeFragment(text)
	}

	text = normalizeWhitespace(text)

	maxLen := l.MaxTextLength
	if maxLen <= 0 {
		maxLen = defaultMaxTextLength
	}
	if utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		text = string(runes[:maxLen]) + "\n... [truncated]"
	}
	return text, nil
}

func looksLikeDocument(s string) bool {
	head := strings.ToLower(s)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") || strings.Contains(head, "<!doctype")
}

var (
	reParagraphEnd = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote)>`)
	reLineBreak    = regexp.MustCompile(`(?i)<br\s*/?>`)
	reTag          = regexp.MustCompile(`<[^>]*>`)
	reMultiSpace   = regexp.MustCompile(`[ \t]+`)
	reMultiNewline = regexp.MustCompile(`\n{3,}`)
)

// normalizeFragment strips tags from an HTML fragment while keeping
// paragraph boundaries as blank lines.
func normalizeFragment(s string) string {
	s = reParagraphEnd.ReplaceAllString(s, "\n\n")
	s = reLineBreak.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return normalizeWhitespace(s)
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiNewline.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
