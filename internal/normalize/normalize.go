// Package normalize turns raw feed entries into canonical news records.
package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

// ExcerptLimit caps the plain-text excerpt, in runes.
const ExcerptLimit = 320

const defaultTitle = "No Title"

var (
	strict            = newStrictPolicy()
	redundantNewLines = regexp.MustCompile(`\n{3,}`)
)

func newStrictPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// Record converts a raw item into a candidate record. It never fails: fields that
// cannot be derived are left empty and validation happens at ingestion.
func Record(item model.Item) model.News {
	title := PlainText(item.Title)
	if title == "" {
		title = defaultTitle
	}

	link := strings.TrimSpace(item.Link)

	return model.News{
		URL:         link,
		Title:       title,
		Source:      item.SourceName,
		Provider:    item.Provider,
		PublishedAt: PublishedAt(item.Date, item.RawDate),
		Excerpt:     Excerpt(excerptSource(item)),
		Content:     Content(item.Content),
		Summary:     "",
		Tags:        []string{},
		Symbols:     []string{},
		Hash:        Hash(link),
	}
}

func excerptSource(item model.Item) string {
	if strings.TrimSpace(item.Summary) != "" {
		return item.Summary
	}
	return item.Content
}

// Excerpt strips markup and caps the result at ExcerptLimit runes.
func Excerpt(raw string) string {
	return truncate(PlainText(raw), ExcerptLimit)
}

// PlainText strips all markup and collapses whitespace.
func PlainText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

// Content extracts readable body text from an HTML fragment. Extraction is best
// effort; any failure yields an empty string.
func Content(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if !strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}

	article, err := readability.FromReader(strings.NewReader(raw), nil)
	if err != nil {
		return PlainText(raw)
	}

	text := strings.TrimSpace(redundantNewLines.ReplaceAllString(article.TextContent, "\n"))
	if text == "" {
		return PlainText(raw)
	}
	return text
}

// PublishedAt prefers the parsed time from the feed library and falls back to
// a best-effort parse of the raw value. Unparsable input yields nil.
func PublishedAt(parsed time.Time, raw string) *time.Time {
	if !parsed.IsZero() {
		t := parsed.UTC()
		return &t
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Hash is the md5 hex digest of the link.
func Hash(link string) string {
	sum := md5.Sum([]byte(link)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
