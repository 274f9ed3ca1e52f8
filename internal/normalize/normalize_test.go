package normalize

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Hello world", Excerpt("<p>Hello <b>world</b></p>"))
	assert.Equal(t, "one two", Excerpt("<p>one</p><p>two</p>"))
	assert.Equal(t, "AT&T beats estimates", Excerpt("AT&amp;T <script>alert(1)</script>beats estimates"))
	assert.Equal(t, "", Excerpt("   "))

	long := strings.Repeat("é", 500)
	got := Excerpt("<div>" + long + "</div>")
	assert.Equal(t, ExcerptLimit, utf8.RuneCountInString(got))
}

func TestPublishedAt(t *testing.T) {
	parsed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	got := PublishedAt(parsed, "ignored")
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.Equal(parsed))

	got = PublishedAt(time.Time{}, "Mon, 02 Jan 2006 15:04:05 -0700")
	require.NotNil(t, got)
	assert.Equal(t, 2006, got.Year())

	assert.Nil(t, PublishedAt(time.Time{}, "not a date at all"))
	assert.Nil(t, PublishedAt(time.Time{}, ""))
}

func TestHash(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(""))
	assert.Len(t, Hash("https://example.com"), 32)
	assert.Equal(t, Hash("https://example.com"), Hash("https://example.com"))
}

func TestRecord(t *testing.T) {
	rec := Record(model.Item{
		Title:      "  <b>Fed</b> holds rates ",
		Link:       " https://example.com/fed ",
		SourceName: "CNBC",
		Provider:   "rss",
		Summary:    "<p>Rates <i>unchanged</i></p>",
		Content:    "plain body",
	})

	assert.Equal(t, "Fed holds rates", rec.Title)
	assert.Equal(t, "https://example.com/fed", rec.URL)
	assert.Equal(t, "CNBC", rec.Source)
	assert.Equal(t, "rss", rec.Provider)
	assert.Equal(t, "Rates unchanged", rec.Excerpt)
	assert.Equal(t, "plain body", rec.Content)
	assert.Nil(t, rec.PublishedAt)
	assert.Equal(t, Hash("https://example.com/fed"), rec.Hash)
	assert.Empty(t, rec.Summary)
	assert.False(t, rec.Published)

	assert.Equal(t, "No Title", Record(model.Item{Link: "https://example.com/x"}).Title)
}

func TestContentNeverFails(t *testing.T) {
	assert.Equal(t, "", Content(""))
	assert.NotPanics(t, func() { _ = Content("<html><body><p>") })
}
