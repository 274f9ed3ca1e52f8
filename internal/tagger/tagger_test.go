package tagger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/newsPipeline/internal/llm"
	"github.com/0x0BSoD/newsPipeline/internal/model"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	opts   llm.Options
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.prompt, f.opts = prompt, opts
	return f.reply, f.err
}

type fakeStorage struct {
	records []model.News
	saved   []model.Tagging
}

func (f *fakeStorage) Untagged(_ context.Context, limit int) ([]model.News, error) {
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func (f *fakeStorage) SaveTags(_ context.Context, tagging []model.Tagging) (int, error) {
	f.saved = append(f.saved, tagging...)
	return len(tagging), nil
}

func records() []model.News {
	return []model.News{
		{ID: 1, Title: "Apple beats", Summary: "• iPhone sales up"},
		{ID: 2, Title: "Fed holds", Summary: "• Rates unchanged"},
	}
}

func TestParseFenced(t *testing.T) {
	text := "```json\n[{\"symbols\":[\" aapl \",\"AAPL\"],\"tags\":[\"Earnings\",\"AI\",\"\"]},{\"symbols\":[],\"tags\":[\"fed\"]}]\n```"

	got, err := Parse(text, 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Symbols: []string{"AAPL"}, Tags: []string{"earnings", "ai"}},
		{Symbols: []string{}, Tags: []string{"fed"}},
	}, got)
}

func TestParseFailsClosed(t *testing.T) {
	cases := map[string]string{
		"not json":        "Sure! Here are the tags.",
		"empty":           "   ",
		"object":          `{"symbols":["AAPL"]}`,
		"wrong item type": `[{"symbols":"AAPL","tags":[]},{"symbols":[],"tags":[]}]`,
		"too short":       `[{"symbols":["AAPL"],"tags":["earnings"]}]`,
		"too long":        `[{},{},{}]`,
	}

	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(text, 2)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestRun(t *testing.T) {
	store := &fakeStorage{records: records()}
	c := &fakeCompleter{reply: `[{"symbols":["AAPL"],"tags":["earnings"]},{"symbols":[],"tags":["fed","macro"]}]`}

	saved, err := New(store, c, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, []model.Tagging{
		{ID: 1, Symbols: []string{"AAPL"}, Tags: []string{"earnings"}},
		{ID: 2, Symbols: []string{}, Tags: []string{"fed", "macro"}},
	}, store.saved)

	assert.Contains(t, c.prompt, "1. Title: Apple beats\nSummary: • iPhone sales up")
	assert.Contains(t, c.prompt, "2. Title: Fed holds")
	assert.Equal(t, llm.Options{MaxTokens: 800}, c.opts)
}

func TestRunMalformedWritesNothing(t *testing.T) {
	store := &fakeStorage{records: records()}

	saved, err := New(store, &fakeCompleter{reply: "[{\"symbols\": [\"AAPL\""}, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Empty(t, store.saved)
}

func TestRunSkipsUnlabelledRecords(t *testing.T) {
	store := &fakeStorage{records: records()}
	c := &fakeCompleter{reply: `[{"symbols":[],"tags":[]},{"symbols":[],"tags":["fed"]}]`}

	saved, err := New(store, c, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.Equal(t, []model.Tagging{{ID: 2, Symbols: []string{}, Tags: []string{"fed"}}}, store.saved)

	c.reply = `[{"symbols":[],"tags":[]},{"symbols":[" "],"tags":[]}]`
	store.saved = nil
	saved, err = New(store, c, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Empty(t, store.saved)
}

func TestTagServiceError(t *testing.T) {
	tg := New(&fakeStorage{}, &fakeCompleter{err: errors.New("timeout")}, 10)

	got, err := tg.Tag(context.Background(), records())
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestTagEmptyBatch(t *testing.T) {
	c := &fakeCompleter{}
	got, err := New(&fakeStorage{}, c, 10).Tag(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, c.prompt)
}
