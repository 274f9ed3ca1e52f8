package summary

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
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, opts llm.Options) (string, error) {
	f.calls++
	f.prompt, f.opts = prompt, opts
	return f.reply, f.err
}

type fakeStorage struct {
	records []model.News
	saved   map[int64]string
	limit   int
	saveErr error
}

func (f *fakeStorage) Unsummarized(_ context.Context, limit int) ([]model.News, error) {
	f.limit = limit
	var out []model.News
	for _, r := range f.records {
		if r.NeedsSummary() && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStorage) SaveSummaries(_ context.Context, summaries map[int64]string) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = summaries
	for i := range f.records {
		if s, ok := summaries[f.records[i].ID]; ok && f.records[i].NeedsSummary() {
			f.records[i].Summary = s
		}
	}
	return len(summaries), nil
}

func TestParse(t *testing.T) {
	text := `Here you go:
1. Fed holds rates
• Policy unchanged
•   Two cuts still expected  

2. Oil slips
3. Gold rallies
• Safe haven demand
1. Fed holds rates again
• should be ignored`

	got := Parse(text)
	assert.Equal(t, map[int]string{
		1: "• Policy unchanged\n• Two cuts still expected",
		3: "• Safe haven demand",
	}, got)
}

func TestParseGarbage(t *testing.T) {
	assert.Empty(t, Parse("no structure at all\n• orphan bullet"))
	assert.Empty(t, Parse(""))
}

func TestSummarizeMissingOrdinal(t *testing.T) {
	records := []model.News{
		{ID: 1, Title: "Fed holds", Excerpt: "Rates unchanged"},
		{ID: 2, Title: "Oil slips", Excerpt: "Brent lower"},
	}
	c := &fakeCompleter{reply: "1. Fed holds\n• Rates unchanged at 5%"}

	filled, err := New(nil, c, 0).Summarize(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	assert.Equal(t, "• Rates unchanged at 5%", records[0].Summary)
	assert.Empty(t, records[1].Summary)

	assert.Contains(t, c.prompt, "1. Fed holds\nRates unchanged")
	assert.Contains(t, c.prompt, "2. Oil slips\nBrent lower")
	assert.Equal(t, llm.Options{MaxTokens: 2000, Temperature: 0.2}, c.opts)
}

func TestRunIsMonotonic(t *testing.T) {
	store := &fakeStorage{records: []model.News{
		{ID: 1, Title: "Fed holds"},
		{ID: 2, Title: "Oil slips"},
	}}
	c := &fakeCompleter{reply: "1. Fed holds\n• a\n2. Oil slips\n• b"}
	s := New(store, c, 10)

	saved, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, 10, store.limit)
	assert.Equal(t, map[int64]string{1: "• a", 2: "• b"}, store.saved)

	c.reply = "1. Fed holds\n• rewritten"
	saved, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, "• a", store.records[0].Summary)
}

func TestRunPropagatesServiceError(t *testing.T) {
	store := &fakeStorage{records: []model.News{{ID: 1, Title: "Fed holds"}}}
	s := New(store, &fakeCompleter{err: errors.New("503")}, 10)

	saved, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, saved)
	assert.Nil(t, store.saved)
}

func TestRunNoMatches(t *testing.T) {
	store := &fakeStorage{records: []model.News{{ID: 1, Title: "Fed holds"}}}
	s := New(store, &fakeCompleter{reply: "I cannot help with that."}, 10)

	saved, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, saved)
	assert.Nil(t, store.saved)
}

func TestRunSaveError(t *testing.T) {
	store := &fakeStorage{records: []model.News{{ID: 1, Title: "Fed holds"}}, saveErr: errors.New("conn reset")}
	s := New(store, &fakeCompleter{reply: "1. Fed holds\n• a"}, 10)

	saved, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, saved)
}
