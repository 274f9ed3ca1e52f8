package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/0x0BSoD/newsPipeline/internal/llm"
	"github.com/0x0BSoD/newsPipeline/internal/model"
)

const (
	DefaultBatch = 10

	maxTokens = 800
)

var ErrMalformedResponse = errors.New("malformed tagging response")

type NewsStorage interface {
	Untagged(ctx context.Context, limit int) ([]model.News, error)
	SaveTags(ctx context.Context, tagging []model.Tagging) (int, error)
}

type Tagged struct {
	Record  model.News `json:"record"`
	Symbols []string   `json:"symbols"`
	Tags    []string   `json:"tags"`
}

type Tagger struct {
	news      NewsStorage
	completer llm.Completer
	batch     int
}

func New(news NewsStorage, completer llm.Completer, batch int) *Tagger {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Tagger{news: news, completer: completer, batch: batch}
}

func (t *Tagger) Run(ctx context.Context) (int, error) {
	records, err := t.news.Untagged(ctx, t.batch)
	if err != nil {
		return 0, fmt.Errorf("select untagged: %w", err)
	}

	tagged, err := t.Tag(ctx, records)
	if err != nil {
		return 0, err
	}

	// Nothing to write for records the model found no labels for.
	tagged = lo.Filter(tagged, func(tg Tagged, _ int) bool {
		return len(tg.Symbols) > 0 || len(tg.Tags) > 0
	})
	if len(tagged) == 0 {
		return 0, nil
	}

	saved, err := t.news.SaveTags(ctx, lo.Map(tagged, func(tg Tagged, _ int) model.Tagging {
		return model.Tagging{ID: tg.Record.ID, Symbols: tg.Symbols, Tags: tg.Tags}
	}))
	if err != nil {
		return 0, fmt.Errorf("save tags: %w", err)
	}

	slog.Info("tagger finished", "selected", len(records), "saved", saved)
	return saved, nil
}

// Tag sends the batch in one prompt. A response that cannot be matched to the
// input positionally yields no result rather than an error.
func (t *Tagger) Tag(ctx context.Context, records []model.News) ([]Tagged, error) {
	if len(records) == 0 {
		return nil, nil
	}

	text, err := t.completer.Complete(ctx, Prompt(records), llm.Options{MaxTokens: maxTokens})
	if err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}

	entries, err := Parse(text, len(records))
	if err != nil {
		slog.Warn("discarding tagging batch", "batch", len(records), "err", err)
		return nil, nil
	}

	return lo.Map(records, func(r model.News, i int) Tagged {
		return Tagged{Record: r, Symbols: entries[i].Symbols, Tags: entries[i].Tags}
	}), nil
}

func Prompt(records []model.News) string {
	items := lo.Map(records, func(r model.News, i int) string {
		return fmt.Sprintf("%d. Title: %s\nSummary: %s", i+1, r.Title, r.Summary)
	})

	return `You are a financial tagging assistant.
Respond ONLY with valid JSON, no explanations and no text outside JSON.

For each news item below (title + summary):
1. Extract any stock symbols (e.g., AAPL, TSLA, MSFT)
2. Extract relevant tags such as: earnings, macro, fed, AI, tech, energy, crypto, etc.
3. Output a JSON array where each element matches the order of the news items.

Example:
[
  {"symbols": ["AAPL"], "tags": ["earnings", "AI"]},
  {"symbols": ["TSLA"], "tags": ["auto", "earnings"]}
]

News items:
` + strings.Join(items, "\n\n")
}

type Entry struct {
	Symbols []string `json:"symbols"`
	Tags    []string `json:"tags"`
}

// Parse decodes a JSON array of want entries, tolerating a Markdown code fence
// around it. Symbols are upper-cased and tags lower-cased.
func Parse(text string, want int) ([]Entry, error) {
	cleaned := stripFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedResponse)
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(entries) != want {
		return nil, fmt.Errorf("%w: got %d entries for %d records", ErrMalformedResponse, len(entries), want)
	}

	for i := range entries {
		entries[i].Symbols = normalizeLabels(entries[i].Symbols, strings.ToUpper)
		entries[i].Tags = normalizeLabels(entries[i].Tags, strings.ToLower)
	}

	return entries, nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	return strings.TrimSpace(text)
}

func normalizeLabels(labels []string, fold func(string) string) []string {
	out := lo.FilterMap(labels, func(l string, _ int) (string, bool) {
		l = fold(strings.TrimSpace(l))
		return l, l != ""
	})

	return lo.Uniq(out)
}
