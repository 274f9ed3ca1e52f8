// Package summary asks the text-generation service for short bulleted synopses
// of records that have none yet.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/0x0BSoD/newsPipeline/internal/llm"
	"github.com/0x0BSoD/newsPipeline/internal/model"
)

const (
	DefaultBatch = 10

	bullet      = "•"
	maxTokens   = 2000
	temperature = 0.2
)

type NewsStorage interface {
	Unsummarized(ctx context.Context, limit int) ([]model.News, error)
	SaveSummaries(ctx context.Context, summaries map[int64]string) (int, error)
}

type Summarizer struct {
	news      NewsStorage
	completer llm.Completer
	batch     int
}

func New(news NewsStorage, completer llm.Completer, batch int) *Summarizer {
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Summarizer{news: news, completer: completer, batch: batch}
}

// Run summarizes one batch of unsummarized records and stores the result.
func (s *Summarizer) Run(ctx context.Context) (int, error) {
	records, err := s.news.Unsummarized(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("select unsummarized: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if _, err := s.Summarize(ctx, records); err != nil {
		return 0, err
	}

	summaries := make(map[int64]string, len(records))
	for _, r := range records {
		if r.Summary != "" {
			summaries[r.ID] = r.Summary
		}
	}
	if len(summaries) == 0 {
		slog.Warn("summarizer response matched no records", "batch", len(records))
		return 0, nil
	}

	saved, err := s.news.SaveSummaries(ctx, summaries)
	if err != nil {
		return 0, fmt.Errorf("save summaries: %w", err)
	}

	slog.Info("summarizer finished", "selected", len(records), "saved", saved)
	return saved, nil
}

// Summarize sends one prompt for the whole batch and fills Summary on the
// records whose ordinal appears in the response. It returns how many were filled.
func (s *Summarizer) Summarize(ctx context.Context, records []model.News) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	text, err := s.completer.Complete(ctx, Prompt(records), llm.Options{
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return 0, fmt.Errorf("summarize: %w", err)
	}

	parsed := Parse(text)
	filled := 0
	for i := range records {
		if !records[i].NeedsSummary() {
			continue
		}
		if summary, ok := parsed[i+1]; ok {
			records[i].Summary = summary
			filled++
		}
	}

	return filled, nil
}

func Prompt(records []model.News) string {
	var block strings.Builder
	for i, r := range records {
		fmt.Fprintf(&block, "%d. %s\n%s\n\n", i+1, r.Title, r.Excerpt)
	}

	return `You are a financial news summarizer.

Here are multiple news articles:

` + block.String() + `Task:
Summarize each news item into up to 3 bullet points (max 120 characters each).
Answer in plain text. For every item write its number and title on one line,
exactly as "<number>. <title>", followed by its bullet points, one per line,
each starting with "` + bullet + ` ". Keep the original numbering. Do not add any other text.`
}

var headerRe = regexp.MustCompile(`^(\d+)\.\s+\S`)

// Parse maps 1-based ordinals to summaries. A summary is the ordinal's bullet
// lines joined by newlines. Ordinals without bullets are omitted and the first
// block for a repeated ordinal wins.
func Parse(text string) map[int]string {
	bullets := make(map[int][]string)
	current := 0
	skip := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := headerRe.FindStringSubmatch(line); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				current = 0
				continue
			}
			current = n
			_, skip = bullets[n]
			if !skip {
				bullets[n] = nil
			}
			continue
		}

		if current == 0 || skip || !strings.HasPrefix(line, bullet) {
			continue
		}
		if b := strings.TrimSpace(strings.TrimPrefix(line, bullet)); b != "" {
			bullets[current] = append(bullets[current], bullet+" "+b)
		}
	}

	out := make(map[int]string, len(bullets))
	for n, lines := range bullets {
		if len(lines) > 0 {
			out[n] = strings.Join(lines, "\n")
		}
	}

	return out
}
