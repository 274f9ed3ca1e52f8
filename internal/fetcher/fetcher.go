package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/0x0BSoD/newsPipeline/internal/metrics"
	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/normalize"
)

type NewsStorage interface {
	Ingest(ctx context.Context, candidates []model.News) (int, error)
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

type Result struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
}

type Fetcher struct {
	news    NewsStorage
	sources []Source

	timeout        time.Duration
	maxPerSource   int
	filterKeywords []string
}

func New(
	news NewsStorage,
	sources []Source,
	timeout time.Duration,
	maxPerSource int,
	filterKeywords []string,
) *Fetcher {
	return &Fetcher{
		news:         news,
		sources:      sources,
		timeout:      timeout,
		maxPerSource: maxPerSource,
		filterKeywords: lo.Map(filterKeywords, func(k string, _ int) string {
			return strings.ToLower(strings.TrimSpace(k))
		}),
	}
}

// Run fetches every source and ingests the candidates.
func (f *Fetcher) Run(ctx context.Context) (Result, error) {
	candidates := f.Fetch(ctx)

	inserted, err := f.news.Ingest(ctx, candidates)
	if err != nil {
		return Result{Fetched: len(candidates)}, fmt.Errorf("ingest: %w", err)
	}

	slog.Info("collector finished", "fetched", len(candidates), "inserted", inserted)
	return Result{Fetched: len(candidates), Inserted: inserted}, nil
}

// Fetch queries all sources concurrently. A failing source contributes zero
// items and never aborts the batch. Output keeps the configured source order.
func (f *Fetcher) Fetch(ctx context.Context) []model.News {
	perSource := make([][]model.News, len(f.sources))

	var wg sync.WaitGroup
	for i, src := range f.sources {
		wg.Add(1)

		go func(i int, source Source) {
			defer wg.Done()

			items, err := f.fetchOne(ctx, source)
			metrics.RecordFetch(source.Name(), len(items), err)
			if err != nil {
				slog.Warn("failed to fetch source", "source", source.Name(), "err", err)
				return
			}

			perSource[i] = f.processItems(items)
		}(i, src)
	}
	wg.Wait()

	return lo.Flatten(perSource)
}

func (f *Fetcher) fetchOne(ctx context.Context, source Source) ([]model.Item, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	return source.Fetch(ctx)
}

func (f *Fetcher) itemMustSkipped(item model.Item) bool {
	categories := lo.Uniq(lo.Map(item.Categories, func(c string, _ int) string {
		return strings.ToLower(c)
	}))
	title := strings.ToLower(item.Title)

	for _, keyword := range f.filterKeywords {
		if keyword == "" {
			continue
		}
		if lo.Contains(categories, keyword) || strings.Contains(title, keyword) {
			return true
		}
	}

	return false
}

func (f *Fetcher) processItems(items []model.Item) []model.News {
	if f.maxPerSource > 0 && len(items) > f.maxPerSource {
		items = items[:f.maxPerSource]
	}

	out := make([]model.News, 0, len(items))
	for _, item := range items {
		if f.itemMustSkipped(item) {
			continue
		}
		out = append(out, normalize.Record(item))
	}

	return out
}
