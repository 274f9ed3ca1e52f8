package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

const DefaultBatch = 10

type NewsStorage interface {
	Unpublished(ctx context.Context, limit int) ([]model.News, error)
	MarkPublished(ctx context.Context, ids []int64) (int, error)
}

// Action delivers one record somewhere. A failed delivery leaves the record
// unpublished for the next run.
type Action interface {
	Publish(ctx context.Context, n model.News) error
}

type Publisher struct {
	news   NewsStorage
	action Action
	batch  int
}

func New(news NewsStorage, action Action, batch int) *Publisher {
	if batch <= 0 {
		batch = DefaultBatch
	}
	if action == nil {
		action = LogAction{}
	}
	return &Publisher{news: news, action: action, batch: batch}
}

// Run publishes one batch. Flags flip together after every action ran; if the
// context ends first nothing is marked.
func (p *Publisher) Run(ctx context.Context) (int, error) {
	records, err := p.news.Unpublished(ctx, p.batch)
	if err != nil {
		return 0, fmt.Errorf("select unpublished: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(records))
	for _, n := range records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if !model.ValidURL(n.URL) {
			slog.Warn("skipping record without usable url", "id", n.ID)
			continue
		}

		if err := p.action.Publish(ctx, n); err != nil {
			slog.Error("failed to publish", "id", n.ID, "url", n.URL, "err", err)
			continue
		}
		ids = append(ids, n.ID)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	marked, err := p.news.MarkPublished(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	slog.Info("publisher finished", "selected", len(records), "published", marked)
	return marked, nil
}

type LogAction struct{}

func (LogAction) Publish(_ context.Context, n model.News) error {
	slog.Info("would publish", "id", n.ID, "title", n.Title, "url", n.URL)
	return nil
}
