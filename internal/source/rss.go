// Package source implements the feed sources the fetcher polls: RSS/Atom feeds and scraped news pages.
package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

const defaultTimeout = 10 * time.Second

// Feed is a named source of raw items.
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Item, error)
}

type RSSSource struct {
	URL        string
	SourceName string
	Client     *http.Client
}

// FromModel builds the source implementation matching m.Kind.
func FromModel(m model.Source, client *http.Client) Feed {
	switch m.Kind {
	case model.KindHTML:
		return HTMLSource{Source: m, Client: client}
	default:
		return RSSSource{URL: m.URL, SourceName: m.Name, Client: client}
	}
}

func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	feed, err := rss.FetchByClient(s.URL, clientFor(ctx, s.Client, defaultTimeout))
	if err != nil {
		return nil, err
	}

	return lo.Map(feed.Items, func(item *rss.Item, _ int) model.Item {
		return model.Item{
			Title:      item.Title,
			Categories: item.Categories,
			Link:       strings.TrimSpace(item.Link),
			Date:       item.Date,
			Summary:    strings.TrimSpace(item.Summary),
			Content:    strings.TrimSpace(item.Content),
			SourceName: s.SourceName,
			Provider:   string(model.KindRSS),
		}
	}), nil
}

func (s RSSSource) Name() string {
	return s.SourceName
}
