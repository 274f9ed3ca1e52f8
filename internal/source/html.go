package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

const defaultItemSelector = "article"

// HTMLSource scrapes a news listing page with CSS selectors.
type HTMLSource struct {
	Source model.Source
	Client *http.Client
}

func (s HTMLSource) Name() string {
	return s.Source.Name
}

func (s HTMLSource) Fetch(ctx context.Context) ([]model.Item, error) {
	base, err := url.Parse(s.Source.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %s: %w", s.Source.URL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := clientFor(ctx, s.Client, defaultTimeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	return s.extract(doc, base), nil
}

func (s HTMLSource) extract(doc *goquery.Document, base *url.URL) []model.Item {
	itemSelector := s.Source.ItemSelector
	if itemSelector == "" {
		itemSelector = defaultItemSelector
	}

	var items []model.Item
	doc.Find(itemSelector).Each(func(_ int, sel *goquery.Selection) {
		anchor := sel
		if goquery.NodeName(sel) != "a" {
			anchor = sel.Find("a[href]").First()
		}

		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		link, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}

		title := anchor.Text()
		if s.Source.TitleSelector != "" {
			title = sel.Find(s.Source.TitleSelector).First().Text()
		}

		var excerpt string
		if s.Source.ExcerptSelector != "" {
			excerpt = sel.Find(s.Source.ExcerptSelector).First().Text()
		}

		items = append(items, model.Item{
			Title:      strings.TrimSpace(title),
			Link:       link.String(),
			RawDate:    s.rawDate(sel),
			Summary:    strings.TrimSpace(excerpt),
			SourceName: s.Source.Name,
			Provider:   string(model.KindHTML),
		})
	})

	return items
}

func (s HTMLSource) rawDate(sel *goquery.Selection) string {
	if s.Source.DateSelector != "" {
		node := sel.Find(s.Source.DateSelector).First()
		if dt, ok := node.Attr("datetime"); ok {
			return strings.TrimSpace(dt)
		}
		return strings.TrimSpace(node.Text())
	}

	if dt, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok {
		return strings.TrimSpace(dt)
	}
	return ""
}
