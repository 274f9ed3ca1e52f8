package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/source"
)

type stubSource struct {
	name  string
	items []model.Item
	err   error
	delay time.Duration
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Fetch(ctx context.Context) ([]model.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.items, s.err
}

type recordingStorage struct {
	got []model.News
	err error
}

func (r *recordingStorage) Ingest(_ context.Context, candidates []model.News) (int, error) {
	r.got = append(r.got, candidates...)
	if r.err != nil {
		return 0, r.err
	}
	return len(candidates), nil
}

func items(source string, n int) []model.Item {
	out := make([]model.Item, n)
	for i := range out {
		out[i] = model.Item{
			Title:      fmt.Sprintf("%s story %d", source, i),
			Link:       fmt.Sprintf("https://%s.example.com/%d", source, i),
			SourceName: source,
			Provider:   "rss",
		}
	}
	return out
}

func TestFetchToleratesPartialFailure(t *testing.T) {
	sources := []Source{
		stubSource{name: "a", items: items("a", 2)},
		stubSource{name: "b", err: errors.New("connection refused")},
		stubSource{name: "c", items: items("c", 1)},
		stubSource{name: "d", delay: time.Second},
		stubSource{name: "e", items: items("e", 3)},
	}

	f := New(&recordingStorage{}, sources, 50*time.Millisecond, 5, nil)
	got := f.Fetch(context.Background())

	require.Len(t, got, 6)
	urls := lo.Map(got, func(n model.News, _ int) string { return n.URL })
	assert.Equal(t, []string{
		"https://a.example.com/0", "https://a.example.com/1",
		"https://c.example.com/0",
		"https://e.example.com/0", "https://e.example.com/1", "https://e.example.com/2",
	}, urls)
}

func TestFetchCapsPerSource(t *testing.T) {
	f := New(&recordingStorage{}, []Source{stubSource{name: "a", items: items("a", 9)}}, time.Second, 5, nil)
	assert.Len(t, f.Fetch(context.Background()), 5)
}

func TestFetchFiltersKeywords(t *testing.T) {
	src := stubSource{name: "a", items: []model.Item{
		{Title: "Sponsored: buy now", Link: "https://a.example.com/1"},
		{Title: "Oil rallies", Link: "https://a.example.com/2", Categories: []string{"Promo"}},
		{Title: "Gold flat", Link: "https://a.example.com/3"},
	}}

	f := New(&recordingStorage{}, []Source{src}, time.Second, 5, []string{" Sponsored", "promo"})
	got := f.Fetch(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "Gold flat", got[0].Title)
}

func TestRunIngests(t *testing.T) {
	store := &recordingStorage{}
	f := New(store, []Source{stubSource{name: "a", items: items("a", 2)}}, time.Second, 5, nil)

	res, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Fetched: 2, Inserted: 2}, res)
	assert.Len(t, store.got, 2)

	store.err = errors.New("tx aborted")
	res, err = f.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, res.Inserted)
}

func TestFetchOverHTTP(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>Rates</title><link>https://ok.example.com/rates</link><description>&lt;b&gt;cut&lt;/b&gt;</description></item>
</channel></rss>`))
	}))
	defer ok.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	sources := []Source{
		source.RSSSource{URL: ok.URL, SourceName: "ok"},
		source.RSSSource{URL: broken.URL, SourceName: "broken"},
	}

	got := New(&recordingStorage{}, sources, 2*time.Second, 5, nil).Fetch(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "Rates", got[0].Title)
	assert.Equal(t, "cut", got[0].Excerpt)
	assert.Equal(t, "ok", got[0].Source)
}
