package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/0x0BSoD/newsPipeline/internal/model"
)

var (
	ErrNotFound     = errors.New("news record not found")
	ErrDuplicateURL = errors.New("news record with this url already exists")
)

var newsColumns = []string{
	"id", "url", "title", "source", "provider", "published_at", "excerpt",
	"content", "summary", "tags", "symbols", "hash", "published", "created_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const insertNews = `INSERT INTO news_items
	(url, title, source, provider, published_at, excerpt, content, summary, tags, symbols, hash)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (url) DO NOTHING`

type NewsStorage struct {
	db *sqlx.DB
}

func NewNewsStorage(db *sqlx.DB) *NewsStorage {
	return &NewsStorage{db: db}
}

// Ingest stores the candidates whose URL is not yet known and returns how many
// rows were inserted. Existence is checked for the whole batch before any
// insert, duplicates inside the batch keep their first occurrence, and the
// batch commits atomically.
func (s *NewsStorage) Ingest(ctx context.Context, candidates []model.News) (int, error) {
	batch := prepareBatch(candidates)
	if len(batch) == 0 {
		return 0, nil
	}

	var inserted int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		urls := lo.Map(batch, func(n model.News, _ int) string { return n.URL })

		var existing []string
		if err := tx.SelectContext(ctx, &existing,
			`SELECT url FROM news_items WHERE url = ANY($1)`, pq.Array(urls)); err != nil {
			return fmt.Errorf("check existing urls: %w", err)
		}
		known := lo.Keyify(existing)

		for _, n := range batch {
			if _, ok := known[n.URL]; ok {
				continue
			}

			res, err := tx.ExecContext(ctx, insertNews, insertArgs(n)...)
			if err != nil {
				return fmt.Errorf("insert %s: %w", n.URL, err)
			}
			if affected, err := res.RowsAffected(); err == nil {
				inserted += int(affected)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// prepareBatch drops invalid candidates and keeps the first occurrence of each URL.
func prepareBatch(candidates []model.News) []model.News {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.News, 0, len(candidates))

	for _, n := range candidates {
		n.URL = strings.TrimSpace(n.URL)
		if err := n.Validate(); err != nil {
			slog.Debug("skipping candidate", "url", n.URL, "err", err)
			continue
		}
		if _, dup := seen[n.URL]; dup {
			continue
		}
		seen[n.URL] = struct{}{}
		out = append(out, n)
	}

	return out
}

func insertArgs(n model.News) []any {
	return []any{
		n.URL,
		n.Title,
		nullString(n.Source),
		nullString(n.Provider),
		nullTime(n.PublishedAt),
		nullString(n.Excerpt),
		nullString(n.Content),
		nullString(strings.TrimSpace(n.Summary)),
		pq.Array(nonNil(n.Tags)),
		pq.Array(nonNil(n.Symbols)),
		nullString(n.Hash),
	}
}

// Create inserts a single record, failing with ErrDuplicateURL when the URL is taken.
func (s *NewsStorage) Create(ctx context.Context, n model.News) (model.News, error) {
	n.URL = strings.TrimSpace(n.URL)
	if err := n.Validate(); err != nil {
		return model.News{}, err
	}

	query := insertNews + " RETURNING " + strings.Join(newsColumns, ", ")

	var row dbNews
	err := s.db.QueryRowxContext(ctx, query, insertArgs(n)...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.News{}, ErrDuplicateURL
	}
	if err != nil {
		return model.News{}, fmt.Errorf("create news: %w", err)
	}

	return row.toModel(), nil
}

func (s *NewsStorage) ByID(ctx context.Context, id int64) (model.News, error) {
	query, args, err := psql.Select(newsColumns...).From("news_items").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return model.News{}, err
	}

	var row dbNews
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.News{}, ErrNotFound
		}
		return model.News{}, fmt.Errorf("get news %d: %w", id, err)
	}

	return row.toModel(), nil
}

type Filter struct {
	Source    string
	Published *bool
	Query     string
	Limit     uint64
	Offset    uint64
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *NewsStorage) List(ctx context.Context, f Filter) ([]model.News, error) {
	b := psql.Select(newsColumns...).From("news_items")

	if f.Source != "" {
		b = b.Where(sq.Eq{"source": f.Source})
	}
	if f.Published != nil {
		b = b.Where(sq.Eq{"published": *f.Published})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		b = b.Where(sq.ILike{"title": "%" + q + "%"})
	}

	limit := f.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	b = b.OrderBy("id DESC").Limit(min(limit, maxListLimit))
	if f.Offset > 0 {
		b = b.Offset(f.Offset)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	return s.selectNews(ctx, query, args...)
}

// Patch is a partial update. Nil fields are left untouched. Summary cannot be
// cleared and Published can only move to true.
type Patch struct {
	Title       *string    `json:"title"`
	Source      *string    `json:"source"`
	Provider    *string    `json:"provider"`
	PublishedAt *time.Time `json:"published_at"`
	Excerpt     *string    `json:"excerpt"`
	Content     *string    `json:"content"`
	Summary     *string    `json:"summary"`
	Tags        *[]string  `json:"tags"`
	Symbols     *[]string  `json:"symbols"`
	Published   *bool      `json:"published"`
}

func (p Patch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", model.ErrInvalidRecord)
	}
	if p.Summary != nil && strings.TrimSpace(*p.Summary) == "" {
		return fmt.Errorf("%w: summary cannot be cleared", model.ErrInvalidRecord)
	}
	if p.Source != nil && len(*p.Source) > model.MaxSourceLen {
		return fmt.Errorf("%w: source longer than %d bytes", model.ErrInvalidRecord, model.MaxSourceLen)
	}
	if p.Provider != nil && len(*p.Provider) > model.MaxProviderLen {
		return fmt.Errorf("%w: provider longer than %d bytes", model.ErrInvalidRecord, model.MaxProviderLen)
	}
	if p.Published != nil && !*p.Published {
		return fmt.Errorf("%w: published cannot be reset", model.ErrInvalidRecord)
	}
	return nil
}

func (s *NewsStorage) Update(ctx context.Context, id int64, p Patch) (model.News, error) {
	if err := p.validate(); err != nil {
		return model.News{}, err
	}

	b := psql.Update("news_items")
	set := 0
	setIf := func(column string, ok bool, value any) {
		if ok {
			b = b.Set(column, value)
			set++
		}
	}

	setIf("title", p.Title != nil, deref(p.Title))
	setIf("source", p.Source != nil, nullString(deref(p.Source)))
	setIf("provider", p.Provider != nil, nullString(deref(p.Provider)))
	setIf("published_at", p.PublishedAt != nil, nullTime(p.PublishedAt))
	setIf("excerpt", p.Excerpt != nil, nullString(deref(p.Excerpt)))
	setIf("content", p.Content != nil, nullString(deref(p.Content)))
	setIf("summary", p.Summary != nil, deref(p.Summary))
	if p.Tags != nil {
		setIf("tags", true, pq.Array(nonNil(*p.Tags)))
	}
	if p.Symbols != nil {
		setIf("symbols", true, pq.Array(nonNil(*p.Symbols)))
	}
	setIf("published", p.Published != nil, true)

	if set == 0 {
		return s.ByID(ctx, id)
	}

	query, args, err := b.Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(newsColumns, ", ")).
		ToSql()
	if err != nil {
		return model.News{}, err
	}

	var row dbNews
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.News{}, ErrNotFound
		}
		return model.News{}, fmt.Errorf("update news %d: %w", id, err)
	}

	return row.toModel(), nil
}

func (s *NewsStorage) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM news_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete news %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete news %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Unsummarized selects records the summarization stage has not processed.
func (s *NewsStorage) Unsummarized(ctx context.Context, limit int) ([]model.News, error) {
	return s.selectNews(ctx, `SELECT `+strings.Join(newsColumns, ", ")+` FROM news_items
		WHERE summary IS NULL OR btrim(summary) = ''
		ORDER BY id LIMIT $1`, limit)
}

// SaveSummaries writes summaries in one transaction. Rows summarized meanwhile
// are left alone.
func (s *NewsStorage) SaveSummaries(ctx context.Context, summaries map[int64]string) (int, error) {
	ids := lo.Keys(summaries)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var updated int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, id := range ids {
			summary := strings.TrimSpace(summaries[id])
			if summary == "" {
				continue
			}

			res, err := tx.ExecContext(ctx, `UPDATE news_items SET summary = $1
				WHERE id = $2 AND (summary IS NULL OR btrim(summary) = '')`, summary, id)
			if err != nil {
				return fmt.Errorf("save summary %d: %w", id, err)
			}
			if affected, err := res.RowsAffected(); err == nil {
				updated += int(affected)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// Untagged selects records lacking tags or symbols.
func (s *NewsStorage) Untagged(ctx context.Context, limit int) ([]model.News, error) {
	return s.selectNews(ctx, `SELECT `+strings.Join(newsColumns, ", ")+` FROM news_items
		WHERE cardinality(tags) = 0 OR cardinality(symbols) = 0
		ORDER BY id LIMIT $1`, limit)
}

func (s *NewsStorage) SaveTags(ctx context.Context, tagging []model.Tagging) (int, error) {
	var updated int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tagging {
			res, err := tx.ExecContext(ctx, `UPDATE news_items SET symbols = $1, tags = $2
				WHERE id = $3 AND (cardinality(tags) = 0 OR cardinality(symbols) = 0)`,
				pq.Array(nonNil(t.Symbols)), pq.Array(nonNil(t.Tags)), t.ID)
			if err != nil {
				return fmt.Errorf("save tags %d: %w", t.ID, err)
			}
			if affected, err := res.RowsAffected(); err == nil {
				updated += int(affected)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// Unpublished selects records that have not been published and carry a usable URL.
func (s *NewsStorage) Unpublished(ctx context.Context, limit int) ([]model.News, error) {
	return s.selectNews(ctx, `SELECT `+strings.Join(newsColumns, ", ")+` FROM news_items
		WHERE published = FALSE AND url IS NOT NULL AND url <> '' AND lower(url) <> 'none'
		ORDER BY id LIMIT $1`, limit)
}

// MarkPublished flips the flag for ids in one statement. Already published rows
// are not counted.
func (s *NewsStorage) MarkPublished(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var updated int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE news_items SET published = TRUE
			WHERE id = ANY($1) AND published = FALSE`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("mark published: %w", err)
		}
		updated = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

func (s *NewsStorage) selectNews(ctx context.Context, query string, args ...any) ([]model.News, error) {
	var rows []dbNews
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select news: %w", err)
	}

	return lo.Map(rows, func(r dbNews, _ int) model.News { return r.toModel() }), nil
}

func (s *NewsStorage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to rollback", "err", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type dbNews struct {
	ID          int64          `db:"id"`
	URL         string         `db:"url"`
	Title       string         `db:"title"`
	Source      sql.NullString `db:"source"`
	Provider    sql.NullString `db:"provider"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Excerpt     sql.NullString `db:"excerpt"`
	Content     sql.NullString `db:"content"`
	Summary     sql.NullString `db:"summary"`
	Tags        pq.StringArray `db:"tags"`
	Symbols     pq.StringArray `db:"symbols"`
	Hash        sql.NullString `db:"hash"`
	Published   bool           `db:"published"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r dbNews) toModel() model.News {
	n := model.News{
		ID:        r.ID,
		URL:       r.URL,
		Title:     r.Title,
		Source:    r.Source.String,
		Provider:  r.Provider.String,
		Excerpt:   r.Excerpt.String,
		Content:   r.Content.String,
		Summary:   r.Summary.String,
		Tags:      nonNil([]string(r.Tags)),
		Symbols:   nonNil([]string(r.Symbols)),
		Hash:      r.Hash.String,
		Published: r.Published,
		CreatedAt: r.CreatedAt,
	}
	if r.PublishedAt.Valid {
		t := r.PublishedAt.Time.UTC()
		n.PublishedAt = &t
	}
	return n
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
