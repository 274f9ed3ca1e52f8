package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/normalize"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
)

type createRequest struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	Provider    string     `json:"provider"`
	PublishedAt *time.Time `json:"published_at"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	Summary     string     `json:"summary"`
	Tags        []string   `json:"tags"`
	Symbols     []string   `json:"symbols"`
}

func (r createRequest) toModel() model.News {
	url := strings.TrimSpace(r.URL)
	return model.News{
		URL:         url,
		Title:       strings.TrimSpace(r.Title),
		Source:      r.Source,
		Provider:    r.Provider,
		PublishedAt: r.PublishedAt,
		Excerpt:     r.Excerpt,
		Content:     r.Content,
		Summary:     r.Summary,
		Tags:        r.Tags,
		Symbols:     r.Symbols,
		Hash:        normalize.Hash(url),
	}
}

func (s *Server) listNews(c echo.Context) error {
	var f storage.Filter
	q := c.QueryParams()

	f.Source = q.Get("source")
	f.Query = q.Get("q")

	if raw := q.Get("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "published must be a boolean")
		}
		f.Published = &published
	}

	var err error
	if f.Limit, err = uintParam(q.Get("limit")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	if f.Offset, err = uintParam(q.Get("offset")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
	}

	news, err := s.news.List(c.Request().Context(), f)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, news)
}

func (s *Server) getNews(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	n, err := s.news.ByID(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, n)
}

func (s *Server) createNews(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	n, err := s.news.Create(c.Request().Context(), req.toModel())
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, n)
}

func (s *Server) updateNews(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var patch storage.Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	n, err := s.news.Update(c.Request().Context(), id, patch)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, n)
}

func (s *Server) deleteNews(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	if err := s.news.Delete(c.Request().Context(), id); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

func uintParam(raw string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}
