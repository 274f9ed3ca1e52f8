// Package api exposes the news store and the pipeline stages over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
)

type NewsStorage interface {
	List(ctx context.Context, f storage.Filter) ([]model.News, error)
	ByID(ctx context.Context, id int64) (model.News, error)
	Create(ctx context.Context, n model.News) (model.News, error)
	Update(ctx context.Context, id int64, p storage.Patch) (model.News, error)
	Delete(ctx context.Context, id int64) error
}

type StageRunner interface {
	RunStage(ctx context.Context, stage string) (pipeline.Report, error)
}

type Server struct {
	echo   *echo.Echo
	news   NewsStorage
	stages StageRunner
}

func New(news NewsStorage, stages StageRunner) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, news: news, stages: stages}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/healthz" || path == "/metrics"
		},
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"request_id", v.RequestID,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"request_id", v.RequestID,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/healthz", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/news", s.listNews)
	e.POST("/news", s.createNews)
	e.GET("/news/:id", s.getNews)
	e.PATCH("/news/:id", s.updateNews)
	e.DELETE("/news/:id", s.deleteNews)

	for _, stage := range []string{
		pipeline.StageCollector,
		pipeline.StageSummarizer,
		pipeline.StageTagger,
		pipeline.StagePublisher,
		pipeline.StagePipeline,
	} {
		e.POST("/run-"+stage, s.runStage(stage))
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	slog.Info("http server listening", "addr", addr)

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
