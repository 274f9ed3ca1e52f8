package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0x0BSoD/newsPipeline/internal/lease"
	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
)

type runResponse struct {
	Stage   string `json:"stage"`
	Count   int    `json:"count"`
	Fetched int    `json:"fetched,omitempty"`
	Error   string `json:"error,omitempty"`
}

// runStage triggers one stage synchronously. A failed stage still answers 200
// with a zero count, matching what the scheduled run does with it.
func (s *Server) runStage(stage string) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := s.stages.RunStage(c.Request().Context(), stage)
		if errors.Is(err, lease.ErrHeld) || errors.Is(err, pipeline.ErrUnknownStage) {
			return mapError(err)
		}

		if stage == pipeline.StagePipeline {
			return c.JSON(http.StatusOK, report)
		}

		resp := runResponse{Stage: stage}
		switch stage {
		case pipeline.StageCollector:
			resp.Count, resp.Fetched = report.Inserted, report.Fetched
		case pipeline.StageSummarizer:
			resp.Count = report.Summarized
		case pipeline.StageTagger:
			resp.Count = report.Tagged
		case pipeline.StagePublisher:
			resp.Count = report.Published
		}
		if err != nil {
			resp.Error = err.Error()
		}

		return c.JSON(http.StatusOK, resp)
	}
}
