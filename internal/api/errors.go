package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/0x0BSoD/newsPipeline/internal/lease"
	"github.com/0x0BSoD/newsPipeline/internal/model"
	"github.com/0x0BSoD/newsPipeline/internal/pipeline"
	"github.com/0x0BSoD/newsPipeline/internal/storage"
)

func mapError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "news record not found")

	case errors.Is(err, storage.ErrDuplicateURL):
		return echo.NewHTTPError(http.StatusConflict, "news record with this url already exists")

	case errors.Is(err, lease.ErrHeld):
		return echo.NewHTTPError(http.StatusConflict, "stage is already running")

	case errors.Is(err, model.ErrInvalidRecord),
		errors.Is(err, pipeline.ErrUnknownStage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	default:
		slog.Error("unhandled api error", "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
