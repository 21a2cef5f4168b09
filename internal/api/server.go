// Package api exposes the administrative HTTP surface.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"news_briefing/internal/metrics"
	"news_briefing/internal/model"
	"news_briefing/internal/pipeline"
	"news_briefing/internal/scheduler"
	"news_briefing/internal/storage"
	"news_briefing/internal/validate"
)

// Scheduler triggers runs and reconfigures the recurring trigger.
type Scheduler interface {
	RunNow(ctx context.Context) (*model.RunLog, error)
	UpdateSchedule(ctx context.Context, expr string, enabled bool) error
}

// BackfillFunc summarizes stored articles that have no summary.
type BackfillFunc func(ctx context.Context, limit int) (*pipeline.BackfillResult, error)

// Server holds the handler dependencies.
type Server struct {
	store    storage.Storage
	sched    Scheduler
	backfill BackfillFunc
	log      *slog.Logger
}

// New creates a Server.
func New(store storage.Storage, sched Scheduler, backfill BackfillFunc, log *slog.Logger) *Server {
	return &Server{store: store, sched: sched, backfill: backfill, log: log}
}

// Router builds the echo instance with every route registered.
func (s *Server) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/metrics"
		},
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug("request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))
	e.Use(middleware.Recover())

	news := e.Group("/api/news")
	news.GET("", s.listArticles)
	news.POST("/fetch", s.fetchNews)
	news.POST("/summarize", s.summarize)
	news.GET("/:id", s.getArticle)
	news.DELETE("/:id", s.deleteArticle)

	cats := e.Group("/api/categories")
	cats.GET("", s.listCategories)
	cats.POST("", s.createCategory)
	cats.GET("/:id", s.getCategory)
	cats.PUT("/:id", s.updateCategory)
	cats.DELETE("/:id", s.deleteCategory)

	admin := e.Group("/api/admin")
	admin.GET("/settings", s.getSettings)
	admin.POST("/settings", s.saveSettings)
	admin.GET("/fetch-logs", s.listRunLogs)
	admin.GET("/search-logs", s.listSearchLogs)

	e.GET("/api/logs/gpt", s.listSummaryLogs)
	e.DELETE("/api/logs/gpt", s.deleteSummaryLogs)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	return e
}

type errorResponse struct {
	Error string `json:"error"`
}

type pageResponse[T any] struct {
	Data       []T              `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// handleError renders every failure as {"error": "..."}.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	} else {
		s.log.Error("request failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.log.Error("write error response", "error", err)
	}
}

// mapError converts domain errors to HTTP errors. Unknown errors pass
// through and are rendered as 500.
func mapError(err error) error {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDefaultCategory):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrCategoryLimit):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return err
	}
}

// pageParams reads page (default 1) and limit (default def) and checks
// 1 <= page and 1 <= limit <= maxLimit.
func pageParams(c echo.Context, def, maxLimit int) (page, limit int, err error) {
	page, limit = 1, def
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("limit", &limit).BindError(); err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page or limit parameter")
	}
	if page < 1 || limit < 1 || limit > maxLimit {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid page or limit parameter")
	}
	return page, limit, nil
}
