package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"news_briefing/internal/model"
	"news_briefing/internal/storage"
)

const (
	summaryLogsLimit    = 100
	summaryLogsMaxLimit = 1000
	summaryLogsKeepDays = 30
)

type summaryLogsResponse struct {
	Stats model.SummaryStats `json:"stats"`
	Logs  []model.SummaryLog `json:"logs"`
}

func (s *Server) listSummaryLogs(c echo.Context) error {
	limit := summaryLogsLimit
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil || limit < 1 || limit > summaryLogsMaxLimit {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid limit parameter (1-%d)", summaryLogsMaxLimit))
	}

	ctx := c.Request().Context()
	logs, err := s.store.ListSummaryLogs(ctx, storage.SummaryLogFilter{ArticleID: c.QueryParam("newsId"), Limit: limit})
	if err != nil {
		return err
	}
	stats, err := s.store.SummaryStats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryLogsResponse{Stats: stats, Logs: logs})
}

type deleteLogsResponse struct {
	Deleted int64  `json:"deleted"`
	Message string `json:"message"`
}

func (s *Server) deleteSummaryLogs(c echo.Context) error {
	days := summaryLogsKeepDays
	if err := echo.QueryParamsBinder(c).Int("days", &days).BindError(); err != nil || days < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid days parameter")
	}

	before := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := s.store.DeleteSummaryLogsBefore(c.Request().Context(), before)
	if err != nil {
		return err
	}
	s.log.Info("summary logs cleaned", "deleted", deleted, "days", days)
	return c.JSON(http.StatusOK, deleteLogsResponse{
		Deleted: deleted,
		Message: fmt.Sprintf("deleted %d logs older than %d days", deleted, days),
	})
}
