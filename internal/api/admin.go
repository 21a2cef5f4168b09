package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"news_briefing/internal/model"
	"news_briefing/internal/validate"
)

const (
	logsPageSize = 20
	logsMaxLimit = 100
)

type settingsRequest struct {
	Schedule       string `json:"schedule"`
	Enabled        bool   `json:"enabled"`
	RecencyFilter  string `json:"recencyFilter"`
	NewsFilterOff  *bool  `json:"newsFilterOff"`
	ExpansionLimit string `json:"searchTypeExtensionLimit"`
}

func (s *Server) getSettings(c echo.Context) error {
	settings, err := s.store.LoadSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// saveSettings writes the search settings, then the schedule through the
// scheduler. An invalid expression is persisted and reported as 400.
func (s *Server) saveSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in := validate.Settings{
		Schedule:       strings.TrimSpace(req.Schedule),
		RecencyFilter:  strings.TrimSpace(req.RecencyFilter),
		ExpansionLimit: strings.TrimSpace(req.ExpansionLimit),
	}
	if err := validate.ValidateSettings(in); err != nil {
		return mapError(err)
	}

	ctx := c.Request().Context()
	if in.RecencyFilter != "" {
		if err := s.store.SetSetting(ctx, model.SettingRecency, in.RecencyFilter); err != nil {
			return err
		}
	}
	if req.NewsFilterOff != nil {
		if err := s.store.SetSetting(ctx, model.SettingFilterOff, strconv.FormatBool(*req.NewsFilterOff)); err != nil {
			return err
		}
	}
	if in.ExpansionLimit != "" {
		if err := s.store.SetSetting(ctx, model.SettingExpansionLimit, in.ExpansionLimit); err != nil {
			return err
		}
	}

	if err := s.sched.UpdateSchedule(ctx, in.Schedule, req.Enabled); err != nil {
		return mapError(err)
	}
	s.log.Info("settings updated", "schedule", in.Schedule, "enabled", req.Enabled)

	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) listRunLogs(c echo.Context) error {
	page, limit, err := pageParams(c, logsPageSize, logsMaxLimit)
	if err != nil {
		return err
	}
	logs, total, err := s.store.ListRunLogs(c.Request().Context(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse[model.RunLog]{
		Data:       logs,
		Pagination: model.NewPagination(page, limit, total, len(logs)),
	})
}

func (s *Server) listSearchLogs(c echo.Context) error {
	page, limit, err := pageParams(c, logsPageSize, logsMaxLimit)
	if err != nil {
		return err
	}
	logs, total, err := s.store.ListSearchLogs(c.Request().Context(), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse[model.SearchLog]{
		Data:       logs,
		Pagination: model.NewPagination(page, limit, total, len(logs)),
	})
}
