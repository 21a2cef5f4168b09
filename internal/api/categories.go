package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"news_briefing/internal/model"
	"news_briefing/internal/validate"
)

type categoryRequest struct {
	Name        string `json:"name"`
	SearchQuery string `json:"searchQuery"`
}

func (r categoryRequest) validated() (validate.Category, error) {
	in := validate.Category{
		Name:        strings.TrimSpace(r.Name),
		SearchQuery: strings.TrimSpace(r.SearchQuery),
	}
	return in, validate.ValidateCategory(in)
}

type categoriesResponse struct {
	Data  []model.Category `json:"data"`
	Total int              `json:"total"`
}

func (s *Server) listCategories(c echo.Context) error {
	categories, err := s.store.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categoriesResponse{Data: categories, Total: len(categories)})
}

func (s *Server) getCategory(c echo.Context) error {
	cat, err := s.store.GetCategory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) createCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in, err := req.validated()
	if err != nil {
		return mapError(err)
	}

	cat := &model.Category{Name: in.Name, SearchQuery: in.SearchQuery}
	if err := s.store.CreateCategory(c.Request().Context(), cat); err != nil {
		return mapError(err)
	}
	s.log.Info("category created", "category_id", cat.ID, "name", cat.Name)
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) updateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	in, err := req.validated()
	if err != nil {
		return mapError(err)
	}

	cat := &model.Category{ID: c.Param("id"), Name: in.Name, SearchQuery: in.SearchQuery}
	if err := s.store.UpdateCategory(c.Request().Context(), cat); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) deleteCategory(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.DeleteCategory(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	s.log.Info("category deleted", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}
