package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"news_briefing/internal/model"
	"news_briefing/internal/pipeline"
	"news_briefing/internal/storage"
)

const (
	articlesPageSize = 10
	articlesMaxLimit = 50
	runErrorsLimit   = 10
)

type totals struct {
	Fetched    int `json:"fetched"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Summarized int `json:"summarized"`
}

type fetchResponse struct {
	RunID      string                 `json:"runId"`
	Status     model.Status           `json:"status"`
	DurationMS int64                  `json:"durationMs"`
	Total      totals                 `json:"total"`
	Categories []model.CategoryResult `json:"categories"`
	Errors     []string               `json:"errors"`
}

func (s *Server) fetchNews(c echo.Context) error {
	entry, err := s.sched.RunNow(c.Request().Context())
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, fetchResponse{
		RunID:      entry.ID,
		Status:     entry.Status,
		DurationMS: entry.DurationMS,
		Total: totals{
			Fetched:    entry.TotalFetched,
			Saved:      entry.TotalSaved,
			Duplicates: entry.TotalDuplicates,
			Summarized: entry.TotalSummarized,
		},
		Categories: entry.Categories,
		Errors:     pipeline.Errors(entry.Categories, runErrorsLimit),
	})
}

func (s *Server) listArticles(c echo.Context) error {
	page, limit, err := pageParams(c, articlesPageSize, articlesMaxLimit)
	if err != nil {
		return err
	}

	articles, total, err := s.store.ListArticles(c.Request().Context(), storage.ArticleFilter{
		CategoryID: c.QueryParam("categoryId"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pageResponse[model.Article]{
		Data:       articles,
		Pagination: model.NewPagination(page, limit, total, len(articles)),
	})
}

func (s *Server) getArticle(c echo.Context) error {
	a, err := s.store.GetArticle(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) deleteArticle(c echo.Context) error {
	if err := s.store.DeleteArticle(c.Request().Context(), c.Param("id")); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) summarize(c echo.Context) error {
	res, err := s.backfill(c.Request().Context(), pipeline.BackfillLimit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}
