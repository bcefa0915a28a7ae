package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/julianshen/stackharmony/internal/catalog"
)

type toolListParams struct {
	Q             string  `form:"q"`
	CategoryID    int64   `form:"category_id" binding:"omitempty,min=0"`
	MinMaturity   float64 `form:"min_maturity" binding:"omitempty,min=0,max=10"`
	MinPopularity float64 `form:"min_popularity" binding:"omitempty,min=0,max=10"`
	Frameworks    string  `form:"frameworks"`
	Languages     string  `form:"languages"`
	Page          int     `form:"page" binding:"omitempty,min=1"`
	PerPage       int     `form:"per_page" binding:"omitempty,min=1"`
}

func (p toolListParams) query() catalog.ToolQuery {
	return catalog.ToolQuery{
		Text:          p.Q,
		CategoryID:    p.CategoryID,
		MinMaturity:   p.MinMaturity,
		MinPopularity: p.MinPopularity,
		Frameworks:    splitList(p.Frameworks),
		Languages:     splitList(p.Languages),
		Page:          p.Page,
		PerPage:       p.PerPage,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "tool id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) listTools(c *gin.Context) {
	var p toolListParams
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, err.Error())
		return
	}
	page, err := s.backend.Tools().Search(c.Request.Context(), p.query())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getTool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := s.backend.Tools().GetByID(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) createTool(c *gin.Context) {
	var t catalog.Tool
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, err.Error())
		return
	}
	t.ID = 0
	if err := s.backend.Tools().Create(c.Request.Context(), &t); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var t catalog.Tool
	if err := c.ShouldBindJSON(&t); err != nil {
		badRequest(c, err.Error())
		return
	}
	t.ID = id
	if err := s.backend.Tools().Update(c.Request.Context(), &t); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.backend.Tools().Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.backend.Categories().Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (s *Server) createCategory(c *gin.Context) {
	var cat catalog.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		badRequest(c, err.Error())
		return
	}
	cat.ID = 0
	if err := s.backend.Categories().CreateCategory(c.Request.Context(), &cat); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) stats(c *gin.Context) {
	st, err := s.backend.Tools().Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
