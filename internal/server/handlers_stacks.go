package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianshen/stackharmony/internal/harmony"
)

type stackRequest struct {
	ToolIDs []int64 `json:"tool_ids" binding:"required"`
}

type compareRequest struct {
	Stacks [][]int64 `json:"stacks" binding:"required"`
}

type harmonyResponse struct {
	ToolIDs []int64 `json:"tool_ids"`
	Score   int     `json:"harmony_score"`
}

type matrixResponse struct {
	ToolIDs []int64             `json:"tool_ids"`
	Pairs   []harmony.PairScore `json:"pairs"`
}

type recommendResponse struct {
	Suggestions []harmony.Suggestion `json:"suggestions"`
}

// bindStack decodes a stack request and enforces MaxStackSize.
func bindStack(c *gin.Context) ([]int64, bool) {
	var req stackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"tool_ids\": [...]}")
		return nil, false
	}
	if len(req.ToolIDs) > MaxStackSize {
		badRequest(c, fmt.Sprintf("at most %d tools per stack", MaxStackSize))
		return nil, false
	}
	return req.ToolIDs, true
}

func (s *Server) harmony(c *gin.Context) {
	ids, ok := bindStack(c)
	if !ok {
		return
	}
	score, err := s.engine.Harmony(c.Request.Context(), ids)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, harmonyResponse{ToolIDs: ids, Score: score})
}

func (s *Server) validate(c *gin.Context) {
	ids, ok := bindStack(c)
	if !ok {
		return
	}
	res, err := s.engine.Validate(c.Request.Context(), ids)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) matrix(c *gin.Context) {
	ids, ok := bindStack(c)
	if !ok {
		return
	}
	pairs, err := s.engine.Bulk(c.Request.Context(), ids)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, matrixResponse{ToolIDs: ids, Pairs: pairs})
}

func (s *Server) recommend(c *gin.Context) {
	var q harmony.RecommendQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(q.ToolIDs) > MaxStackSize {
		badRequest(c, fmt.Sprintf("at most %d tools per stack", MaxStackSize))
		return
	}
	if q.CategoryID < 0 || q.Limit < 0 {
		badRequest(c, "category_id and limit must not be negative")
		return
	}
	out, err := s.engine.Recommend(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recommendResponse{Suggestions: out})
}

func (s *Server) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body must be {\"stacks\": [[...], ...]}")
		return
	}
	if len(req.Stacks) > MaxStacks {
		badRequest(c, fmt.Sprintf("at most %d stacks per comparison", MaxStacks))
		return
	}
	for i, st := range req.Stacks {
		if len(st) > MaxStackSize {
			badRequest(c, fmt.Sprintf("stack %d: at most %d tools per stack", i, MaxStackSize))
			return
		}
	}
	res, err := s.engine.Compare(c.Request.Context(), req.Stacks)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
