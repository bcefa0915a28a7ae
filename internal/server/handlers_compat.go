package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/julianshen/stackharmony/internal/catalog"
)

type pairParams struct {
	A int64 `form:"a" binding:"required,min=1"`
	B int64 `form:"b" binding:"required,min=1"`
}

func (s *Server) getCompatibility(c *gin.Context) {
	var p pairParams
	if err := c.ShouldBindQuery(&p); err != nil {
		badRequest(c, "query parameters a and b must be positive tool ids")
		return
	}
	e, err := s.engine.Lookup(c.Request.Context(), p.A, p.B)
	if err != nil {
		s.fail(c, err)
		return
	}
	if e == nil {
		abort(c, http.StatusNotFound, CodeNotFound, "no compatibility data for this pair")
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) createCompatibility(c *gin.Context) {
	var e catalog.Compatibility
	if err := c.ShouldBindJSON(&e); err != nil {
		badRequest(c, err.Error())
		return
	}
	e.ID = 0
	if err := s.backend.Compatibilities().Create(c.Request.Context(), &e); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) updateCompatibility(c *gin.Context) {
	var e catalog.Compatibility
	if err := c.ShouldBindJSON(&e); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := s.backend.Compatibilities().Update(c.Request.Context(), &e); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
