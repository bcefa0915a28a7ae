package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/julianshen/stackharmony/internal/catalog"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeDuplicate        = "DUPLICATE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: code})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, CodeInvalidInput, msg)
}

// fail maps err onto a status via the catalog sentinels. Anything
// unclassified is a store or engine failure.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		abort(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, catalog.ErrDuplicate):
		abort(c, http.StatusConflict, CodeDuplicate, err.Error())
	case errors.Is(err, catalog.ErrInvalid):
		abort(c, http.StatusBadRequest, CodeInvalidInput, err.Error())
	default:
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		abort(c, http.StatusInternalServerError, CodeStoreUnavailable, "backing store unavailable")
	}
}
