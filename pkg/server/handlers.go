package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/japaniel/primeword/pkg/anagram"
)

// ErrorResponse is the body of every non-200 API answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

const codeInvalidWord = "INVALID_WORD"

// handleCheck handles GET /api/check?word=.
func (s *Server) handleCheck(c *gin.Context) {
	word := c.Query("word")
	if word == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No word provided."})
		return
	}

	res, err := s.querier.Query(c.Request.Context(), word)
	if err != nil {
		var verr *anagram.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: verr.Reason, Code: codeInvalidWord})
			return
		}
		s.logger.Error("query failed",
			"request_id", c.GetString(requestIDKey),
			"word", word,
			"error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.Ready != nil && !s.opts.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
