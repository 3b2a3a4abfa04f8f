package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
)

// ErrorHandler is the terminal error writer: every failure raised by a
// handler, an unmatched route or a panic ends up as a {name, message}
// JSON body with the mapped status code.
type ErrorHandler struct {
	mu   sync.Mutex
	last apperrors.Record
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{last: apperrors.Translate(apperrors.Internal(nil))}
}

// HandleErrors writes err and aborts the chain.
func (h *ErrorHandler) HandleErrors(c *gin.Context, err error) {
	rec := apperrors.Translate(err)
	h.remember(rec)
	if rec.StatusCode >= http.StatusInternalServerError {
		logger.WithTag("HTTP").WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(rec.StatusCode, rec)
}

// RouteNotExist answers requests no route matched.
func (h *ErrorHandler) RouteNotExist(c *gin.Context) {
	rec := apperrors.Record{
		Name:       "RouteNotExist",
		Message:    fmt.Sprintf("%s %s doesn't exist!", c.Request.Method, c.Request.URL.RequestURI()),
		StatusCode: http.StatusNotFound,
	}
	h.remember(rec)
	c.AbortWithStatusJSON(rec.StatusCode, rec)
}

// Middleware writes the last error attached with c.Error when the handler
// did not write a response itself.
func (h *ErrorHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		h.HandleErrors(c, c.Errors.Last().Err)
	}
}

// Recovery turns panics into InternalError responses.
func (h *ErrorHandler) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.HandleErrors(c, fmt.Errorf("panic: %v", recovered))
	})
}

// Last returns the most recently written error record.
func (h *ErrorHandler) Last() apperrors.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *ErrorHandler) remember(rec apperrors.Record) {
	h.mu.Lock()
	h.last = rec
	h.mu.Unlock()
}
