package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"todo-planner/internal/errs"
)

var errBadRequest = errors.New("malformed request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// writeError maps err onto a status code and a Laravel-style error body.
func (h *handlers) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	if v, ok := errs.AsValidation(err); ok {
		h.deps.Log.WithField("path", c.Request.URL.Path).Debugf("invalid input: %s", v.Join())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": summary(v), "errors": v.Fields})
		return
	}

	switch {
	case errors.Is(err, errs.ErrCategoryExists):
		msg := "The name has already been taken."
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": msg, "errors": gin.H{"name": []string{msg}}})
	case errors.Is(err, errs.ErrConflict):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": sentence(err.Error())})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": sentence(err.Error())})
	case errors.Is(err, errs.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthenticated."})
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"message": sentence(err.Error())})
	default:
		h.deps.Log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}

func summary(v *errs.ValidationError) string {
	n := 0
	for _, msgs := range v.Fields {
		n += len(msgs)
	}
	first := v.First()
	switch n {
	case 0, 1:
		return first
	case 2:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, n-1)
	}
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
