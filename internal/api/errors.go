package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lepinkainen/pricenest/internal/datastore"
	pnerrors "github.com/lepinkainen/pricenest/internal/errors"
	"github.com/lepinkainen/pricenest/internal/importer"
)

func statusFor(err error) int {
	var validation *importer.ValidationError
	var unresolved *importer.UnresolvedRowsError
	var rateLimit *pnerrors.RateLimitError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, datastore.ErrNotFound),
		errors.Is(err, importer.ErrSessionNotFound),
		errors.Is(err, importer.ErrRowNotFound):
		return http.StatusNotFound
	case errors.As(err, &unresolved), errors.Is(err, importer.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &rateLimit):
		return http.StatusTooManyRequests
	case pnerrors.IsUpstreamError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Internal failures are logged
// and reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var unresolved *importer.UnresolvedRowsError
	if errors.As(err, &unresolved) {
		body["unresolvedCount"] = unresolved.Count
	}
	var rateLimit *pnerrors.RateLimitError
	if errors.As(err, &rateLimit) && rateLimit.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(rateLimit.RetryAfter.Seconds())))
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		body["error"] = "internal server error"
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, format string, args ...any) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid %s", name)
		return 0, false
	}
	return id, true
}

func paramIndex(c *gin.Context, name string) (int, bool) {
	index, err := strconv.Atoi(c.Param(name))
	if err != nil || index < 0 {
		badRequest(c, "invalid %s", name)
		return 0, false
	}
	return index, true
}
