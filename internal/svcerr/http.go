package svcerr

import (
	"net/http"

	"classboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// HTTPStatus maps an error to its fixed status class.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WireReason is the short tag sent to the client. Internal detail never leaves
// the process.
func WireReason(err error) string {
	e, ok := As(err)
	if !ok {
		return ReasonInternal
	}
	switch e.Kind {
	case KindInternal, KindTransient:
		return ReasonInternal
	}
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Reason
}

// Abort writes err as a JSON error response and stops the gin chain.
func Abort(c *gin.Context, err error) {
	log := logger.FromGin(c)
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "kind", KindOf(err).String(), "err", err)
		_ = c.Error(err)
	} else {
		log.Debug("request rejected", "kind", KindOf(err).String(), "reason", WireReason(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": WireReason(err)})
}
