package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/thriftmart/internal/webserver"
)

const (
	defaultOprLogLimit = 100
	maxOprLogLimit     = 1000
)

func (h *Handler) registerSystemRoutes(s *webserver.AdminServer) {
	s.GET("/api/system/oprlog", h.listOprLog)
}

// listOprLog returns the most recent operations, newest first.
func (h *Handler) listOprLog(c echo.Context) error {
	if h.oprlog == nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Operation log is disabled", nil)
	}
	limit := defaultOprLogLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxOprLogLimit {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 1000", nil)
		}
		limit = n
	}
	logs, err := h.oprlog.List(c.Request().Context(), limit)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, logs)
}
