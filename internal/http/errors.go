package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/calendar"
	"github.com/renubu/renubu/internal/http/middleware"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/service/founder"
	"github.com/renubu/renubu/internal/service/schedule"
	"github.com/renubu/renubu/internal/service/tasks"
	"github.com/renubu/renubu/internal/service/workflows"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, tasks.ErrNotFound),
		errors.Is(err, founder.ErrNotFound),
		errors.Is(err, workflows.ErrNotFound),
		errors.Is(err, workflows.ErrWorkflowNotFound),
		errors.Is(err, workflows.ErrCustomerNotFound),
		errors.Is(err, calendar.ErrNoOpening):
		return http.StatusNotFound
	case errors.Is(err, accounts.ErrValidation),
		errors.Is(err, tasks.ErrValidation),
		errors.Is(err, tasks.ErrSnoozeInPast),
		errors.Is(err, tasks.ErrSnoozeTooFar),
		errors.Is(err, tasks.ErrSnoozeLimitReached),
		errors.Is(err, founder.ErrValidation),
		errors.Is(err, schedule.ErrValidation),
		errors.Is(err, calendar.ErrInvalidDuration),
		errors.Is(err, calendar.ErrInvalidHours):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrInvalidTransition),
		errors.Is(err, tasks.ErrConflict),
		errors.Is(err, workflows.ErrInvalidTransition),
		errors.Is(err, founder.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal errors are logged and not leaked.
func fail(c echo.Context, err error) error {
	st := statusFor(err)
	if st == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(st, map[string]string{"error": "internal error"})
	}
	return c.JSON(st, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func currentUserID(c echo.Context) string {
	if u, ok := middleware.UserFromCtx(c); ok {
		return u.ID
	}
	return ""
}

// pageParams reads limit/offset with limit capped at maxLimit.
func pageParams(c echo.Context, def, maxLimit int) (int, int) {
	limit, offset := def, 0
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 && n <= maxLimit {
		limit = n
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n >= 0 {
		offset = n
	}
	return limit, offset
}

// parseWhen accepts RFC 3339 timestamps or YYYY-MM-DD dates (midnight UTC).
func parseWhen(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
