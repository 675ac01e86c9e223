package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/service/schedule"
)

func createEventHandler(svc *schedule.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req schedule.EventInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if strings.TrimSpace(req.OwnerID) == "" {
			req.OwnerID = currentUserID(c)
		}
		ev, err := svc.CreateEvent(c.Request().Context(), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, ev)
	}
}

func listEventsHandler(svc *schedule.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner := strings.TrimSpace(c.QueryParam("owner_id"))
		if owner == "" {
			owner = currentUserID(c)
		}
		var from, to time.Time
		var err error
		if v := c.QueryParam("from"); v != "" {
			if from, err = parseWhen(v); err != nil {
				return badRequest(c, "from must be RFC 3339 or YYYY-MM-DD")
			}
		}
		if v := c.QueryParam("to"); v != "" {
			if to, err = parseWhen(v); err != nil {
				return badRequest(c, "to must be RFC 3339 or YYYY-MM-DD")
			}
		}
		rows, err := svc.ListEvents(c.Request().Context(), owner, from, to)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func nextOpeningHandler(svc *schedule.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req schedule.OpeningInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if strings.TrimSpace(req.OwnerID) == "" {
			req.OwnerID = currentUserID(c)
		}
		slots, err := svc.NextOpenings(c.Request().Context(), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"slot": slots[0], "slots": slots})
	}
}
