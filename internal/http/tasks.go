package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/service/tasks"
)

func createTaskHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req tasks.CreateInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if strings.TrimSpace(req.OwnerID) == "" {
			req.OwnerID = currentUserID(c)
		}
		t, err := svc.Create(c.Request().Context(), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, t)
	}
}

func listTasksHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pageParams(c, 50, 500)
		f := model.TaskFilter{
			OwnerID:    strings.TrimSpace(c.QueryParam("owner_id")),
			CustomerID: strings.TrimSpace(c.QueryParam("customer_id")),
			Limit:      limit,
			Offset:     offset,
		}
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			st := model.TaskStatus(raw)
			if !st.Valid() {
				return badRequest(c, "invalid status")
			}
			f.Status = st
		}
		rows, err := svc.List(c.Request().Context(), f)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}

func getTaskHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

// taskAction adapts the body-less transitions.
func taskAction(op func(ctx context.Context, id string) (*model.WorkflowTask, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := op(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

func startTaskHandler(svc *tasks.Service) echo.HandlerFunc    { return taskAction(svc.Start) }
func completeTaskHandler(svc *tasks.Service) echo.HandlerFunc { return taskAction(svc.Complete) }
func unsnoozeTaskHandler(svc *tasks.Service) echo.HandlerFunc { return taskAction(svc.Unsnooze) }

type skipReq struct {
	Reason string `json:"reason"`
}

func skipTaskHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req skipReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		t, err := svc.Skip(c.Request().Context(), c.Param("id"), req.Reason)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

type snoozeReq struct {
	Until string `json:"until"` // RFC 3339 or YYYY-MM-DD
}

func snoozeTaskHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req snoozeReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		until, err := parseWhen(req.Until)
		if err != nil {
			return badRequest(c, "until must be RFC 3339 or YYYY-MM-DD")
		}
		t, err := svc.Snooze(c.Request().Context(), c.Param("id"), until)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}

type reassignReq struct {
	OwnerID string `json:"owner_id"`
}

func reassignTaskHandler(svc *tasks.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reassignReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		t, err := svc.Reassign(c.Request().Context(), c.Param("id"), req.OwnerID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, t)
	}
}
