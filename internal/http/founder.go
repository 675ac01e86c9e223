package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/service/founder"
)

func listFounderTasksHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := c.QueryParam("status")
		rows, err := svc.ListByStatus(c.Request().Context(), status)
		if err != nil {
			return fail(c, err)
		}
		if status == "" {
			status = "pending"
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status_filter": status,
			"count":         len(rows),
			"tasks":         rows,
		})
	}
}

func addFounderTaskHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req founder.AddTaskInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		res, err := svc.AddTask(c.Request().Context(), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
}

func completeFounderTaskHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		t, err := svc.CompleteTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"task":    t,
			"message": "✅ Task '" + t.Title + "' marked complete!",
		})
	}
}

func urgentFounderTasksHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		include := true
		if v := c.QueryParam("include_upcoming"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return badRequest(c, "include_upcoming must be a boolean")
			}
			include = b
		}
		sum, err := svc.UrgentTasks(c.Request().Context(), include)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, sum)
	}
}

func weeklyReviewHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rv, err := svc.WeeklyReview(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, rv)
	}
}

func escalationCheckHandler(svc *founder.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rep, err := svc.EscalationCheck(c.Request().Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, rep)
	}
}
