package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/service/workflows"
)

func listWorkflowsHandler(svc *workflows.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		wfs := svc.Workflows()
		return c.JSON(http.StatusOK, map[string]any{"count": len(wfs), "results": wfs})
	}
}

type startExecutionReq struct {
	CustomerID string `json:"customer_id"`
	OwnerID    string `json:"owner_id"`
}

func startExecutionHandler(svc *workflows.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req startExecutionReq
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if strings.TrimSpace(req.CustomerID) == "" {
			return badRequest(c, "customer_id is required")
		}
		owner := strings.TrimSpace(req.OwnerID)
		if owner == "" {
			owner = currentUserID(c)
		}
		ex, err := svc.Start(c.Request().Context(), req.CustomerID, c.Param("workflowId"), owner)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, ex)
	}
}

func executionAction(op func(ctx context.Context, id string) (*model.WorkflowExecution, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		ex, err := op(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, ex)
	}
}

func getExecutionHandler(svc *workflows.Service) echo.HandlerFunc     { return executionAction(svc.Get) }
func advanceExecutionHandler(svc *workflows.Service) echo.HandlerFunc { return executionAction(svc.Advance) }
func abandonExecutionHandler(svc *workflows.Service) echo.HandlerFunc { return executionAction(svc.Abandon) }

func renderSlideHandler(svc *workflows.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		sl, err := svc.RenderCurrent(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, sl)
	}
}
