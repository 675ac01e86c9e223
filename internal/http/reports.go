package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/repository"
)

// scoreHistoryHandler serves a customer's score snapshots from ClickHouse.
func scoreHistoryHandler(chRepo repository.CHSnapshotsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if chRepo == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "score history is disabled"})
		}
		customerID := strings.TrimSpace(c.QueryParam("customer_id"))
		if customerID == "" {
			return badRequest(c, "customer_id is required")
		}
		limit, offset := pageParams(c, 50, 1000)

		rows, err := chRepo.ListByCustomer(c.Request().Context(), customerID, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
