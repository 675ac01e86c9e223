package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/accounts"
)

func createCustomerHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req accounts.CreateCustomerInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		if strings.TrimSpace(req.OwnerID) == "" {
			req.OwnerID = currentUserID(c)
		}
		cu, err := svc.CreateCustomer(c.Request().Context(), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, cu)
	}
}

func listCustomersHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pageParams(c, 50, 500)
		rows, err := svc.ListCustomers(c.Request().Context(), repository.CustomerFilter{
			OwnerID:  strings.TrimSpace(c.QueryParam("owner_id")),
			Tier:     strings.TrimSpace(c.QueryParam("tier")),
			Quadrant: strings.TrimSpace(c.QueryParam("quadrant")),
			Limit:    limit,
			Offset:   offset,
		})
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

func getCustomerHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cu, err := svc.GetCustomer(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func updateMetricsHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req model.CustomerMetrics
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		cu, err := svc.UpdateMetrics(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, cu)
	}
}

func rescoreHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := svc.Rescore(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func pricingHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rec, err := svc.PriceRecommendation(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func recordSignalHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req accounts.SignalInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		sig, err := svc.RecordSignal(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusAccepted, sig)
	}
}

func listContractsHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := svc.ListContracts(c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}

func addContractHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req accounts.ContractInput
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "bad request")
		}
		ct, err := svc.AddContract(c.Request().Context(), c.Param("id"), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusCreated, ct)
	}
}

func upcomingRenewalsHandler(svc *accounts.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		days := 0
		if v := strings.TrimSpace(c.QueryParam("days")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return badRequest(c, "days must be an integer")
			}
			days = n
		}
		rows, err := svc.UpcomingRenewals(c.Request().Context(), days)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(rows), "results": rows})
	}
}
