package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/http/middleware"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/metrics"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// NewServer mounts the API on echo. rds may be nil to disable rate limiting.
func NewServer(cfg config.Config, a *app.App, rds *redis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(echoLevel(cfg.App.LogLevel))
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	authMW := middleware.APIKeyMiddleware(a.Users)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:      rds,
		DefaultRPS: cfg.RateLimit.RPS,
		Burst:      cfg.RateLimit.Burst,
		Window:     time.Second,
	})

	api := e.Group("/api", authMW, rlMW)

	api.POST("/customers", createCustomerHandler(a.Accounts))
	api.GET("/customers", listCustomersHandler(a.Accounts))
	api.GET("/customers/:id", getCustomerHandler(a.Accounts))
	api.PATCH("/customers/:id/metrics", updateMetricsHandler(a.Accounts))
	api.POST("/customers/:id/score", rescoreHandler(a.Accounts))
	api.GET("/customers/:id/pricing", pricingHandler(a.Accounts))
	api.POST("/customers/:id/signals", recordSignalHandler(a.Accounts))
	api.GET("/customers/:id/contracts", listContractsHandler(a.Accounts))
	api.POST("/customers/:id/contracts", addContractHandler(a.Accounts))
	api.GET("/renewals/upcoming", upcomingRenewalsHandler(a.Accounts))

	api.POST("/tasks", createTaskHandler(a.Tasks))
	api.GET("/tasks", listTasksHandler(a.Tasks))
	api.GET("/tasks/:id", getTaskHandler(a.Tasks))
	api.POST("/tasks/:id/start", startTaskHandler(a.Tasks))
	api.POST("/tasks/:id/complete", completeTaskHandler(a.Tasks))
	api.POST("/tasks/:id/skip", skipTaskHandler(a.Tasks))
	api.POST("/tasks/:id/snooze", snoozeTaskHandler(a.Tasks))
	api.POST("/tasks/:id/unsnooze", unsnoozeTaskHandler(a.Tasks))
	api.POST("/tasks/:id/reassign", reassignTaskHandler(a.Tasks))

	api.POST("/calendar/events", createEventHandler(a.Schedule))
	api.GET("/calendar/events", listEventsHandler(a.Schedule))
	api.POST("/calendar/next-opening", nextOpeningHandler(a.Schedule))

	api.GET("/workflows", listWorkflowsHandler(a.Workflows))
	api.POST("/workflows/:workflowId/executions", startExecutionHandler(a.Workflows))
	api.GET("/executions/:id", getExecutionHandler(a.Workflows))
	api.POST("/executions/:id/advance", advanceExecutionHandler(a.Workflows))
	api.POST("/executions/:id/abandon", abandonExecutionHandler(a.Workflows))
	api.GET("/executions/:id/slide", renderSlideHandler(a.Workflows))

	api.GET("/founder/tasks", listFounderTasksHandler(a.Founder))
	api.POST("/founder/tasks", addFounderTaskHandler(a.Founder))
	api.POST("/founder/tasks/:id/complete", completeFounderTaskHandler(a.Founder))
	api.GET("/founder/urgent", urgentFounderTasksHandler(a.Founder))
	api.GET("/founder/review", weeklyReviewHandler(a.Founder))
	api.POST("/founder/escalations", escalationCheckHandler(a.Founder))

	api.GET("/reports/scores", scoreHistoryHandler(a.Snapshots))

	return &Server{e: e}
}

func echoLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

// ServeHTTP lets tests drive the router with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	logger.Named("http").Info("listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
