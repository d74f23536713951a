package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/academia-hn/enrollment-intake/internal/handlers"
	"github.com/academia-hn/enrollment-intake/internal/intake"
	"github.com/academia-hn/enrollment-intake/internal/ledger"
	"github.com/academia-hn/enrollment-intake/internal/middleware"
)

// NewRouter wires the public endpoints.
// Operational: /health, /ready, /metrics
// Intake: POST /api/enrollments
func NewRouter(svc *intake.Service, store ledger.Store, gatherer prometheus.Gatherer, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ClientKeyMiddleware())
	r.Use(middleware.AccessLogMiddleware(log))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the ledger dependency is reachable (and, for the
	// sheet backend, that its columns still match the contract).
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	handlers.RegisterEnrollmentRoutes(r, svc)

	return r
}
