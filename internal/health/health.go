package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"polyglot-service/internal/clients"
)

// ProviderStatusSource reports per-tier provider health. Implemented by
// the translation orchestrator.
type ProviderStatusSource interface {
	GetProviderHealth() map[clients.ProviderID]*clients.ProviderHealth
}

// CachePinger verifies the shared cache backend, when one is configured.
type CachePinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker manages health check state and metrics
type HealthChecker struct {
	db        *gorm.DB
	providers ProviderStatusSource
	cache     CachePinger
	ready     atomic.Bool
	startTime time.Time
	version   string
}

// Prometheus metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_service_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_service_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	dbConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "polyglot_service_db_connection_status",
		Help: "Database connection status (1 = connected, 0 = disconnected)",
	})

	serviceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "polyglot_service_info",
			Help: "Service information",
		},
		[]string{"version"},
	)

	translationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_service_translation_requests_total",
			Help: "Total number of translation requests by serving provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	broadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_service_broadcasts_total",
			Help: "Total number of SOS broadcast fan-outs",
		},
		[]string{"status"},
	)

	broadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_service_broadcast_deliveries_total",
			Help: "Per-recipient broadcast delivery outcomes",
		},
		[]string{"status"},
	)
)

// NewHealthChecker creates a new health checker instance. providers and
// cache may be nil when the corresponding subsystem is disabled.
func NewHealthChecker(db *gorm.DB, providers ProviderStatusSource, cache CachePinger, version string) *HealthChecker {
	hc := &HealthChecker{
		db:        db,
		providers: providers,
		cache:     cache,
		startTime: time.Now(),
		version:   version,
	}

	serviceInfo.WithLabelValues(version).Set(1)

	return hc
}

// SetReady marks the service as ready to receive traffic
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the service is ready
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// CheckDatabase verifies database connectivity
func (h *HealthChecker) CheckDatabase() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		dbConnectionStatus.Set(0)
		return err
	}

	if err := sqlDB.Ping(); err != nil {
		dbConnectionStatus.Set(0)
		return err
	}

	dbConnectionStatus.Set(1)
	return nil
}

// LivezHandler handles liveness probe requests
// Returns 200 if the process is running (simple check)
func (h *HealthChecker) LivezHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// ReadyzHandler handles readiness probe requests
// Returns 200 only if the service can handle traffic (DB connected)
func (h *HealthChecker) ReadyzHandler(c *gin.Context) {
	if !h.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "service not initialized",
		})
		return
	}

	if err := h.CheckDatabase(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"reason": "database unavailable",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// HealthHandler reports overall service health. The service is degraded,
// not unhealthy, when no provider tier is currently passing: cached and
// same-language translations still work.
func (h *HealthChecker) HealthHandler(c *gin.Context) {
	uptime := time.Since(h.startTime)
	status := "healthy"

	dbStatus := "connected"
	if err := h.CheckDatabase(); err != nil {
		dbStatus = "disconnected"
		status = "degraded"
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "connected"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		if err := h.cache.HealthCheck(ctx); err != nil {
			cacheStatus = "disconnected"
			status = "degraded"
		}
		cancel()
	}

	providerStatus := gin.H{}
	if h.providers != nil {
		anyHealthy := false
		for id, ph := range h.providers.GetProviderHealth() {
			providerStatus[string(id)] = ph.Healthy
			if ph.Healthy {
				anyHealthy = true
			}
		}
		if !anyHealthy {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"service": "polyglot-service",
		"version": h.version,
		"uptime":  uptime.String(),
		"database": gin.H{
			"status": dbStatus,
		},
		"cache": gin.H{
			"status": cacheStatus,
		},
		"providers": providerStatus,
	})
}

// MetricsHandler returns Prometheus metrics handler
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		statusStr := http.StatusText(status)
		if statusStr == "" {
			statusStr = "unknown"
		}

		// Skip metrics for health/metrics endpoints to avoid noise
		if path != "/livez" && path != "/readyz" && path != "/metrics" && path != "/health" {
			httpRequestsTotal.WithLabelValues(c.Request.Method, path, statusStr).Inc()
			httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
		}
	}
}

// RecordTranslation records one translation request outcome. provider is
// empty for requests no provider served (cache hits, failures).
func RecordTranslation(provider, outcome string) {
	if provider == "" {
		provider = "none"
	}
	translationRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordBroadcast records one completed or rejected fan-out
func RecordBroadcast(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	broadcastsTotal.WithLabelValues(status).Inc()
}

// RecordBroadcastDeliveries folds one report's per-recipient outcomes
// into the delivery counters
func RecordBroadcastDeliveries(sent, dmFailed, translationFallback, skipped int) {
	if sent > 0 {
		broadcastDeliveries.WithLabelValues("sent").Add(float64(sent))
	}
	if dmFailed > 0 {
		broadcastDeliveries.WithLabelValues("dm_failed").Add(float64(dmFailed))
	}
	if translationFallback > 0 {
		broadcastDeliveries.WithLabelValues("translation_fallback").Add(float64(translationFallback))
	}
	if skipped > 0 {
		broadcastDeliveries.WithLabelValues("skipped").Add(float64(skipped))
	}
}
