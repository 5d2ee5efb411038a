package ops

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

// Status is the read-only summary of a running visualization
type Status struct {
	HandleID     string                         `json:"handleId"`
	State        domainservices.SimulationState `json:"state"`
	Alpha        float64                        `json:"alpha"`
	Nodes        int                            `json:"nodes"`
	Edges        int                            `json:"edges"`
	DroppedEdges int                            `json:"droppedEdges"`
}

// StatusFunc reports the current status; ok is false while nothing is mounted
type StatusFunc func() (status Status, ok bool)

// Router serves health, readiness, status and metrics for a long-running
// visualization process
type Router struct {
	metrics        *observability.Collector
	status         StatusFunc
	allowedOrigins []string
	logger         *zap.Logger
}

// NewRouter creates a new router instance. A nil collector disables
// /metrics.
func NewRouter(metrics *observability.Collector, status StatusFunc, allowedOrigins []string, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		metrics:        metrics,
		status:         status,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(rt.requestLogger)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Get("/status", rt.statusHandler)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	return router
}

func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Debug("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// readinessCheck is ready once a visualization is mounted
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if _, ok := rt.current(); !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) statusHandler(w http.ResponseWriter, req *http.Request) {
	status, ok := rt.current()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no visualization mounted"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) current() (Status, bool) {
	if rt.status == nil {
		return Status{}, false
	}
	return rt.status()
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
