// Package rpc exposes ControlService, InferenceService, and HealthService
// as JSON-over-HTTP endpoints routed with gorilla/mux, grounded on
// original_source/crates/flywheel-ml-server/src/grpc/{control_service,
// inference_service,health_service}.rs for the method surface and
// pcraw4d-business-verification's mux.Router + middleware-chain +
// http.Server idiom (cmd/railway-server/main.go) for the Go transport
// shape. The three tonic gRPC services become three route groups rather
// than three .proto-generated servers: the RPC transport itself is an
// external-collaborator concern this module doesn't reimplement, but the
// method surface and semantics are ported exactly. The whole router is
// wrapped in otelhttp so every request gets a span and propagates
// W3C trace context, independent of whichever exporter internal/telemetry
// installed.
package rpc

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/flywheel-ml/flywheel/internal/config"
	"github.com/flywheel-ml/flywheel/internal/logging"
	"github.com/flywheel-ml/flywheel/internal/persistence"
	"github.com/flywheel-ml/flywheel/internal/runner"
)

// version is the control plane's reported build version (spec's
// GetHealth.version string).
const version = "0.1.0"

// Engine is the subset of internal/engine.Engine the RPC layer needs:
// reporting the in-process runner count. Declared here (not imported as a concrete type) to avoid an
// import cycle, since internal/engine already depends on internal/runner.
type Engine interface {
	ActiveCount() int
}

// Server bundles every dependency the three RPC services share and wires
// them onto one mux.Router.
type Server struct {
	store    persistence.Store
	engine   Engine
	models   *runner.ModelRegistry
	breakers *runner.BreakerRegistry
	logger   logging.Logger
	cfg      config.ServerConfig

	httpServer *http.Server
	startedAt  time.Time
}

// NewServer builds a Server ready to Start. logger may be nil.
func NewServer(store persistence.Store, eng Engine, models *runner.ModelRegistry, breakers *runner.BreakerRegistry, cfg config.ServerConfig, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Server{store: store, engine: eng, models: models, breakers: breakers, cfg: cfg, logger: logger, startedAt: time.Now()}
}

// Router builds the mux.Router this server answers on, exported for tests
// that want to drive it with httptest without a real listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/metrics", promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	control := r.PathPrefix("/control").Subrouter()
	control.HandleFunc("/pipelines", s.createPipeline).Methods(http.MethodPost)
	control.HandleFunc("/pipelines", s.listPipelines).Methods(http.MethodGet)
	control.HandleFunc("/pipelines/{id}", s.getPipeline).Methods(http.MethodGet)
	control.HandleFunc("/pipelines/{id}", s.updatePipeline).Methods(http.MethodPut)
	control.HandleFunc("/pipelines/{id}", s.deletePipeline).Methods(http.MethodDelete)
	control.HandleFunc("/pipelines/{id}/enable", s.enablePipeline).Methods(http.MethodPost)
	control.HandleFunc("/pipelines/{id}/disable", s.disablePipeline).Methods(http.MethodPost)
	control.HandleFunc("/models", s.registerModel).Methods(http.MethodPost)
	control.HandleFunc("/models", s.listModels).Methods(http.MethodGet)
	control.HandleFunc("/models/{id}", s.getModel).Methods(http.MethodGet)
	control.HandleFunc("/models/{id}", s.unregisterModel).Methods(http.MethodDelete)

	inference := r.PathPrefix("/inference").Subrouter()
	inference.HandleFunc("/predict", s.predict).Methods(http.MethodPost)
	inference.HandleFunc("/predict/batch", s.predictBatch).Methods(http.MethodPost)
	inference.HandleFunc("/predict/stream", s.predictStream).Methods(http.MethodPost)
	inference.HandleFunc("/models/{id}", s.getModelInfo).Methods(http.MethodGet)
	inference.HandleFunc("/models/{id}/health", s.modelHealthCheck).Methods(http.MethodGet)

	health := r.PathPrefix("/health").Subrouter()
	health.HandleFunc("", s.getHealth).Methods(http.MethodGet)
	health.HandleFunc("/pipelines/{id}", s.getPipelineHealth).Methods(http.MethodGet)
	health.HandleFunc("/drift/{pipelineId}/events", s.listDriftEvents).Methods(http.MethodGet)
	health.HandleFunc("/drift/{pipelineId}/{modelId}", s.getDriftStatus).Methods(http.MethodGet)

	return r
}

// loggingMiddleware logs method/path/status/duration for every request,
// the way the teacher's HTTP server wraps every handler uniformly rather
// than leaving access logging to each handler.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("rpc request", map[string]interface{}{
			"method": r.Method, "path": r.URL.Path, "status": rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully within ServerConfig.ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Address + ":" + strconv.Itoa(s.cfg.Port),
		Handler:      otelhttp.NewHandler(s.Router(), "flywheel-rpc"),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", map[string]interface{}{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// uptime reports process uptime for GetHealth, falling back to the
// server's own start time if the OS process handle can't be read.
func (s *Server) uptime() time.Duration {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if createdMs, err := proc.CreateTime(); err == nil {
			return time.Since(time.UnixMilli(createdMs))
		}
	}
	return time.Since(s.startedAt)
}
