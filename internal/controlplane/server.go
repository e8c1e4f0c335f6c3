package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/simulator"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/internal/timeline"
	"github.com/subnetlabs/console/pkg/logger"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server provides the HTTP API of the mock control plane.
type Server struct {
	service   *Service
	store     *store.Store
	addr      string
	log       *logger.Logger
	server    *http.Server
	router    chi.Router
	simulator *simulator.Simulator

	// streamInterval is how often /ws/overview pushes a snapshot.
	streamInterval time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		service:        service,
		store:          st,
		addr:           addr,
		log:            log.WithComponent("server"),
		streamInterval: 2 * time.Second,
	}
	s.router = s.routes()
	return s
}

// SetSimulator exposes simulator statistics on /api/v1/simulator.
func (s *Server) SetSimulator(sim *simulator.Simulator) {
	s.simulator = sim
}

// SetStreamInterval changes the overview push period.
func (s *Server) SetStreamInterval(d time.Duration) {
	if d > 0 {
		s.streamInterval = d
	}
}

// Handler returns the routed handler. Used by tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws/overview", s.handleOverviewWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))

		r.Get("/overview", s.getOverview)
		r.Get("/workflows", s.listWorkflows)
		r.Route("/workflows/{id}", func(r chi.Router) {
			r.Get("/", s.getWorkflow)
			r.Get("/activities", s.getWorkflowActivities)
			r.Get("/timeline", s.getWorkflowTimeline)
			r.Get("/timeline.svg", s.getWorkflowTimelineSVG)
		})
		r.Get("/activities", s.listActivities)
		r.Route("/activities/{id}", func(r chi.Router) {
			r.Get("/", s.getActivity)
			r.Get("/attempts", s.getActivityAttempts)
			r.Get("/timeline", s.getActivityTimeline)
		})
		r.Get("/task-queues", s.listTaskQueues)
		r.Get("/workers", s.listWorkers)
		r.Get("/simulator", s.getSimulatorStats)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})
	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
	}

	s.log.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.DB = err.Error()
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}

// writeServiceError maps service sentinels onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, models.ErrInvalidStatus), errors.Is(err, timeline.ErrUnknownUnit):
		WriteError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	default:
		s.log.WithContext(r.Context()).WithError(err).Error("request failed", "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", ErrInvalidRequest)
	}
	return n, nil
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.service.Overview(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ov)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := models.ParseWorkflowStatus(q.Get("status"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	workflows, err := s.service.ListWorkflows(r.Context(), models.WorkflowFilter{Status: status, Query: q.Get("q"), Limit: limit})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, workflows)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.service.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, wf)
}

func (s *Server) getWorkflowActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.service.WorkflowActivities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, activities)
}

func (s *Server) getWorkflowTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.WorkflowTimeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, events)
}

func (s *Server) getWorkflowTimelineSVG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unit := s.service.timeline.DefaultUnit
	if raw := q.Get("unit"); raw != "" {
		u, err := timeline.ParseUnit(raw)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		unit = u
	}
	zoom := s.service.timeline.DefaultZoom
	if raw := q.Get("zoom"); raw != "" {
		z, err := strconv.ParseFloat(raw, 64)
		if err != nil || z <= 0 {
			s.writeServiceError(w, r, fmt.Errorf("%w: zoom must be a positive number", ErrInvalidRequest))
			return
		}
		zoom = z
	}

	var buf bytes.Buffer
	if err := s.service.WriteWorkflowSVG(r.Context(), &buf, chi.URLParam(r, "id"), unit, zoom); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := models.ParseActivityStatus(q.Get("status"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	activities, err := s.service.ListActivities(r.Context(), models.ActivityFilter{
		Status:     status,
		WorkflowID: q.Get("workflow_id"),
		Query:      q.Get("q"),
		Limit:      limit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, activities)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	a, err := s.service.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

func (s *Server) getActivityAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := s.service.ActivityAttempts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, attempts)
}

func (s *Server) getActivityTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.service.ActivityTimeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, events)
}

func (s *Server) listTaskQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.service.ListTaskQueues(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, queues)
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.service.ListWorkers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, workers)
}

func (s *Server) getSimulatorStats(w http.ResponseWriter, r *http.Request) {
	if s.simulator == nil {
		WriteError(w, http.StatusNotFound, ErrCodeNotFound, "simulator not running")
		return
	}
	WriteJSON(w, http.StatusOK, s.simulator.GetStats())
}

// --- Responses ---

// APIError is the JSON body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Error codes.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternalError    = "internal_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

// requestLogger carries chi's request id into the logger context, echoes it
// in the response and logs every request once it completes.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				r = r.WithContext(logger.ContextWithRequestID(r.Context(), reqID))
				w.Header().Set(chimiddleware.RequestIDHeader, reqID)
			}
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithContext(r.Context()).Debug("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
