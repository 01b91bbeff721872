package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/leowmjw/go-keyframe-schedule/pkg/hcl"
	"github.com/leowmjw/go-keyframe-schedule/pkg/loader"
	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
	"github.com/leowmjw/go-keyframe-schedule/pkg/temporal"
)

const (
	// MaxDocumentBytes bounds the size of an uploaded schedule document
	MaxDocumentBytes = 1 << 20

	// MaxSeriesRequestBytes bounds a series request body, which may list
	// up to temporal.MaxSeriesPoints times
	MaxSeriesRequestBytes = 4 << 20
)

// Server represents the HTTP server for the keyframe schedule service
type Server struct {
	logger         *slog.Logger
	temporalClient client.Client
	store          temporal.ScheduleStore
	metrics        *Metrics
	addr           string
	taskQueue      string
}

// NewServer creates a new HTTP server
func NewServer(logger *slog.Logger, temporalClient client.Client, store temporal.ScheduleStore, addr string) *Server {
	storedSchedules := func() float64 {
		names, err := store.ListSchedules(context.Background())
		if err != nil {
			return 0
		}
		return float64(len(names))
	}

	return &Server{
		logger:         logger,
		temporalClient: temporalClient,
		store:          store,
		metrics:        NewMetrics(storedSchedules),
		addr:           addr,
		taskQueue:      temporal.DefaultTaskQueue,
	}
}

// WithTaskQueue overrides the task queue series workflows are started on
func (s *Server) WithTaskQueue(taskQueue string) *Server {
	if taskQueue != "" {
		s.taskQueue = taskQueue
	}
	return s
}

// Handler builds the routed handler with logging and metrics middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("PUT /schedules/{name}", s.handlePutSchedule)
	mux.HandleFunc("GET /schedules", s.handleListSchedules)
	mux.HandleFunc("GET /schedules/{name}", s.handleGetSchedule)
	mux.HandleFunc("GET /schedules/{name}/sample", s.handleSample)
	mux.HandleFunc("POST /schedules/{name}/series", s.handleSeries)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.loggingMiddleware(s.metrics.Middleware(mux))
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Schedule upload endpoint. The body may be HCL, JSON or YAML.
func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "schedule name is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentBytes)
	contentType, err := hcl.DetectContentType(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	def, err := loader.Decode(contentType, body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.PutSchedule(r.Context(), name, *def); err != nil {
		s.respondError(w, statusForScheduleError(err), err.Error())
		return
	}

	s.logger.Info("Stored schedule", "schedule", name, "format", contentType, "keyframes", len(def.Frames))
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "schedule stored",
		"schedule":  name,
		"keyframes": len(def.Frames),
	})
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("Failed to list schedules", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": names,
	})
}

// ScheduleResponse describes a stored schedule with its keyframes in time order
type ScheduleResponse struct {
	Name          string                 `json:"name"`
	Extrapolation schedule.Extrapolation `json:"extrapolation"`
	Keyframes     []KeyframeResponse     `json:"keyframes"`
}

// KeyframeResponse is one keyframe with its clock label
type KeyframeResponse struct {
	Label string  `json:"label"`
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	sched, ip, ok := s.loadSchedule(w, r, name)
	if !ok {
		return
	}

	response := ScheduleResponse{
		Name:          name,
		Extrapolation: ip.Extrapolation,
		Keyframes:     make([]KeyframeResponse, 0, sched.Len()),
	}
	for _, frame := range sched.Keyframes() {
		response.Keyframes = append(response.Keyframes, KeyframeResponse{
			Label: schedule.FormatClockTime(frame.Time),
			Time:  frame.Time,
			Value: frame.Value,
		})
	}

	s.respondJSON(w, http.StatusOK, response)
}

// SampleResponse is the value of a schedule at one time
type SampleResponse struct {
	Schedule string  `json:"schedule"`
	Time     float64 `json:"time"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
}

// Single sample endpoint, evaluated locally. The time is given either as
// seconds since midnight (?t=) or as a clock label (?at=HH:MM).
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, err := parseQueryTime(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, ip, ok := s.loadSchedule(w, r, name)
	if !ok {
		return
	}

	value, err := ip.Sample(sched, t)
	if err != nil {
		s.respondError(w, statusForScheduleError(err), err.Error())
		return
	}
	s.metrics.observeSamples(name, "single", 1)

	s.respondJSON(w, http.StatusOK, SampleResponse{
		Schedule: name,
		Time:     t,
		Label:    schedule.FormatClockTime(t),
		Value:    value,
	})
}

// Series endpoint. Sampling many times runs through the series workflow.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "schedule name is required")
		return
	}

	var request temporal.SeriesRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxSeriesRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Ensure schedule name matches
	request.ScheduleName = name

	if err := request.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetSchedule(r.Context(), name); err != nil {
		s.respondError(w, statusForScheduleError(err), err.Error())
		return
	}

	s.logger.Info("Processing series request", "schedule", name, "times", len(request.Times), "step", request.Step)

	workflowID := temporal.GenerateSeriesWorkflowID(name)
	workflowRun, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.SeriesWorkflow,
		request,
	)
	if err != nil {
		s.logger.Error("Failed to start series workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start series")
		return
	}

	// Wait for result
	var result *temporal.SeriesResult
	if err := workflowRun.Get(r.Context(), &result); err != nil {
		switch temporal.FailureType(err) {
		case temporal.ScheduleNotFoundErrorType:
			s.respondError(w, http.StatusNotFound, "schedule not found")
		case temporal.InvalidScheduleErrorType:
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("Series workflow failed", "workflowID", workflowID, "error", err)
			s.respondError(w, http.StatusInternalServerError, "series execution failed")
		}
		return
	}
	if result == nil {
		s.respondError(w, http.StatusInternalServerError, "series execution returned no result")
		return
	}
	s.metrics.observeSamples(name, "series", len(result.Points))

	s.logger.Info("Series completed", "schedule", name, "workflowID", workflowID, "points", len(result.Points))
	s.respondJSON(w, http.StatusOK, result)
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// loadSchedule fetches and builds a stored schedule, writing the error
// response itself when that fails
func (s *Server) loadSchedule(w http.ResponseWriter, r *http.Request, name string) (*schedule.Schedule, schedule.Interpolator, bool) {
	def, err := s.store.GetSchedule(r.Context(), name)
	if err != nil {
		s.respondError(w, statusForScheduleError(err), err.Error())
		return nil, schedule.Interpolator{}, false
	}

	sched, ip, err := def.Build()
	if err != nil {
		s.logger.Error("Stored schedule does not build", "schedule", name, "error", err)
		s.respondError(w, http.StatusInternalServerError, "stored schedule is invalid")
		return nil, schedule.Interpolator{}, false
	}
	return sched, ip, true
}

func parseQueryTime(r *http.Request) (float64, error) {
	query := r.URL.Query()
	raw, label := query.Get("t"), query.Get("at")

	switch {
	case raw != "" && label != "":
		return 0, errors.New("only one of t and at may be given")
	case label != "":
		return schedule.ParseClockTime(label)
	case raw != "":
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid t %q: not a number", raw)
		}
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("invalid t %q: must be finite", raw)
		}
		return t, nil
	default:
		return 0, errors.New("a query time is required: t=<seconds> or at=<HH:MM>")
	}
}

// statusForScheduleError maps registry and schedule errors onto HTTP codes
func statusForScheduleError(err error) int {
	switch {
	case errors.Is(err, temporal.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrInvalidTimeFormat),
		errors.Is(err, schedule.ErrDuplicateTime),
		errors.Is(err, schedule.ErrInsufficientKeyframes),
		errors.Is(err, schedule.ErrNonFiniteTime),
		errors.Is(err, schedule.ErrUnknownExtrapolation),
		errors.Is(err, schedule.ErrDegenerateSchedule):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// Middleware for request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"user_agent", r.UserAgent(),
		)
	})
}

// Response helpers
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("HTTP error response", "status", status, "message", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
