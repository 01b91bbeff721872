package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	sdkMocks "go.temporal.io/sdk/mocks"
	sdktemporal "go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
	"github.com/leowmjw/go-keyframe-schedule/pkg/temporal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lampDefinition() schedule.Definition {
	return schedule.Definition{
		Frames: []schedule.Record{
			{Time: "06:00", Percent: 0},
			{Time: "12:00", Percent: 50},
			{Time: "18:00", Percent: 100},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *sdkMocks.Client, *temporal.MemoryStore) {
	t.Helper()
	mockClient := &sdkMocks.Client{}
	store := temporal.NewMemoryStore()
	require.NoError(t, store.PutSchedule(context.Background(), "lamp", lampDefinition()))
	return NewServer(testLogger(), mockClient, store, ":8080"), mockClient, store
}

func serve(server *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_handleGetSchedule(t *testing.T) {
	server, _, _ := newTestServer(t)

	rr := serve(server, httptest.NewRequest("GET", "/schedules/lamp", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var response ScheduleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "lamp", response.Name)
	assert.Equal(t, schedule.Clamp, response.Extrapolation)
	assert.Equal(t, []KeyframeResponse{
		{Label: "06:00", Time: 21600, Value: 0},
		{Label: "12:00", Time: 43200, Value: 50},
		{Label: "18:00", Time: 64800, Value: 100},
	}, response.Keyframes)
}

func TestServer_handleGetSchedule_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	rr := serve(server, httptest.NewRequest("GET", "/schedules/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_handleListSchedules(t *testing.T) {
	server, _, store := newTestServer(t)
	require.NoError(t, store.PutSchedule(context.Background(), "aquarium", lampDefinition()))

	rr := serve(server, httptest.NewRequest("GET", "/schedules", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, []string{"aquarium", "lamp"}, response["schedules"])
}

func TestServer_handleSample(t *testing.T) {
	server, _, _ := newTestServer(t)

	tests := []struct {
		name     string
		query    string
		status   int
		expected float64
		label    string
	}{
		{name: "seconds", query: "t=32400", status: http.StatusOK, expected: 25, label: "09:00"},
		{name: "clock label", query: "at=07:30", status: http.StatusOK, expected: 12.5, label: "07:30"},
		{name: "before first keyframe", query: "t=200", status: http.StatusOK, expected: 0, label: "00:03:20"},
		{name: "after last keyframe", query: "at=23:59", status: http.StatusOK, expected: 100, label: "23:59"},
		{name: "bad label", query: "at=25:00", status: http.StatusBadRequest},
		{name: "bad number", query: "t=noon", status: http.StatusBadRequest},
		{name: "not finite", query: "t=NaN", status: http.StatusBadRequest},
		{name: "both given", query: "t=1&at=00:00", status: http.StatusBadRequest},
		{name: "none given", query: "", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(server, httptest.NewRequest("GET", "/schedules/lamp/sample?"+tt.query, nil))
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var response SampleResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, "lamp", response.Schedule)
			assert.Equal(t, tt.expected, response.Value)
			assert.Equal(t, tt.label, response.Label)
		})
	}
}

func TestServer_handleSample_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	rr := serve(server, httptest.NewRequest("GET", "/schedules/missing/sample?t=1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_handleSeries(t *testing.T) {
	server, mockClient, _ := newTestServer(t)

	request := temporal.SeriesRequest{Times: []float64{0, 32400}}
	expectedRequest := request
	expectedRequest.ScheduleName = "lamp"

	seriesResult := &temporal.SeriesResult{
		ScheduleName:  "lamp",
		Extrapolation: schedule.Clamp,
		Points:        schedule.Series{{Time: 0, Value: 0}, {Time: 32400, Value: 25}},
	}

	mockWorkflowRun := new(sdkMocks.WorkflowRun)
	mockWorkflowRun.On("Get", mock.Anything, mock.AnythingOfType("**temporal.SeriesResult")).
		Run(func(args mock.Arguments) {
			result := args[1].(**temporal.SeriesResult)
			*result = seriesResult
		}).
		Return(nil)

	mockClient.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(options client.StartWorkflowOptions) bool {
			return strings.HasPrefix(options.ID, temporal.SeriesWorkflowIDPrefix+"lamp-") &&
				options.TaskQueue == temporal.DefaultTaskQueue
		}),
		mock.AnythingOfType("func(internal.Context, temporal.SeriesRequest) (*temporal.SeriesResult, error)"),
		expectedRequest,
	).Return(mockWorkflowRun, nil).Once()

	body, _ := json.Marshal(request)
	req := httptest.NewRequest("POST", "/schedules/lamp/series", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(server, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var response temporal.SeriesResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, *seriesResult, response)

	mockClient.AssertExpectations(t)
	mockWorkflowRun.AssertExpectations(t)
}

func TestServer_handleSeries_TemporalError(t *testing.T) {
	server, mockClient, _ := newTestServer(t)

	mockClient.On("ExecuteWorkflow",
		mock.Anything,
		mock.AnythingOfType("StartWorkflowOptions"),
		mock.Anything,
		mock.AnythingOfType("temporal.SeriesRequest"),
	).Return(nil, errors.New("mock temporal ExecuteWorkflow error")).Once()

	body := `{"start": 0, "end": 3600, "step": 60}`
	rr := serve(server, httptest.NewRequest("POST", "/schedules/lamp/series", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	mockClient.AssertExpectations(t)
}

func TestServer_handleSeries_WorkflowFailure(t *testing.T) {
	notFound := sdktemporal.NewNonRetryableApplicationError("schedule not found", temporal.ScheduleNotFoundErrorType, temporal.ErrScheduleNotFound)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "schedule removed before the run", err: notFound, status: http.StatusNotFound},
		{
			name:   "wrapped activity failure",
			err:    sdktemporal.NewApplicationErrorWithCause("series failed", "wrapError", notFound),
			status: http.StatusNotFound,
		},
		{
			name:   "invalid schedule",
			err:    sdktemporal.NewNonRetryableApplicationError("duplicate keyframe time", temporal.InvalidScheduleErrorType, nil),
			status: http.StatusUnprocessableEntity,
		},
		{name: "worker failure", err: errors.New("workflow timed out"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, mockClient, _ := newTestServer(t)

			mockWorkflowRun := new(sdkMocks.WorkflowRun)
			mockWorkflowRun.On("Get", mock.Anything, mock.Anything).Return(tt.err)
			mockClient.On("ExecuteWorkflow",
				mock.Anything,
				mock.AnythingOfType("StartWorkflowOptions"),
				mock.Anything,
				mock.AnythingOfType("temporal.SeriesRequest"),
			).Return(mockWorkflowRun, nil).Once()

			rr := serve(server, httptest.NewRequest("POST", "/schedules/lamp/series", strings.NewReader(`{"times": [1]}`)))
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())

			mockClient.AssertExpectations(t)
			mockWorkflowRun.AssertExpectations(t)
		})
	}
}

func TestServer_handleSeries_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "invalid JSON", path: "/schedules/lamp/series", body: "invalid json", status: http.StatusBadRequest},
		{name: "no step or times", path: "/schedules/lamp/series", body: `{"start": 0, "end": 10}`, status: http.StatusBadRequest},
		{name: "inverted range", path: "/schedules/lamp/series", body: `{"start": 10, "end": 0, "step": 1}`, status: http.StatusBadRequest},
		{name: "unknown schedule", path: "/schedules/missing/series", body: `{"times": [1]}`, status: http.StatusNotFound},
		{name: "unknown field", path: "/schedules/lamp/series", body: `{"times": [1], "colour": "red"}`, status: http.StatusBadRequest},
		{
			name:   "body too large",
			path:   "/schedules/lamp/series",
			body:   `{"times": [1]` + strings.Repeat(" ", MaxSeriesRequestBytes) + `}`,
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, mockClient, _ := newTestServer(t)

			rr := serve(server, httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())

			// Rejected requests never reach Temporal
			mockClient.AssertNotCalled(t, "ExecuteWorkflow")
		})
	}
}

func TestServer_handleHealth(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var response map[string]string
	err := json.NewDecoder(rr.Body).Decode(&response)
	if err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %s", response["status"])
	}

	if response["time"] == "" {
		t.Error("Expected time field to be populated")
	}
}

func TestServer_metrics(t *testing.T) {
	server, _, _ := newTestServer(t)
	handler := server.Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/schedules/lamp/sample?t=43200", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `keyframe_samples_total{mode="single",schedule="lamp"} 1`)
	assert.Contains(t, body, `keyframe_http_requests_total{method="GET",route="GET /schedules/{name}/sample",status="200"} 1`)
}

func TestServer_metricsCountsStoredSchedules(t *testing.T) {
	server, _, store := newTestServer(t)
	handler := server.Handler()

	scrape := func() string {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		return rr.Body.String()
	}

	// "lamp" was stored before any upload went through the server
	assert.Contains(t, scrape(), "keyframe_schedules_stored 1\n")

	require.NoError(t, store.PutSchedule(context.Background(), "porch", lampDefinition()))
	assert.Contains(t, scrape(), "keyframe_schedules_stored 2\n")
}

func TestServer_loggingMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	server := NewServer(logger, &sdkMocks.Client{}, temporal.NewMemoryStore(), ":8080")

	// Create a test handler
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	})

	// Wrap with logging middleware
	wrapped := server.loggingMiddleware(testHandler)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()

	wrapped.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	if rr.Body.String() != "test response" {
		t.Errorf("Expected 'test response', got %s", rr.Body.String())
	}
}

func TestResponseWrapper(t *testing.T) {
	rr := httptest.NewRecorder()
	wrapper := &responseWrapper{ResponseWriter: rr, statusCode: http.StatusOK}

	wrapper.WriteHeader(http.StatusNotFound)

	if wrapper.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, wrapper.statusCode)
	}

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected response code %d, got %d", http.StatusNotFound, rr.Code)
	}
}
