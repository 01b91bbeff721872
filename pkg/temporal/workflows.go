package temporal

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

const (
	// Workflow IDs
	SeriesWorkflowIDPrefix = "series-"

	// Activity names
	LoadScheduleActivityName   = "load-schedule"
	SampleScheduleActivityName = "sample-schedule"

	// Application error types that are never retried
	ScheduleNotFoundErrorType = "ScheduleNotFound"
	InvalidScheduleErrorType  = "InvalidSchedule"

	// Default values
	DefaultTaskQueue = "keyframe-task-queue"
	MaxSeriesPoints  = schedule.MaxGridPoints
)

// SeriesRequest asks for a schedule to be sampled at many times. Either Times
// lists the query times explicitly or Start, End and Step describe a grid.
type SeriesRequest struct {
	ScheduleName string    `json:"schedule_name"`
	Start        float64   `json:"start,omitempty"`
	End          float64   `json:"end,omitempty"`
	Step         float64   `json:"step,omitempty"`
	Times        []float64 `json:"times,omitempty"`
}

// SeriesResult is the sampled series of a schedule
type SeriesResult struct {
	ScheduleName  string                 `json:"schedule_name"`
	Extrapolation schedule.Extrapolation `json:"extrapolation"`
	Points        schedule.Series        `json:"points"`
}

// Validate checks the request shape before any activity is scheduled
func (r SeriesRequest) Validate() error {
	if r.ScheduleName == "" {
		return errors.New("schedule name is required")
	}

	if len(r.Times) > 0 {
		if len(r.Times) > MaxSeriesPoints {
			return fmt.Errorf("too many query times: %d > %d", len(r.Times), MaxSeriesPoints)
		}
		for i, t := range r.Times {
			if !isFinite(t) {
				return fmt.Errorf("query time %d is not finite", i)
			}
		}
		return nil
	}

	if !isFinite(r.Start) || !isFinite(r.End) || !isFinite(r.Step) {
		return errors.New("start, end and step must be finite")
	}
	if r.Step <= 0 {
		return errors.New("either times or a positive step is required")
	}
	if r.End < r.Start {
		return fmt.Errorf("end %v is before start %v", r.End, r.Start)
	}
	if _, err := schedule.GridSize(r.Start, r.End, r.Step); err != nil {
		return err
	}
	return nil
}

// SeriesWorkflow loads a schedule from the registry and samples it
func SeriesWorkflow(ctx workflow.Context, request SeriesRequest) (*SeriesResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting series workflow", "schedule", request.ScheduleName)

	if err := request.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidScheduleErrorType, err)
	}

	ao := workflow.ActivityOptions{
		ScheduleToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ScheduleNotFoundErrorType, InvalidScheduleErrorType},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: Load the schedule definition from the registry
	var def schedule.Definition
	err := workflow.ExecuteActivity(ctx, LoadScheduleActivityName, request.ScheduleName).Get(ctx, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	// Step 2: Sample it
	var points schedule.Series
	err = workflow.ExecuteActivity(ctx, SampleScheduleActivityName, def, request).Get(ctx, &points)
	if err != nil {
		return nil, fmt.Errorf("failed to sample schedule: %w", err)
	}

	policy, _ := schedule.ParseExtrapolation(string(def.Extrapolation))
	result := &SeriesResult{
		ScheduleName:  request.ScheduleName,
		Extrapolation: policy,
		Points:        points,
	}

	logger.Info("Series workflow completed", "schedule", request.ScheduleName, "points", len(points))
	return result, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FailureType returns the first application error type in err's chain that
// marks a caller fault (ScheduleNotFound or InvalidSchedule), or "". Errors
// returned by a workflow run wrap the activity failure in further
// application errors, so the whole chain is searched.
func FailureType(err error) string {
	for err != nil {
		var appErr *temporal.ApplicationError
		if !errors.As(err, &appErr) {
			return ""
		}
		switch appErr.Type() {
		case ScheduleNotFoundErrorType, InvalidScheduleErrorType:
			return appErr.Type()
		}
		err = appErr.Unwrap()
	}
	return ""
}

// GenerateSeriesWorkflowID creates a unique workflow ID for a series request
func GenerateSeriesWorkflowID(scheduleName string) string {
	return fmt.Sprintf("%s%s-%s", SeriesWorkflowIDPrefix, scheduleName, uuid.NewString())
}
