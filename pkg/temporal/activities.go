package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// ProgressReportInterval is how many samples pass between heartbeats
const ProgressReportInterval = 1000

// Activities interface defines all the activities used by workflows
type Activities interface {
	LoadScheduleActivity(ctx context.Context, name string) (*schedule.Definition, error)
	SampleScheduleActivity(ctx context.Context, def schedule.Definition, request SeriesRequest) (schedule.Series, error)
}

// ActivitiesImpl implements the Activities interface
type ActivitiesImpl struct {
	logger *slog.Logger
	store  ScheduleStore
}

var _ Activities = (*ActivitiesImpl)(nil)

// NewActivitiesImpl creates a new activities implementation
func NewActivitiesImpl(logger *slog.Logger, store ScheduleStore) *ActivitiesImpl {
	return &ActivitiesImpl{
		logger: logger,
		store:  store,
	}
}

// LoadScheduleActivity fetches a schedule definition from the registry
func (a *ActivitiesImpl) LoadScheduleActivity(ctx context.Context, name string) (*schedule.Definition, error) {
	a.logger.Info("Loading schedule", "schedule", name)

	def, err := a.store.GetSchedule(ctx, name)
	if err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ScheduleNotFoundErrorType, err)
		}
		a.logger.Error("Failed to load schedule", "schedule", name, "error", err)
		return nil, fmt.Errorf("failed to load schedule: %w", err)
	}

	a.logger.Info("Successfully loaded schedule", "schedule", name, "frames", len(def.Frames))
	return def, nil
}

// SampleScheduleActivity builds the schedule and samples it at the requested times
func (a *ActivitiesImpl) SampleScheduleActivity(ctx context.Context, def schedule.Definition, request SeriesRequest) (schedule.Series, error) {
	a.logger.Info("Sampling schedule", "schedule", request.ScheduleName, "times", len(request.Times), "step", request.Step)

	s, ip, err := def.Build()
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidScheduleErrorType, err)
	}

	times := request.Times
	if len(times) == 0 {
		grid, err := ip.SampleEvery(s, request.Start, request.End, request.Step)
		if err != nil {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidScheduleErrorType, err)
		}
		a.logger.Info("Successfully sampled schedule", "schedule", request.ScheduleName, "points", len(grid))
		return grid, nil
	}

	series := make(schedule.Series, 0, len(times))
	for i, t := range times {
		if i > 0 && i%ProgressReportInterval == 0 {
			activity.RecordHeartbeat(ctx, i)
		}

		v, err := ip.Sample(s, t)
		if err != nil {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), InvalidScheduleErrorType, err)
		}
		series = append(series, schedule.Point{Time: t, Value: v})
	}

	a.logger.Info("Successfully sampled schedule", "schedule", request.ScheduleName, "points", len(series))
	return series, nil
}
