package temporal

import (
	"go.temporal.io/sdk/activity"
)

// Registry is the part of a Temporal worker (or test environment) that
// workflows and activities are registered with
type Registry interface {
	RegisterWorkflow(w interface{})
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers the series workflow and its activities under the names
// the workflow schedules them by
func Register(r Registry, activities *ActivitiesImpl) {
	r.RegisterWorkflow(SeriesWorkflow)

	r.RegisterActivityWithOptions(activities.LoadScheduleActivity, activity.RegisterOptions{
		Name: LoadScheduleActivityName,
	})
	r.RegisterActivityWithOptions(activities.SampleScheduleActivity, activity.RegisterOptions{
		Name: SampleScheduleActivityName,
	})
}
