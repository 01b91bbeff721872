package temporal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leowmjw/go-keyframe-schedule/pkg/schedule"
)

// ErrScheduleNotFound is returned when a schedule name is not registered
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleStore defines the interface for the schedule registry
type ScheduleStore interface {
	PutSchedule(ctx context.Context, name string, def schedule.Definition) error
	GetSchedule(ctx context.Context, name string) (*schedule.Definition, error)
	ListSchedules(ctx context.Context) ([]string, error)
}

// MemoryStore implements ScheduleStore in process memory
type MemoryStore struct {
	mu        sync.RWMutex
	schedules map[string]schedule.Definition
}

var _ ScheduleStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty schedule registry
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules: make(map[string]schedule.Definition),
	}
}

// PutSchedule validates and stores a definition under name, replacing any previous one
func (m *MemoryStore) PutSchedule(ctx context.Context, name string, def schedule.Definition) error {
	if name == "" {
		return errors.New("schedule name is required")
	}
	def.Name = name

	// Only schedules that build are accepted
	if _, _, err := def.Build(); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[name] = cloneDefinition(def)
	return nil
}

// GetSchedule returns a copy of the named definition
func (m *MemoryStore) GetSchedule(ctx context.Context, name string) (*schedule.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	def, exists := m.schedules[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, name)
	}

	clone := cloneDefinition(def)
	return &clone, nil
}

// ListSchedules returns the registered names in sorted order
func (m *MemoryStore) ListSchedules(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.schedules))
	for name := range m.schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cloneDefinition(def schedule.Definition) schedule.Definition {
	frames := make([]schedule.Record, len(def.Frames))
	copy(frames, def.Frames)
	def.Frames = frames
	return def
}
