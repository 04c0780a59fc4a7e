package operations

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Step is a single unit of work in a pipeline.
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step. Values produced for later steps are stored in
	// the operation state.
	Execute(ctx context.Context, state *OperationState) error

	// Validate checks if the step can be executed with the current state
	Validate(state *OperationState) error

	// GetDependencies returns the IDs of steps that must complete first
	GetDependencies() []string
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Status    StepStatus     `json:"status"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Attempts  int            `json:"attempts"`
	Rows      int            `json:"rows"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewStepState creates a pending step state
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]any),
	}
}

// Start marks the step as active. The start time of the first attempt is kept.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StartTime == nil {
		now := time.Now()
		s.StartTime = &now
	}
	s.Status = StepStatusActive
	s.Attempts++
	s.Error = ""
}

// Complete marks the step as completed
func (s *StepState) Complete(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
	s.Message = message
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	if err != nil {
		s.Error = err.Error()
	}
}

// Skip marks the step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusSkipped
	s.Message = reason
}

// AddRows adds to the number of rows the step produced
func (s *StepState) AddRows(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Rows += n
}

// SetMetadata records a step output such as a written file path
func (s *StepState) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// AddPath appends a written file to the step's paths metadata
func (s *StepState) AddPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths, _ := s.Metadata[MetadataKeyPaths].([]string)
	s.Metadata[MetadataKeyPaths] = append(paths, path)
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// GetRows returns the rows produced so far
func (s *StepState) GetRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Rows
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

func (s *StepState) clone() *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &StepState{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Attempts:  s.Attempts,
		Rows:      s.Rows,
		Message:   s.Message,
		Error:     s.Error,
		Metadata:  make(map[string]any, len(s.Metadata)),
	}
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// BaseStage provides the identity half of a Step implementation
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage creates a new base step
func NewBaseStage(id, name string, dependencies ...string) BaseStage {
	if dependencies == nil {
		dependencies = []string{}
	}
	return BaseStage{
		id:           id,
		name:         name,
		dependencies: dependencies,
	}
}

// ID returns the step ID
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the step name
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// GetDependencies returns the step dependencies
func (b *BaseStage) GetDependencies() []string {
	if b == nil {
		return nil
	}
	return b.dependencies
}

// Validate provides a default validation that always passes
func (b *BaseStage) Validate(*OperationState) error {
	if b == nil {
		return fmt.Errorf("BaseStage is nil")
	}
	return nil
}

// StepFunc is the body of a FuncStep.
type StepFunc func(ctx context.Context, state *OperationState) error

// FuncStep adapts a function into a Step. Requires lists state keys that
// must be present before the step runs.
type FuncStep struct {
	BaseStage
	Requires []string
	run      StepFunc
}

// NewFuncStep creates a step running fn after dependencies.
func NewFuncStep(id, name string, fn StepFunc, dependencies ...string) *FuncStep {
	return &FuncStep{BaseStage: NewBaseStage(id, name, dependencies...), run: fn}
}

// Requiring sets the state keys checked by Validate.
func (s *FuncStep) Requiring(keys ...string) *FuncStep {
	s.Requires = append(s.Requires, keys...)
	return s
}

// Execute runs the wrapped function
func (s *FuncStep) Execute(ctx context.Context, state *OperationState) error {
	if s.run == nil {
		return NewFatalError(fmt.Sprintf("step %s has no function", s.ID()), nil)
	}
	return s.run(ctx, state)
}

// Validate checks that every required state key is set
func (s *FuncStep) Validate(state *OperationState) error {
	for _, key := range s.Requires {
		if _, ok := state.GetContext(key); !ok {
			return fmt.Errorf("missing %s in operation state", key)
		}
	}
	return nil
}
