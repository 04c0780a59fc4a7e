package operations

import (
	"fmt"
	"sync"
	"time"
)

// OperationStatusValue represents the overall run status
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the complete state of one pipeline run
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Pipeline  string               `json:"pipeline"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps     map[string]*StepState `json:"steps"`
	StepOrder []string              `json:"step_order"`

	// Context carries values between steps. It is not serialized.
	Context map[string]any `json:"-"`

	// Config holds request parameters
	Config map[string]any `json:"config,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewOperationState creates a pending run state
func NewOperationState(id, pipeline string) *OperationState {
	return &OperationState{
		ID:        id,
		Pipeline:  pipeline,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]any),
		Config:    make(map[string]any),
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *OperationState) Complete() {
	p.finish(OperationStatusCompleted, nil)
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.finish(OperationStatusFailed, err)
}

// Cancel marks the run as cancelled
func (p *OperationState) Cancel(err error) {
	p.finish(OperationStatusCancelled, err)
}

func (p *OperationState) finish(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = status
	if err != nil {
		p.Error = err.Error()
	}
}

// GetStatus returns the run status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage adds or replaces the state of a step. New steps are appended to
// StepOrder.
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.Steps[stepID]; !exists {
		p.StepOrder = append(p.StepOrder, stepID)
	}
	p.Steps[stepID] = state
}

// GetContext retrieves a value passed between steps
func (p *OperationState) GetContext(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext stores a value for later steps
func (p *OperationState) SetContext(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// GetConfig retrieves a request parameter
func (p *OperationState) GetConfig(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Config[key]
	return val, ok
}

// SetConfig sets a request parameter
func (p *OperationState) SetConfig(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Config[key] = value
}

// Value returns the context value under key as a T. A missing key or a value
// of another type is a validation error naming the key.
func Value[T any](state *OperationState, key string) (T, error) {
	var zero T
	raw, ok := state.GetContext(key)
	if !ok {
		return zero, NewValidationError("", fmt.Sprintf("missing %s in operation state", key))
	}
	v, ok := raw.(T)
	if !ok {
		return zero, NewValidationError("", fmt.Sprintf("%s has type %T, want %T", key, raw, zero))
	}
	return v, nil
}

// Duration returns the duration of the run
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// CountStages returns how many steps are in the given status
func (p *OperationState) CountStages(status StepStatus) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, s := range p.Steps {
		if s.GetStatus() == status {
			n++
		}
	}
	return n
}

// TotalRows sums the rows produced by every step
func (p *OperationState) TotalRows() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, s := range p.Steps {
		n += s.GetRows()
	}
	return n
}

// Clone returns a copy safe to hand out while the run continues. Context
// values are shared, not copied.
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Pipeline:  p.Pipeline,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		StepOrder: append([]string(nil), p.StepOrder...),
		Context:   make(map[string]any, len(p.Context)),
		Config:    make(map[string]any, len(p.Config)),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		end := *p.EndTime
		clone.EndTime = &end
	}
	for k, v := range p.Steps {
		clone.Steps[k] = v.clone()
	}
	for k, v := range p.Context {
		clone.Context[k] = v
	}
	for k, v := range p.Config {
		clone.Config[k] = v
	}
	return clone
}
