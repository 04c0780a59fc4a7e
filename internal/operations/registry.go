package operations

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the steps of one pipeline
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
	order []string // registration order
}

// NewRegistry creates an empty step registry
func NewRegistry() *Registry {
	return &Registry{
		steps: make(map[string]Step),
	}
}

// Register adds a step to the registry
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}

	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("step with ID %s already registered", id)
	}

	r.steps[id] = step
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a step by ID
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, exists := r.steps[id]
	if !exists {
		return nil, &OperationError{Type: ErrorTypeNotFound, Step: id, Message: "step not registered"}
	}
	return step, nil
}

// Has checks if a step is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.steps[id]
	return exists
}

// ListIDs returns all registered step IDs in registration order
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.steps)
}

// GetDependencyOrder returns the steps in an order where every step follows
// its dependencies (Kahn's algorithm). Ties are broken by registration order,
// so a pipeline registered in dependency order runs in that order.
func (r *Registry) GetDependencyOrder() ([]Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	position := make(map[string]int, len(r.order))
	for i, id := range r.order {
		position[id] = i
	}

	dependents := make(map[string][]string, len(r.steps))
	inDegree := make(map[string]int, len(r.steps))
	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if _, exists := r.steps[dep]; !exists {
				return nil, NewDependencyError(id, dep, fmt.Sprintf("depends on unregistered step %s", dep))
			}
			dependents[dep] = append(dependents[dep], id)
			inDegree[id]++
		}
	}

	var ready []string
	for _, id := range r.order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]Step, 0, len(r.steps))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		ordered = append(ordered, r.steps[current])

		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
		sort.SliceStable(ready, func(i, j int) bool { return position[ready[i]] < position[ready[j]] })
	}

	if len(ordered) != len(r.steps) {
		var blocked []string
		for _, id := range r.order {
			if inDegree[id] > 0 {
				blocked = append(blocked, id)
			}
		}
		return nil, &OperationError{
			Type:    ErrorTypeDependency,
			Message: fmt.Sprintf("dependency cycle detected among steps %v", blocked),
		}
	}
	return ordered, nil
}

// ValidateDependencies checks that every dependency exists and the graph is acyclic
func (r *Registry) ValidateDependencies() error {
	_, err := r.GetDependencyOrder()
	return err
}

// GetDependents returns the IDs of steps that depend directly on stepID, in
// registration order
func (r *Registry) GetDependents(stepID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, id := range r.order {
		for _, dep := range r.steps[id].GetDependencies() {
			if dep == stepID {
				out = append(out, id)
				break
			}
		}
	}
	return out
}
