package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks how many steps of a run have finished
type ProgressTracker struct {
	Pipeline  string
	Total     int
	Current   int
	StartTime time.Time
	mu        sync.Mutex
	now       func() time.Time
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(pipeline string, total int) *ProgressTracker {
	return &ProgressTracker{
		Pipeline:  pipeline,
		Total:     total,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Increment records one more finished step
func (p *ProgressTracker) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Current++
}

// Percentage returns the share of finished steps, 0-100
func (p *ProgressTracker) Percentage() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Total) * 100
}

// GetETA estimates the remaining time from the average step duration so far
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}
	if p.Current >= p.Total {
		return "done"
	}

	elapsed := p.now().Sub(p.StartTime)
	perStep := elapsed / time.Duration(p.Current)
	remaining := perStep * time.Duration(p.Total-p.Current)

	switch {
	case remaining < time.Minute:
		return fmt.Sprintf("%.0f seconds", remaining.Seconds())
	case remaining < time.Hour:
		return fmt.Sprintf("%.1f minutes", remaining.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", remaining.Hours())
	}
}

// IsComplete returns true once every step has finished
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Current >= p.Total
}
