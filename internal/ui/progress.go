package ui

import (
	"context"
	"time"
)

// DefaultStageInterval is the delay between progress stages
const DefaultStageInterval = 200 * time.Millisecond

// Stage is one step of the loading indicator
type Stage struct {
	Percent int
	Status  string
}

// Done reports whether this is the final stage
func (s Stage) Done() bool {
	return s.Percent >= 100
}

// Stages returns the fixed sequence shown while a URL is analysed. It does
// not track real completion.
func Stages() []Stage {
	stages := make([]Stage, 0, 10)
	for p := 10; p <= 100; p += 10 {
		stages = append(stages, Stage{Percent: p, Status: statusFor(p)})
	}
	return stages
}

func statusFor(percent int) string {
	switch {
	case percent <= 30:
		return "Analyzing URL..."
	case percent <= 60:
		return "Fetching video information..."
	case percent <= 90:
		return "Preparing download options..."
	default:
		return "Done"
	}
}

// Progress emits Stages on a fixed interval
type Progress struct {
	Interval time.Duration
}

// NewProgress creates a progress model; a zero interval uses the default
func NewProgress(interval time.Duration) *Progress {
	if interval <= 0 {
		interval = DefaultStageInterval
	}
	return &Progress{Interval: interval}
}

// Start emits every stage in order on the returned channel, which is closed
// after the final stage or when ctx is cancelled.
func (p *Progress) Start(ctx context.Context) <-chan Stage {
	ch := make(chan Stage)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		for _, stage := range Stages() {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case <-ctx.Done():
				return
			case ch <- stage:
			}
		}
	}()

	return ch
}
