package scratch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor periodically sweeps stale files out of a Dir
type Janitor struct {
	mu      sync.Mutex
	dir     *Dir
	maxAge  time.Duration
	log     zerolog.Logger
	cron    *cron.Cron
	running bool
	now     func() time.Time
}

// NewJanitor creates a janitor for dir that runs on a standard cron
// schedule (descriptors like "@every 15m" are accepted).
func NewJanitor(dir *Dir, schedule string, maxAge time.Duration, log zerolog.Logger) (*Janitor, error) {
	j := &Janitor{
		dir:    dir,
		maxAge: maxAge,
		log:    log.With().Str("component", "janitor").Logger(),
		now:    time.Now,
	}

	logger := cronLogger{log: j.log}
	j.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	return j, nil
}

// Start begins the schedule. Calling Start twice is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}
	j.running = true
	j.cron.Start()

	j.log.Info().Str("dir", j.dir.Path()).Dur("max_age", j.maxAge).Msg("Janitor started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to expire
func (j *Janitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	j.mu.Unlock()

	select {
	case <-j.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single sweep
func (j *Janitor) RunOnce() {
	result, err := j.dir.Sweep(j.maxAge, j.now())
	if err != nil {
		j.log.Warn().Err(err).Msg("Scratch sweep finished with errors")
	}
	if result.Removed > 0 {
		j.log.Info().
			Int("removed", result.Removed).
			Int64("bytes", result.Bytes).
			Msg("Removed stale scratch files")
	}
}

// cronLogger routes robfig/cron's internal logging to zerolog
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

var _ cron.Logger = cronLogger{}
