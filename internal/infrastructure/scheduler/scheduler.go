package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// Runner runs a batch sync. *syncer.Service implements it.
type Runner interface {
	Run(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, changed bool) (*syncer.Report, error)
}

// Job is a scheduled changed-records run of one kind and direction
type Job struct {
	Name      string            `json:"name"`
	Kind      syncer.EntityKind `json:"kind"`
	Direction syncer.Direction  `json:"direction"`
	Spec      string            `json:"spec"`
}

// JobState is a job with the outcome of its last run
type JobState struct {
	Job
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
}

// Config holds scheduler configuration
type Config struct {
	Enabled    bool
	JobTimeout time.Duration
	Jobs       []Job
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		JobTimeout: 30 * time.Minute,
	}
}

// ConfigFromSettings converts the loaded scheduler settings, validating kinds
// and directions.
func ConfigFromSettings(cfg config.SchedulerConfig) (Config, error) {
	out := Config{Enabled: cfg.Enabled, JobTimeout: cfg.JobTimeout}
	for i, j := range cfg.Jobs {
		kind, err := syncer.ParseEntityKind(j.Kind)
		if err != nil {
			return Config{}, fmt.Errorf("%w: jobs[%d]: %w", ErrInvalidConfig, i, err)
		}
		direction, err := syncer.ParseDirection(j.Direction)
		if err != nil {
			return Config{}, fmt.Errorf("%w: jobs[%d]: %w", ErrInvalidConfig, i, err)
		}
		out.Jobs = append(out.Jobs, Job{Kind: kind, Direction: direction, Spec: j.Spec})
	}
	return out, nil
}

// Scheduler triggers the changed-records sync of every configured job on
// its cron schedule. Overlapping runs are rejected by the run lock of the
// runner and logged.
type Scheduler struct {
	config Config
	runner Runner
	logger *zap.Logger
	cron   *cron.Cron

	mu        sync.RWMutex
	isRunning bool
	states    map[string]*JobState
	entries   map[string]cron.EntryID
	order     []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler and registers every job. Invalid cron specs are
// rejected here rather than at start.
func New(cfg Config, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		config:  cfg,
		runner:  runner,
		logger:  logger.Named("scheduler"),
		cron:    cron.New(),
		states:  make(map[string]*JobState),
		entries: make(map[string]cron.EntryID),
	}

	for _, job := range cfg.Jobs {
		if job.Name == "" {
			job.Name = fmt.Sprintf("%s:%s", job.Kind, job.Direction)
		}
		if _, exists := s.states[job.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate job %s", ErrInvalidConfig, job.Name)
		}
		job := job
		id, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) })
		if err != nil {
			return nil, fmt.Errorf("%w: job %s spec %q: %w", ErrInvalidConfig, job.Name, job.Spec, err)
		}
		s.entries[job.Name] = id
		s.states[job.Name] = &JobState{Job: job, Status: JobStatusPending}
		s.order = append(s.order, job.Name)
	}
	return s, nil
}

// Start starts the cron loop. It is a no-op when disabled or already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.order)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops scheduling and waits for running jobs until ctx is done.
// Running jobs are cancelled first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	stopped := s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Jobs returns the state of every job in configuration order
func (s *Scheduler) Jobs() []JobState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobState, 0, len(s.order))
	for _, name := range s.order {
		state := *s.states[name]
		if s.isRunning {
			if next := s.cron.Entry(s.entries[name]).Next; !next.IsZero() {
				state.NextRunAt = &next
			}
		}
		out = append(out, state)
	}
	return out
}

// Trigger runs the named job now, outside its schedule, and waits for it
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	state, ok := s.states[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.runJob(state.Job)
	return nil
}

// runJob runs one changed-records sync bounded by the job timeout
func (s *Scheduler) runJob(job Job) {
	s.wg.Add(1)
	defer s.wg.Done()

	parent := s.baseContext()
	ctx, cancel := context.WithTimeout(parent, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	s.update(job.Name, func(st *JobState) {
		st.Status = JobStatusRunning
		st.StartedAt = &started
		st.Error = ""
	})

	log := s.logger.With(zap.String("job", job.Name))
	report, err := s.runner.Run(ctx, job.Kind, job.Direction, true)

	completed := time.Now()
	status, errText := JobStatusSuccess, ""
	switch {
	case errors.Is(err, syncer.ErrRunInProgress):
		status = JobStatusSkipped
		log.Info("Previous run still in progress, job skipped")
	case err != nil:
		status, errText = JobStatusFailed, err.Error()
		log.Error("Scheduled sync failed", zap.Error(err))
	case report != nil:
		status = JobStatus(report.Status)
		log.Info("Scheduled sync finished",
			zap.String("status", string(report.Status)),
			zap.Int("total", report.Total),
			zap.Int("failed", report.Failed),
			zap.Duration("duration", completed.Sub(started)),
		)
	}
	s.update(job.Name, func(st *JobState) {
		st.Status = status
		st.Error = errText
		st.CompletedAt = &completed
	})
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func (s *Scheduler) update(name string, fn func(*JobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[name]; ok {
		fn(st)
	}
}
