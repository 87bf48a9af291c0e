package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mailroom/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Intervals sets how often each job runs.
type Intervals struct {
	ReportWarm time.Duration
	AgingScan  time.Duration
}

// JobScheduler runs the periodic maintenance jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	warmer    *jobs.ReportWarmer
	scanner   *jobs.AgingScanner
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers both jobs. Each job
// runs once at start and then on its interval; overlapping runs are skipped.
func NewJobScheduler(intervals Intervals, warmer *jobs.ReportWarmer, scanner *jobs.AgingScanner, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		warmer:    warmer,
		scanner:   scanner,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}

	for name, def := range map[string]struct {
		interval time.Duration
		task     func(context.Context)
	}{
		"report-cache-warm":  {intervals.ReportWarm, js.warmReports},
		"aging-package-scan": {intervals.AgingScan, js.scanAging},
	} {
		if err := js.register(name, def.interval, def.task); err != nil {
			cancel()
			_ = scheduler.Shutdown()
			return nil, err
		}
	}
	logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
	return js, nil
}

func (js *JobScheduler) register(name string, interval time.Duration, task func(context.Context)) error {
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task, js.ctx),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("create job %s: %w", name, err)
	}
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) warmReports(ctx context.Context) {
	if err := js.warmer.Run(ctx); err != nil {
		js.logger.Warn("report warm job finished with errors", zap.Error(err))
	}
}

func (js *JobScheduler) scanAging(ctx context.Context) {
	_, _ = js.scanner.Run(ctx)
}

// GetJobStatus returns the registered jobs with their last and next runs.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make(map[string]interface{}, len(js.jobs))
	for name, job := range js.jobs {
		entry := map[string]interface{}{}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			entry["last_run"] = last.UTC().Format(time.RFC3339)
		}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			entry["next_run"] = next.UTC().Format(time.RFC3339)
		}
		status[name] = entry
	}
	return status
}

// RunNow triggers the named job outside its schedule. Singleton mode still
// applies, so a run already in progress is not duplicated.
func (js *JobScheduler) RunNow(name string) error {
	js.mu.RLock()
	job, ok := js.jobs[name]
	js.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	js.logger.Info("job triggered manually", zap.String("job", name))
	return job.RunNow()
}
