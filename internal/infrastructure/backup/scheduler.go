package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	ArchiveJobName = "archive-snapshot"
	PruneJobName   = "prune-live-sessions"
)

// SessionPruner forgets live sessions that ended long enough ago.
type SessionPruner interface {
	PruneEnded(ctx context.Context, olderThan time.Duration) (int, error)
}

type SchedulerConfig struct {
	ArchiveInterval  time.Duration // zero disables archiving
	PruneInterval    time.Duration
	SessionRetention time.Duration
	JobTimeout       time.Duration
}

// Scheduler runs the periodic maintenance jobs on gocron.
type Scheduler struct {
	sched  gocron.Scheduler
	logger *zap.SugaredLogger
}

// NewScheduler registers the jobs. A nil archiver skips archiving.
func NewScheduler(archiver *Archiver, pruner SessionPruner, cfg SchedulerConfig, clock clockwork.Clock, logger *zap.SugaredLogger) (*Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocronLogger{logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, logger: logger}

	if archiver != nil && cfg.ArchiveInterval > 0 {
		err := s.add(ArchiveJobName, cfg.ArchiveInterval, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
			defer cancel()
			_, err := archiver.Archive(ctx, "scheduled")
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	if pruner != nil && cfg.PruneInterval > 0 {
		err := s.add(PruneJobName, cfg.PruneInterval, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
			defer cancel()
			_, err := pruner.PruneEnded(ctx, cfg.SessionRetention)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) add(name string, every time.Duration, task func() error) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				s.logger.Errorw("Scheduled job failed", "job", jobName, "error", err)
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	s.logger.Infow("Job scheduled", "job", name, "interval", every)
	return nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// RunNow triggers the named job outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.sched.Jobs() {
		if job.Name() == name {
			return job.RunNow()
		}
	}
	return fmt.Errorf("job %s is not scheduled", name)
}

func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name())
	}
	return names
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}

// gocronLogger routes scheduler logs through zap.
type gocronLogger struct {
	l *zap.SugaredLogger
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debugw(msg, args...) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.Errorw(msg, args...) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.Infow(msg, args...) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.Warnw(msg, args...) }
