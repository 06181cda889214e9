package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reservatec-core/internal/pkg/config"
	"reservatec-core/internal/usecase/commands"
)

// Job is one reconciliation sweep run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the reconciliation jobs on independent tickers. Jobs
// never overlap with themselves: a tick fires only after the previous run of
// the same job returned.
type Scheduler struct {
	jobs []Job

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(cmds commands.ReservationCommands, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		jobs: []Job{
			{Name: "advance_states", Interval: cfg.AdvanceInterval, Run: cmds.AdvanceStates},
			{Name: "release_expired_claims", Interval: cfg.ExpiryInterval, Run: cmds.ReleaseExpiredClaims},
			{Name: "cancel_no_shows", Interval: cfg.NoShowInterval, Run: cmds.CancelNoShows},
		},
		stop: make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(job)
	}
	slog.Info("reconciliation scheduler started", "jobs", len(s.jobs))
}

func (s *Scheduler) loop(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := job.Run(context.Background()); err != nil {
				slog.Error("reconciliation job failed", "job", job.Name, "error", err.Error())
			}
		case <-s.stop:
			return
		}
	}
}

// Stop halts all jobs and waits for in-flight sweeps to finish. Safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	slog.Info("reconciliation scheduler stopped")
}
