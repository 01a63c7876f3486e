package scheduler

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/metrics"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const (
	tickSpec          = "* * * * *"
	jobTimeout        = 10 * time.Minute
	maxConcurrentRuns = 10
)

// Scheduler fires active workflows on their stored cadence. It ticks once a
// minute, reloads the schedule set from the database and executes whatever
// is due, so edits made through the API take effect on the next tick without
// any in-process registration step.
type Scheduler struct {
	ctab      *crontab.Crontab
	workflows *workflow.Service
	log       zerolog.Logger
}

func NewScheduler(workflows *workflow.Service, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		ctab:      crontab.New(),
		workflows: workflows,
		log:       log.With().Str("component", "workflow_scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.ctab.AddJob(tickSpec, func() {
		s.tick(time.Now())
	}); err != nil {
		return apperrors.AsError(ctx, apperrors.LayerInfrastructure, err, "failed to schedule workflow tick")
	}
	s.log.Info().Msg("workflow scheduler started")

	<-ctx.Done()
	s.ctab.Shutdown()
	return nil
}

func (s *Scheduler) tick(now time.Time) {
	loadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	active, err := s.workflows.ListActive(loadCtx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load schedules")
		return
	}

	var group errgroup.Group
	group.SetLimit(maxConcurrentRuns)
	for i := range active {
		w := active[i]
		if !w.RunOptions.DueAt(now) {
			continue
		}
		group.Go(func() error {
			runCtx, cancelRun := context.WithTimeout(context.Background(), jobTimeout)
			defer cancelRun()
			if err := s.workflows.Execute(runCtx, &w); err != nil {
				metrics.WorkflowRunsTotal.WithLabelValues("scheduled", "error").Inc()
				apperrors.Log(s.log, err)
				return nil
			}
			metrics.WorkflowRunsTotal.WithLabelValues("scheduled", "ok").Inc()
			return nil
		})
	}
	group.Wait()
}
