package jobs

import (
	"context"
	"log/slog"

	"trackinghub/internal/core/application/usecases/commands"

	"github.com/robfig/cron/v3"
)

// DefaultFlushSchedule runs the flush every ten seconds.
const DefaultFlushSchedule = "*/10 * * * * *"

// FlushLocationsHandler writes cached locations back to the REST backend.
type FlushLocationsHandler interface {
	Handle(ctx context.Context, cmd commands.FlushLocationsCommand) error
}

// LocationFlushJob periodically writes the newest cached location of every
// agent back to the REST backend.
type LocationFlushJob struct {
	handler   FlushLocationsHandler
	schedule  string
	batchSize int
	cron      *cron.Cron
	logger    *slog.Logger
}

// NewLocationFlushJob creates the flush job. An empty schedule falls back
// to DefaultFlushSchedule; the schedule takes a leading seconds field.
func NewLocationFlushJob(handler FlushLocationsHandler, schedule string, batchSize int, logger *slog.Logger) *LocationFlushJob {
	if schedule == "" {
		schedule = DefaultFlushSchedule
	}
	if batchSize <= 0 {
		batchSize = commands.DefaultFlushBatchSize
	}

	return &LocationFlushJob{
		handler:   handler,
		schedule:  schedule,
		batchSize: batchSize,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger.With("component", "location_flush_job"),
	}
}

// Start registers the flush on its schedule and starts the scheduler.
func (j *LocationFlushJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, j.run)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Location flush job started", "schedule", j.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running flush to finish.
func (j *LocationFlushJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Location flush job stopped")
}

func (j *LocationFlushJob) run() {
	ctx := context.Background()

	cmd, err := commands.NewFlushLocationsCommand(j.batchSize)
	if err != nil {
		j.logger.ErrorContext(ctx, "Location flush job misconfigured", "error", err)
		return
	}

	if err = j.handler.Handle(ctx, cmd); err != nil {
		j.logger.ErrorContext(ctx, "Location flush job failed", "error", err)
	}
}
