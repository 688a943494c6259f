package jobs

import (
	"fmt"
	"log/slog"
)

// JobManager coordinates the scheduled jobs of the hub.
type JobManager struct {
	locationFlushJob *LocationFlushJob
}

// NewJobManager creates a job manager with all required jobs.
func NewJobManager(
	flushLocationsHandler FlushLocationsHandler,
	flushSchedule string,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		locationFlushJob: NewLocationFlushJob(flushLocationsHandler, flushSchedule, 0, logger),
	}
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.locationFlushJob.Start(); err != nil {
		return fmt.Errorf("failed to start location flush job: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.locationFlushJob.Stop()
}
