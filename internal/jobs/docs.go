// Package jobs provides scheduled background tasks of the tracking hub.
//
// Jobs are built on github.com/robfig/cron/v3 with a seconds field in the
// schedule.
//
// # Available Jobs
//
// LocationFlushJob writes the newest cached location of each agent back to
// the REST backend. Its schedule comes from LOCATION_FLUSH_SCHEDULE and
// defaults to every ten seconds. A run that is still in progress when the
// next tick fires causes that tick to be skipped.
//
// # Usage
//
//	jobManager := jobs.NewJobManager(flushHandler, cfg.LocationFlushSchedule, logger)
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// A failed run is logged and retried on the next tick. Rows that could
// not be written stay unflushed in the cache.
package jobs
