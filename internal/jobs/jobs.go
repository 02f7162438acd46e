package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

const cacheCleanupJob = "cache-cleanup"

// RegisterAll registers every maintenance job with the app's manager.
func RegisterAll(app JobContext) {
	app.JobManager().Register(cacheCleanupJob, cleanupCache)
}

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startCacheCleanupJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

func startCacheCleanupJob(s *gocron.Scheduler, app JobContext) {
	if app.Config().Cache.MaxAgeDays == 0 {
		log.Println("Cache max age is 0, scheduled cache cleanup is disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run daily.", cacheCleanupJob)

	_, err := s.Every(1).Day().Do(func() {
		log.Println("Scheduler is triggering job:", cacheCleanupJob)
		// Submit through the manager so a manually triggered run and a
		// scheduled run never overlap.
		if err := app.JobManager().RunJob(cacheCleanupJob, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", cacheCleanupJob, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", cacheCleanupJob, err)
	}
}

// cleanupCache removes extracted-text cache entries older than the
// configured maximum age.
func cleanupCache(app JobContext) {
	maxAge := time.Duration(app.Config().Cache.MaxAgeDays) * 24 * time.Hour
	removed := app.TextCache().ClearOld(maxAge)
	log.Printf("Cache cleanup removed %d expired entries", removed)
}
