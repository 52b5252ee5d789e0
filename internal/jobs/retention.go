package jobs

import (
	"context"
	"log"
	"time"

	"fitcoach/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// RetentionSweep trims every user's conversation down to the retained
// window once a night. The per-request trim already does this for active
// users; the sweep is the backstop for trims that failed or were skipped.
type RetentionSweep struct {
	messages *services.MessageService
	metrics  *services.Metrics
	keep     int

	scheduler gocron.Scheduler
}

// NewRetentionSweep creates the nightly retention job.
func NewRetentionSweep(messages *services.MessageService, metrics *services.Metrics, keep int) *RetentionSweep {
	return &RetentionSweep{
		messages: messages,
		metrics:  metrics,
		keep:     keep,
	}
}

// Start schedules the sweep daily at 02:00 UTC.
func (j *RetentionSweep) Start() error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(j.Run),
		gocron.WithName("history-retention"),
	)
	if err != nil {
		return err
	}

	j.scheduler = scheduler
	scheduler.Start()
	log.Println("✅ [RETENTION] Nightly history retention sweep scheduled (02:00 UTC)")
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep to finish.
func (j *RetentionSweep) Stop() {
	if j.scheduler != nil {
		if err := j.scheduler.Shutdown(); err != nil {
			log.Printf("⚠️  [RETENTION] Scheduler shutdown: %v", err)
		}
	}
}

// Run executes one full sweep across all users with messages.
func (j *RetentionSweep) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Println("[RETENTION] Starting history retention sweep...")
	startTime := time.Now()

	userIDs, err := j.messages.UserIDsWithMessages(ctx)
	if err != nil {
		log.Printf("[RETENTION] Failed to list users: %v", err)
		return
	}

	var totalDeleted int64
	for _, userID := range userIDs {
		deleted, err := j.messages.TrimHistory(ctx, userID, j.keep)
		if err != nil {
			log.Printf("[RETENTION] Failed to trim history for user %s: %v", userID, err)
			continue
		}
		if deleted > 0 {
			totalDeleted += deleted
			log.Printf("[RETENTION] Deleted %d old messages for user %s", deleted, userID)
		}
	}

	j.metrics.RecordTrimmedMessages(totalDeleted)
	log.Printf("[RETENTION] Sweep complete: deleted %d messages across %d users in %v",
		totalDeleted, len(userIDs), time.Since(startTime))
}
