package jobs

import (
	"context"
	"log"
	"time"

	"prayer-notification-server/services"
)

// DispatchJob invokes the notification dispatch engine on a fixed interval,
// for deployments without an external scheduler polling the trigger
// endpoint. It polls the same idempotent engine the endpoint runs; it does
// not schedule per-prayer timers.
type DispatchJob struct {
	dispatch *services.DispatchService
	interval time.Duration
	stopChan chan bool
}

// NewDispatchJob creates a new dispatch job
func NewDispatchJob(dispatch *services.DispatchService, interval time.Duration) *DispatchJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DispatchJob{
		dispatch: dispatch,
		interval: interval,
		stopChan: make(chan bool),
	}
}

// Start begins the dispatch job
func (j *DispatchJob) Start() {
	go j.run()
	log.Printf("🚀 Dispatch job started (interval: %s)", j.interval)
}

// Stop stops the dispatch job
func (j *DispatchJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Dispatch job stopped")
}

func (j *DispatchJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runOnce()
		case <-j.stopChan:
			return
		}
	}
}

// runOnce executes one dispatch invocation, bounded by the tick interval so
// a slow cycle cannot pile up behind the next one.
func (j *DispatchJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	summary, err := j.dispatch.Run(ctx)
	if err != nil {
		log.Printf("❌ Scheduled dispatch failed: %v", err)
		return
	}

	if summary.Sent > 0 || summary.Expired > 0 || summary.Deduplicated > 0 {
		log.Printf("⏰ Scheduled dispatch: sent=%d expired=%d deduplicated=%d",
			summary.Sent, summary.Expired, summary.Deduplicated)
	}
}
