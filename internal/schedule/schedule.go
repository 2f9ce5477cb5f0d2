package schedule

import (
	"context"
	"log"
	"strings"
	"time"

	"orderbot/internal/config"
	"orderbot/internal/domain"
	"orderbot/internal/pipeline"

	"github.com/robfig/cron/v3"
)

type Config = config.Config

// Queue is satisfied by pipeline.Dispatcher.
type Queue interface {
	Enqueue(job pipeline.Job) error
}

// NotifierFunc builds the notifier that tells a recipient how their
// scheduled report went.
type NotifierFunc func(userID string) pipeline.Notifier

// Start runs the report schedule until ctx is done. The schedule is a
// standard 5-field cron expression, e.g. "0 9 * * 1" for Mondays 9am.
// It returns immediately when scheduling is not configured.
func Start(ctx context.Context, cfg Config, queue Queue, notifierFor NotifierFunc) {
	spec := strings.TrimSpace(cfg.ReportSchedule)
	if spec == "" {
		log.Println("Scheduled reports disabled (report_schedule not set)")
		return
	}
	if len(cfg.ReportRecipients) == 0 {
		log.Println("Scheduled reports disabled: report_recipients is empty")
		return
	}
	sched, err := config.ParseSchedule(spec)
	if err != nil {
		log.Printf("Invalid report_schedule '%s': %v; scheduled reports disabled", spec, err)
		return
	}
	log.Printf("Scheduled reports (cron: %s) recipients=%d lookback_days=%d", spec, len(cfg.ReportRecipients), cfg.ReportScheduleLookbackDays)

	go loop(ctx, cfg, sched, queue, notifierFor)
}

func loop(ctx context.Context, cfg Config, sched cron.Schedule, queue Queue, notifierFor NotifierFunc) {
	for {
		now := time.Now().In(location(cfg))
		next := sched.Next(now)
		if next.IsZero() {
			log.Println("Scheduled reports stopped: report_schedule has no upcoming run")
			return
		}
		wait := next.Sub(now)
		log.Printf("Next scheduled report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Println("Scheduled reports stopped")
			return
		case <-timer.C:
		}

		queued := EnqueueAll(queue, Jobs(cfg, time.Now().In(location(cfg)), notifierFor))
		log.Printf("Scheduled report run queued=%d recipients=%d", queued, len(cfg.ReportRecipients))
	}
}

// Jobs builds one job per recipient covering the configured lookback.
func Jobs(cfg Config, now time.Time, notifierFor NotifierFunc) []pipeline.Job {
	lookback := cfg.ReportScheduleLookbackDays
	if lookback < 1 {
		lookback = 7
	}
	since := domain.ExampleDate(now, lookback)

	var jobs []pipeline.Job
	seen := make(map[string]bool)
	for _, raw := range cfg.ReportRecipients {
		userID := strings.TrimSpace(raw)
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		req := domain.CommandRequest{RequesterID: userID, RawDateText: since}
		jobs = append(jobs, pipeline.NewJob(req, notifierFor(userID)))
	}
	return jobs
}

// EnqueueAll submits jobs and returns how many were accepted.
func EnqueueAll(queue Queue, jobs []pipeline.Job) int {
	queued := 0
	for _, job := range jobs {
		if err := queue.Enqueue(job); err != nil {
			log.Printf("scheduled report rejected id=%s requester=%s: %v", job.ID, job.Request.RequesterID, err)
			continue
		}
		queued++
	}
	return queued
}

func location(cfg Config) *time.Location {
	if cfg.Location != nil {
		return cfg.Location
	}
	return time.Local
}
