package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"orderbot/internal/domain"

	"github.com/google/uuid"
)

// HistorySource returns every message posted to a channel since a moment.
type HistorySource interface {
	FetchHistory(ctx context.Context, channelID string, since time.Time) ([]ChannelMessage, error)
}

// NameResolver never fails; unknown authors come back as their raw id.
type NameResolver interface {
	ResolveName(ctx context.Context, authorID string) string
}

// ItemExtractor returns one item list per input text, index for index.
type ItemExtractor interface {
	ExtractAll(ctx context.Context, texts []string) [][]ExtractedItem
}

type ReportRenderer interface {
	Render(records []OrderRecord) (Report, error)
}

// ReportDeliverer hands the report to the requester. false with a nil
// error means the platform accepted the upload without sharing it.
type ReportDeliverer interface {
	Deliver(ctx context.Context, userID string, rep Report) (bool, error)
}

// Notifier posts the final notice of a job. It is called exactly once.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

const notifyTimeout = 15 * time.Second

type Pipeline struct {
	ChannelID       string
	SlashCommand    string
	MaxLookbackDays int
	Location        *time.Location
	Now             func() time.Time

	History   HistorySource
	Names     NameResolver
	Extractor ItemExtractor
	Renderer  ReportRenderer
	Deliverer ReportDeliverer
}

// Job is one background run for one requester.
type Job struct {
	ID         string
	Request    CommandRequest
	Notifier   Notifier
	ReceivedAt time.Time
}

func NewJob(req CommandRequest, notifier Notifier) Job {
	return Job{
		ID:         uuid.NewString(),
		Request:    req,
		Notifier:   notifier,
		ReceivedAt: time.Now(),
	}
}

func (p *Pipeline) now() time.Time {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if p.Location != nil {
		now = now.In(p.Location)
	}
	return now
}

func (p *Pipeline) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context, req CommandRequest) error {
	maxDays := p.MaxLookbackDays
	if maxDays <= 0 {
		maxDays = domain.DefaultMaxLookbackDays
	}
	window, err := domain.ValidateDateWindow(req.RawDateText, p.now(), maxDays)
	if err != nil {
		return err
	}

	messages, err := p.History.FetchHistory(ctx, p.ChannelID, window.Start)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return &domain.NoDataError{Reason: domain.NoMessages}
	}
	log.Printf("pipeline fetched channel=%s since=%s messages=%d", p.ChannelID, window.Start.Format(domain.ReportDateLayout), len(messages))

	names := p.resolveNames(ctx, messages)

	texts := make([]string, len(messages))
	for i, msg := range messages {
		texts[i] = msg.Text
	}
	extracted := p.Extractor.ExtractAll(ctx, texts)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extraction interrupted: %w", err)
	}
	if len(extracted) != len(messages) {
		return fmt.Errorf("extractor returned %d results for %d messages", len(extracted), len(messages))
	}

	loc := p.location()
	mentions := make([]Mention, len(messages))
	for i, msg := range messages {
		mentions[i] = Mention{
			PersonName: names[msg.AuthorID],
			Date:       msg.SentAt.In(loc),
			Items:      extracted[i],
		}
	}
	records, err := Aggregate(mentions)
	if err != nil {
		return err
	}
	log.Printf("pipeline aggregated records=%d authors=%d", len(records), len(names))

	rep, err := p.Renderer.Render(records)
	if err != nil {
		return err
	}

	ok, err := p.Deliverer.Deliver(ctx, req.RequesterID, rep)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.DeliveryError{Stage: domain.StageUpload, Err: domain.ErrUploadIncomplete}
	}
	return nil
}

// resolveNames asks the resolver once per distinct author.
func (p *Pipeline) resolveNames(ctx context.Context, messages []ChannelMessage) map[string]string {
	names := make(map[string]string)
	for _, msg := range messages {
		if _, ok := names[msg.AuthorID]; ok {
			continue
		}
		names[msg.AuthorID] = p.Names.ResolveName(ctx, msg.AuthorID)
	}
	return names
}

// Process runs the job, classifies how it ended and notifies the job's
// notifier exactly once, even when a stage panics.
func (p *Pipeline) Process(ctx context.Context, job Job) (outcome Outcome) {
	log.Printf("job state=processing id=%s requester=%s date=%q", job.ID, job.Request.RequesterID, job.Request.RawDateText)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("job panic id=%s: %v", job.ID, r)
			outcome = UnknownFailure{}
		}
		p.notify(ctx, job, outcome, time.Since(start))
	}()

	err := p.Run(ctx, job.Request)
	if err != nil {
		log.Printf("job error id=%s: %v", job.ID, err)
	}
	return Classify(err, p.SlashCommand, job.Request, p.now())
}

func (p *Pipeline) notify(ctx context.Context, job Job, outcome Outcome, elapsed time.Duration) {
	state := "delivered"
	if _, ok := outcome.(Success); !ok {
		state = "failed"
	}
	log.Printf("job state=%s id=%s outcome=%s elapsed=%s", state, job.ID, outcome.Kind(), elapsed.Round(time.Millisecond))

	if job.Notifier == nil {
		log.Printf("job notify skipped id=%s: no notifier", job.ID)
		return
	}
	// The job context may already be past its deadline.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := job.Notifier.Notify(nctx, outcome.Notice()); err != nil {
		log.Printf("job notify error id=%s: %v", job.ID, err)
	}
}
