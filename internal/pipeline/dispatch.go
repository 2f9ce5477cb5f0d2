package pipeline

import (
	"context"
	"log"

	"orderbot/internal/worker"
)

// Dispatcher queues jobs onto a worker pool.
type Dispatcher struct {
	pool     *worker.Pool
	pipeline *Pipeline
}

func NewDispatcher(pool *worker.Pool, p *Pipeline) *Dispatcher {
	return &Dispatcher{pool: pool, pipeline: p}
}

// Enqueue returns worker.ErrQueueFull when the pool cannot take the job.
func (d *Dispatcher) Enqueue(job Job) error {
	err := d.pool.Submit("job-"+job.ID, func(ctx context.Context) {
		d.pipeline.Process(ctx, job)
	})
	if err != nil {
		return err
	}
	log.Printf("job state=acknowledged id=%s requester=%s", job.ID, job.Request.RequesterID)
	return nil
}
