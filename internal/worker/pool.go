package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail = "jobs:email"

	JobInvoiceEmail = "invoice_email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes the payload of one job type. A returned error moves the
// job to the dead letter queue.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueInvoiceEmail pushes an invoice email job to Redis.
func (d *Dispatcher) EnqueueInvoiceEmail(ctx context.Context, payload InvoiceEmailPayload) error {
	return d.enqueue(ctx, QueueEmail, JobInvoiceEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// deadLetterFunc matches SendToDLQ; swapped out in tests.
type deadLetterFunc func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int)

// Pool routes dequeued jobs to their handler by job type.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	queues   []string
	dlq      deadLetterFunc
	wg       sync.WaitGroup
}

// deadLetterTimeout bounds the DLQ push, which outlives the job context.
const deadLetterTimeout = 5 * time.Second

// NewPool builds a pool listening on QueueEmail.
func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	p := &Pool{
		rdb:      rdb,
		handlers: handlers,
		queues:   []string{QueueEmail},
	}
	p.dlq = func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
		SendToDLQ(ctx, rdb, queue, jobType, payload, reason, attempts)
	}
	return p
}

// Start launches numWorkers goroutines.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

// Wait blocks until every worker has returned. Workers return once the
// context given to Start is cancelled and their current job is settled.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, p.queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					select {
					case <-ctx.Done():
					case <-time.After(time.Second):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// deadLetter records a failed job even when ctx was cancelled by shutdown.
func (p *Pool) deadLetter(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadLetterTimeout)
	defer cancel()
	p.dlq(dctx, queue, jobType, payload, reason, attempts)
}

func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		p.deadLetter(ctx, queue, "", json.RawMessage(raw), "undecodable job: "+err.Error(), 0)
		return
	}

	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("job_type", job.Type).Str("queue", queue).Msg("no handler for job type")
		p.deadLetter(ctx, queue, job.Type, job.Payload, "no handler registered", 0)
		return
	}

	logger := log.With().Str("job_type", job.Type).Str("queue", queue).Logger()
	logger.Debug().Msg("processing job")
	if err := h.Process(ctx, job.Payload); err != nil {
		logger.Error().Err(err).Msg("job failed")
		p.deadLetter(ctx, queue, job.Type, job.Payload, err.Error(), attemptsOf(err))
		return
	}
	logger.Debug().Msg("job done")
}
