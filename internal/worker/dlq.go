package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces dead letter lists: dlq:jobs:email holds the failed
// jobs of jobs:email.
const DLQPrefix = "dlq:"

// DeadLetter is a failed job kept for manual inspection.
type DeadLetter struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	FailedAt time.Time       `json:"failed_at"`
}

// SendToDLQ records a failed job. Errors are logged, never returned: the job
// is already lost to its queue at this point.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DeadLetter{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal failed")
		return
	}
	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: push failed")
		return
	}
	log.Warn().Str("queue", queue).Str("job_type", jobType).Int("attempts", attempts).
		Str("reason", reason).Msg("dlq: job dead-lettered")
}

// DLQLength returns the number of dead letters for queue.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
