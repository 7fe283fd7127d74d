package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mythic3011/AED-Api/internal/domain"
)

// ErrQueueEmpty reports that BRPop timed out with nothing to consume.
var ErrQueueEmpty = errors.New("refresh queue is empty")

// RefreshQueue carries dataset refresh jobs from the admin endpoint to
// the background worker so a slow upstream download never blocks an
// HTTP request.
type RefreshQueue struct {
	client *redis.Client
	key    string
}

func NewRefreshQueue(client *redis.Client, key string) *RefreshQueue {
	return &RefreshQueue{client: client, key: key}
}

func (q *RefreshQueue) Enqueue(ctx context.Context, job domain.RefreshJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

func (q *RefreshQueue) BRPop(ctx context.Context, timeout time.Duration) (domain.RefreshJob, error) {
	var job domain.RefreshJob

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return job, ErrQueueEmpty
		}
		return job, err
	}
	if len(res) < 2 {
		return job, redis.Nil
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return job, err
	}
	return job, nil
}
