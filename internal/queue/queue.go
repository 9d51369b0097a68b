// Package queue is a small redis-backed delivery queue. Ready jobs live in
// a list, retries wait in a sorted set scored by their run time, and jobs
// that exhaust their attempts land in a dead list for inspection.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/rollcall/internal/jobs"
	"github.com/redis/go-redis/v9"
)

var (
	ErrEmpty = errors.New("queue empty")
	// ErrMalformedJob means a ready entry could not be decoded. The raw entry
	// has already been moved to the dead list.
	ErrMalformedJob = errors.New("malformed job")
)

const defaultPrefix = "rollcall:jobs"

type Queue struct {
	rdb   *redis.Client
	ready string
	delay string
	dead  string
	now   func() time.Time
}

func New(rdb *redis.Client, prefix string) *Queue {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Queue{
		rdb:   rdb,
		ready: prefix + ":ready",
		delay: prefix + ":delayed",
		dead:  prefix + ":dead",
		now:   time.Now,
	}
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	if j.RunAt.After(q.now()) {
		return q.rdb.ZAdd(ctx, q.delay, redis.Z{
			Score:  float64(j.RunAt.UnixMilli()),
			Member: raw,
		}).Err()
	}
	return q.rdb.LPush(ctx, q.ready, raw).Err()
}

// Dequeue blocks up to wait for a ready job. It returns ErrEmpty when
// nothing arrived in time.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.ready).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}
		return jobs.Job{}, err
	}

	// BRPOP answers [key, value]
	var j jobs.Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		malformed := fmt.Errorf("%w: %v", ErrMalformedJob, err)
		if perr := q.rdb.LPush(ctx, q.dead, res[1]).Err(); perr != nil {
			return jobs.Job{}, errors.Join(malformed, fmt.Errorf("dead letter raw entry: %w", perr))
		}
		return jobs.Job{}, malformed
	}
	return j, nil
}

// Retry schedules a failed job to run again after delay.
func (q *Queue) Retry(ctx context.Context, j jobs.Job, delay time.Duration, cause error) error {
	now := q.now().UTC()
	msg := cause.Error()
	j.LastError = &msg
	j.RunAt = now.Add(delay)
	j.UpdatedAt = now
	return q.Enqueue(ctx, j)
}

func (q *Queue) DeadLetter(ctx context.Context, j jobs.Job, cause error) error {
	msg := cause.Error()
	j.LastError = &msg
	j.UpdatedAt = q.now().UTC()

	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.rdb.LPush(ctx, q.dead, raw).Err()
}

// PromoteDue moves delayed jobs whose run time has passed onto the ready
// list. ZREM decides ownership so two workers never promote the same job.
func (q *Queue) PromoteDue(ctx context.Context, max int64) (int, error) {
	due, err := q.rdb.ZRangeByScore(ctx, q.delay, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: max,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, raw := range due {
		removed, err := q.rdb.ZRem(ctx, q.delay, raw).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.ready, raw).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

type Depth struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

func (q *Queue) Depth(ctx context.Context) (Depth, error) {
	var d Depth
	var err error

	if d.Ready, err = q.rdb.LLen(ctx, q.ready).Result(); err != nil {
		return d, err
	}
	if d.Delayed, err = q.rdb.ZCard(ctx, q.delay).Result(); err != nil {
		return d, err
	}
	if d.Dead, err = q.rdb.LLen(ctx, q.dead).Result(); err != nil {
		return d, err
	}
	return d, nil
}
