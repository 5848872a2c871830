package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/chal0326/researchcms/internal/core/model"
	"github.com/chal0326/researchcms/internal/logger"
)

const (
	redisField     = "ref"
	redisBlock     = 5 * time.Second
	redisBatch     = 10
	redisClaimIdle = time.Minute
)

// Redis is a queue on a Redis stream read through a consumer group.
// Entries left pending longer than ClaimIdle are claimed and delivered again.
type Redis struct {
	ClaimIdle time.Duration

	rdb        *goredis.Client
	stream     string
	group      string
	consumer   string
	claimStart string
	log        *logger.Logger
}

func NewRedis(addr, password, stream, group string, log *logger.Logger) *Redis {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRedisWithClient(rdb, stream, group, log)
}

func NewRedisWithClient(rdb *goredis.Client, stream, group string, log *logger.Logger) *Redis {
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{
		ClaimIdle:  redisClaimIdle,
		rdb:        rdb,
		stream:     stream,
		group:      group,
		consumer:   consumerName(),
		claimStart: "0-0",
		log:        log,
	}
}

// consumerName is stable across restarts so a replacement process owns the
// entries its predecessor left pending.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "inquisitor"
	}
	return host
}

func (q *Redis) Send(ctx context.Context, ref model.DocumentRef) error {
	data, err := encode(ref)
	if err != nil {
		return err
	}
	return q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{redisField: string(data)},
	}).Err()
}

func (q *Redis) ensureGroup(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", q.group, err)
	}
	return nil
}

func (q *Redis) Consume(ctx context.Context, h Handler) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}
	q.log.Info("Redis consumer started", "stream", q.stream, "group", q.group, "consumer", q.consumer)

	for {
		if ctx.Err() != nil {
			return nil
		}
		q.reclaim(ctx, h)

		streams, err := q.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.consumer,
			Streams:  []string{q.stream, ">"},
			Count:    redisBatch,
			Block:    redisBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			q.log.Warn("Redis read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				q.handle(ctx, msg, h)
			}
		}
	}
}

// reclaim delivers one batch of entries that have sat unacknowledged for at
// least ClaimIdle, whichever consumer they were first read by.
func (q *Redis) reclaim(ctx context.Context, h Handler) {
	msgs, next, err := q.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.ClaimIdle,
		Start:    q.claimStart,
		Count:    redisBatch,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.log.Warn("Redis claim failed", "error", err)
		}
		return
	}
	q.claimStart = next
	for _, msg := range msgs {
		q.log.Info("Redelivering pending message", "id", msg.ID)
		q.handle(ctx, msg, h)
	}
}

func (q *Redis) handle(ctx context.Context, msg goredis.XMessage, h Handler) {
	raw, _ := msg.Values[redisField].(string)
	ref, err := decode([]byte(raw))
	if err != nil {
		q.log.Warn("Dropping undecodable message", "id", msg.ID, "error", err)
		q.ack(ctx, msg.ID)
		return
	}

	ack, err := h(ctx, ref)
	if err != nil {
		q.log.Warn("Failed to handle message", "id", msg.ID, "key", ref.Key, "error", err)
	}
	if ack {
		q.ack(ctx, msg.ID)
	}
}

func (q *Redis) ack(ctx context.Context, id string) {
	if err := q.rdb.XAck(ctx, q.stream, q.group, id).Err(); err != nil {
		q.log.Warn("Failed to ack message", "id", id, "error", err)
	}
}

func (q *Redis) Close() error {
	return q.rdb.Close()
}
