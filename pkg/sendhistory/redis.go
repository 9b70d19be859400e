package sendhistory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Redis keeps one sorted set per contact, scored by send time in milliseconds.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects to the Redis server at url (redis://host:port/db).
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Record(ctx context.Context, organizationID, contactID string, at time.Time) error {
	err := validateKey(organizationID, contactID)
	if err != nil {
		return err
	}

	k := key(organizationID, contactID)

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+score(at.Add(-Retention)))
		pipe.Expire(ctx, k, Retention)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record send for contact %s: %w", contactID, err)
	}

	return nil
}

func (r *Redis) Count(ctx context.Context, organizationID, contactID string, from, to time.Time) (int, error) {
	err := validateKey(organizationID, contactID)
	if err != nil {
		return 0, err
	}

	count, err := r.client.ZCount(ctx, key(organizationID, contactID), "("+score(from), score(to)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count sends for contact %s: %w", contactID, err)
	}

	return int(count), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func key(organizationID, contactID string) string {
	return "journey:sends:" + organizationID + ":" + contactID
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
