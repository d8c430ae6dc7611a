package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweeney/callwatch/internal/ami"
)

// Redis publishes derived notifications on Redis pub/sub channels, one
// channel per notification kind.
type Redis struct {
	emitter

	client  *redis.Client
	prefix  string
	timeout time.Duration
	errCb   func(error)
}

// RedisOptions configures the Redis reporter.
type RedisOptions struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string

	// OnError is called for publish failures, which are otherwise
	// swallowed so a flaky Redis cannot stall ingestion.
	OnError func(error)
}

// NewRedis creates a Redis reporter and verifies connectivity.
func NewRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis %s: %w", opts.Addr, err)
	}

	r := &Redis{
		client:  client,
		prefix:  opts.ChannelPrefix,
		timeout: 5 * time.Second,
		errCb:   opts.OnError,
	}
	r.emitter = emitter{emit: r.publish}
	return r, nil
}

func (r *Redis) publish(n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		r.fail(fmt.Errorf("marshaling %s notification: %w", n.Kind, err))
		return
	}

	channel := fmt.Sprintf("%s.%s", r.prefix, n.Kind)
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		r.fail(fmt.Errorf("publishing to %s: %w", channel, err))
	}
}

func (r *Redis) fail(err error) {
	if r.errCb != nil {
		r.errCb(err)
	}
}

func (r *Redis) OnEvent(ami.Event) {}

func (r *Redis) Close() error {
	return r.client.Close()
}
