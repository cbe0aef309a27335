package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultQueueName = "rooms_events"

type RedisOptions struct {
	Addr  string
	DB    int
	Queue string
	// MaxLen caps the list; older events are trimmed. Zero keeps everything.
	MaxLen int64
	Buffer int
}

// Redis pushes events as JSON onto a Redis list from a background writer.
// Record never blocks.
type Redis struct {
	rdb    *redis.Client
	opts   RedisOptions
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Queue == "" {
		opts.Queue = DefaultQueueName
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	j := &Redis{
		rdb:    rdb,
		opts:   opts,
		events: make(chan Event, opts.Buffer),
		done:   make(chan struct{}),
	}
	go j.loop()
	return j, nil
}

// Record drops the event when the writer is too far behind.
func (j *Redis) Record(_ context.Context, ev Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return
	}
	select {
	case j.events <- stamp(ev):
	default:
		log.Warn().Str("module", "journal").Str("type", string(ev.Type)).Msg("journal buffer full, event dropped")
	}
}

func (j *Redis) loop() {
	defer close(j.done)
	for ev := range j.events {
		if err := j.push(ev); err != nil {
			log.Error().Err(err).Str("module", "journal").Str("type", string(ev.Type)).Msg("journal push")
		}
	}
}

func (j *Redis) push(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipe := j.rdb.TxPipeline()
	pipe.RPush(ctx, j.opts.Queue, data)
	if j.opts.MaxLen > 0 {
		pipe.LTrim(ctx, j.opts.Queue, -j.opts.MaxLen, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", j.opts.Queue, err)
	}
	return nil
}

// Close flushes pending events and closes the client. Later records are
// discarded.
func (j *Redis) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.events)
	j.mu.Unlock()
	<-j.done
	return j.rdb.Close()
}
