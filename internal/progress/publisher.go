package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const (
	EventBlockScanned = "block_scanned"
	EventHeightUndone = "height_undone"

	defaultQueueSize = 1024
	publishTimeout   = 5 * time.Second
	pingTimeout      = 5 * time.Second
)

var eventsPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "colorscanner_events_published_total",
		Help: "Index events handed to the event stream by result",
	},
	[]string{"result"},
)

// Event is one index change appended to the stream.
type Event struct {
	Type      string    `json:"type"`
	Height    int64     `json:"height"`
	Hash      string    `json:"hash,omitempty"`
	TxCount   int       `json:"txCount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StreamWriter is the part of the Redis client the publisher uses.
type StreamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher appends index events to a Redis stream. Events are queued and written by
// Run, so the scanning goroutine never waits on Redis; when the queue is full events are dropped.
type Publisher struct {
	client StreamWriter
	closer func() error
	stream string
	maxLen int64
	queue  chan Event
	now    func() time.Time
	log    *logger.Logger
}

// NewPublisher connects to Redis and creates a Publisher.
func NewPublisher(ctx context.Context, cfg config.EventsConfig, log *logger.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddress, err)
	}

	p := newPublisher(client, cfg, defaultQueueSize, log)
	p.closer = client.Close

	return p, nil
}

func newPublisher(client StreamWriter, cfg config.EventsConfig, queueSize int, log *logger.Logger) *Publisher {
	return &Publisher{
		client: client,
		closer: func() error { return nil },
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		queue:  make(chan Event, queueSize),
		now:    time.Now,
		log:    log,
	}
}

// OnProgress implements scanner.ProgressObserver. Progress is not published.
func (*Publisher) OnProgress(scanner.Progress) {}

// OnBlockScanned implements scanner.EventObserver.
func (p *Publisher) OnBlockScanned(height int64, hash chainhash.Hash, txCount int) {
	p.enqueue(Event{Type: EventBlockScanned, Height: height, Hash: hash.String(), TxCount: txCount})
}

// OnHeightUndone implements scanner.EventObserver.
func (p *Publisher) OnHeightUndone(height int64) {
	p.enqueue(Event{Type: EventHeightUndone, Height: height})
}

func (p *Publisher) enqueue(ev Event) {
	ev.Timestamp = p.now().UTC()

	select {
	case p.queue <- ev:
	default:
		eventsPublished.WithLabelValues("dropped").Inc()
		p.log.Warnw("event queue full, dropping event", "type", ev.Type, "height", ev.Height)
	}
}

// Run writes queued events until ctx is done, then flushes what is still queued.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case ev := <-p.queue:
			p.publish(ctx, ev)
		case <-ctx.Done():
			p.flush()
			return nil
		}
	}
}

func (p *Publisher) flush() {
	ctx := context.Background()
	for {
		select {
		case ev := <-p.queue:
			p.publish(ctx, ev)
		default:
			return
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		eventsPublished.WithLabelValues("error").Inc()
		p.log.Errorw("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"type":    ev.Type,
			"height":  ev.Height,
			"payload": payload,
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		eventsPublished.WithLabelValues("error").Inc()
		p.log.Errorw("failed to publish event", "stream", p.stream, "type", ev.Type, "height", ev.Height, "error", err)
		return
	}

	eventsPublished.WithLabelValues("ok").Inc()
	p.log.Debugw("event published", "stream", p.stream, "id", id, "type", ev.Type, "height", ev.Height)
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if err := p.closer(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
