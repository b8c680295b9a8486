package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/talentflow/internal/clock"
	"github.com/smallbiznis/talentflow/internal/config"
	"github.com/smallbiznis/talentflow/internal/observability/metrics"
	"github.com/smallbiznis/talentflow/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	relayLeaseName = "outbox-relay"
	relayLeaseTTL  = 30 * time.Second
)

// Sink delivers one event to the notification fan-out.
type Sink interface {
	Send(ctx context.Context, channel string, payload []byte) error
}

type redisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) Sink {
	if client == nil {
		return nil
	}
	return &redisSink{client: client}
}

func (s *redisSink) Send(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

type RelayParams struct {
	fx.In

	Config  config.Config
	Store   *Store
	Client  *redis.Client     `optional:"true"`
	Leaser  *ratelimit.Leaser `optional:"true"`
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Recruitment `optional:"true"`
}

// Relay forwards committed outbox rows to redis pub/sub. It never changes
// recruitment state.
type Relay struct {
	store     *Store
	sink      Sink
	leaser    *ratelimit.Leaser
	log       *zap.Logger
	clock     clock.Clock
	metrics   *metrics.Recruitment
	prefix    string
	batchSize int
	interval  time.Duration
	enabled   bool
}

func NewRelay(p RelayParams) *Relay {
	prefix := strings.TrimSpace(p.Config.Relay.Channel)
	if prefix == "" {
		prefix = "talentflow"
	}
	return &Relay{
		store:     p.Store,
		sink:      NewRedisSink(p.Client),
		leaser:    p.Leaser,
		log:       p.Log.Named("events.relay"),
		clock:     p.Clock,
		metrics:   p.Metrics,
		prefix:    prefix,
		batchSize: p.Config.Relay.BatchSize,
		interval:  p.Config.Relay.Interval,
		enabled:   p.Config.Relay.Enabled,
	}
}

// WithSink swaps the delivery target.
func (r *Relay) WithSink(s Sink) *Relay {
	r.sink = s
	return r
}

func (r *Relay) Channel(topic string) string {
	return r.prefix + "." + topic
}

// Tick delivers one batch. With a leaser configured only one replica
// relays at a time.
func (r *Relay) Tick(ctx context.Context) error {
	if r.sink == nil {
		return nil
	}

	var lease *ratelimit.Lease
	if r.leaser != nil {
		var err error
		lease, err = r.leaser.Acquire(ctx, relayLeaseName, relayLeaseTTL)
		if err != nil {
			return fmt.Errorf("acquire relay lease: %w", err)
		}
		if lease == nil {
			r.log.Debug("relay lease held elsewhere; skipping tick")
			return nil
		}
		defer func() {
			if err := lease.Release(context.Background()); err != nil {
				r.log.Warn("failed to release relay lease", zap.Error(err))
			}
		}()
	}

	rows, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("fetch pending events: %w", err)
	}

	for _, row := range rows {
		if err := r.sink.Send(ctx, r.Channel(row.EventType), row.Payload); err != nil {
			r.metrics.IncRelayFailed(row.EventType)
			return fmt.Errorf("send event %s: %w", row.ID, err)
		}
		if err := r.store.MarkPublished(ctx, row.ID, r.clock.Now()); err != nil {
			return fmt.Errorf("mark event %s published: %w", row.ID, err)
		}
		r.metrics.IncRelayPublished(row.EventType)

		if lease != nil {
			held, err := lease.Extend(ctx)
			if err != nil {
				return fmt.Errorf("extend relay lease: %w", err)
			}
			if !held {
				r.log.Warn("relay lease lost mid-batch")
				return nil
			}
		}
	}
	if len(rows) > 0 {
		r.log.Info("relayed events", zap.Int("count", len(rows)))
	}
	if pending, err := r.store.CountPending(ctx); err == nil {
		r.metrics.SetRelayBacklog(int(pending))
	}
	return nil
}

// RegisterRelay schedules Tick on the configured interval for the lifetime
// of the app.
func RegisterRelay(lc fx.Lifecycle, r *Relay) error {
	if !r.enabled || r.sink == nil {
		r.log.Info("outbox relay disabled")
		return nil
	}

	interval := r.interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	c := cron.New(
		cron.WithLogger(cronLogger{log: r.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log: r.log})),
	)
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		if err := r.Tick(ctx); err != nil {
			r.log.Warn("relay tick failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			r.log.Info("outbox relay started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			done := c.Stop()
			select {
			case <-done.Done():
			case <-ctx.Done():
			}
			r.log.Info("outbox relay stopped")
			return nil
		},
	})
	return nil
}

type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
