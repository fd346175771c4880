package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"Jukebox/queue"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
)

// envelope is the message published on a room channel
type envelope struct {
	InstanceID  string            `json:"instance_id"`
	Origin      string            `json:"origin"`
	State       queue.SharedState `json:"state"`
	PublishedAt time.Time         `json:"published_at"`
}

type RelayStats struct {
	Published int64 `json:"published"` // Updates sent to Redis
	Received  int64 `json:"received"`  // Updates from other instances put on the bus
	Dropped   int64 `json:"dropped"`   // Updates from this instance ignored
	Failed    int64 `json:"failed"`    // Publish or decode failures, including updates the outbox had no room for
}

// outboxSize bounds the local updates waiting to be sent to Redis
const outboxSize = 256

// RedisRelay mirrors a Bus across processes over Redis pub/sub
type RedisRelay struct {
	bus        *Bus
	redis      *redis.Client
	instanceID string
	prefix     string

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	ready       chan struct{}
	outbox      chan Update // Local updates in delivery order, drained by publishLoop

	stats RelayStats

	reconnectInterval time.Duration
}

func NewRedisRelay(bus *Bus, rdb *redis.Client, instanceID, prefix string) *RedisRelay {
	return &RedisRelay{
		bus:               bus,
		redis:             rdb,
		instanceID:        instanceID,
		prefix:            prefix,
		ready:             make(chan struct{}),
		outbox:            make(chan Update, outboxSize),
		reconnectInterval: 2 * time.Second,
	}
}

// Start forwards local updates to Redis and remote updates to the bus until
// ctx is cancelled or Stop is called. Local updates are queued and sent in
// the background so a slow Redis never holds up the bus.
func (r *RedisRelay) Start(ctx context.Context) {
	subCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.unsubscribe = r.bus.Subscribe(func(u Update) {
		if u.Remote {
			return
		}
		select {
		case r.outbox <- u:
		default:
			atomic.AddInt64(&r.stats.Failed, 1)
			log.Info("Relay outbox full, dropping update for room " + u.State.RoomCode)
		}
	})

	r.wg.Add(2)
	go r.publishLoop(subCtx)
	go r.subscribeLoop(subCtx)
}

// Ready is closed once the first subscription is established
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

func (r *RedisRelay) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *RedisRelay) Stats() RelayStats {
	return RelayStats{
		Published: atomic.LoadInt64(&r.stats.Published),
		Received:  atomic.LoadInt64(&r.stats.Received),
		Dropped:   atomic.LoadInt64(&r.stats.Dropped),
		Failed:    atomic.LoadInt64(&r.stats.Failed),
	}
}

func (r *RedisRelay) channel(code string) string {
	return r.prefix + ":" + code
}

func (r *RedisRelay) publish(ctx context.Context, u Update) error {
	data, err := json.Marshal(envelope{
		InstanceID:  r.instanceID,
		Origin:      u.Origin,
		State:       u.State,
		PublishedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	channel := r.channel(u.State.RoomCode)
	if err := r.redis.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	atomic.AddInt64(&r.stats.Published, 1)
	return nil
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-r.outbox:
			if err := r.publish(ctx, u); err != nil {
				atomic.AddInt64(&r.stats.Failed, 1)
				log.WithError(err).Error("Failed to relay room update")
			}
		}
	}
}

func (r *RedisRelay) subscribeLoop(ctx context.Context) {
	defer r.wg.Done()

	var readyOnce sync.Once
	for {
		pubsub := r.redis.PSubscribe(ctx, r.prefix+":*")
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("Failed to subscribe to room updates")
		} else {
			readyOnce.Do(func() { close(r.ready) })
			r.receive(ctx, pubsub)
			pubsub.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.reconnectInterval):
			log.Info("Reconnecting to room update channel")
		}
	}
}

func (r *RedisRelay) receive(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg)
		}
	}
}

func (r *RedisRelay) handle(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		atomic.AddInt64(&r.stats.Failed, 1)
		log.WithError(err).Error("Failed to decode room update")
		return
	}
	if env.InstanceID == r.instanceID {
		atomic.AddInt64(&r.stats.Dropped, 1)
		return
	}
	if code := strings.TrimPrefix(msg.Channel, r.prefix+":"); code != env.State.RoomCode {
		atomic.AddInt64(&r.stats.Failed, 1)
		return
	}

	atomic.AddInt64(&r.stats.Received, 1)
	r.bus.Publish(Update{Origin: env.Origin, Remote: true, State: env.State})
}
