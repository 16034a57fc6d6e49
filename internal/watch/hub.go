// Package watch fans change notices out to live dashboard views. Mutating
// services call the hub after a successful commit; API consumers subscribe to
// a topic and re-fetch whenever a notice arrives, so the payload is just a
// timestamped hint, never data.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgredis "github.com/koekemoer93/kart-force-sub000/pkg/redis"

	"github.com/koekemoer93/kart-force-sub000/pkg/logger"
)

const (
	TopicInventory = "inventory"
	TopicRequests  = "supply_requests"
)

// Notice is the payload published on every change.
type Notice struct {
	Topic     string    `json:"topic"`
	ChangedAt time.Time `json:"changed_at"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	WatchChannel(name string) string
}

// Hub publishes and consumes change notices over Redis pub/sub.
type Hub struct {
	redis publisher
	logg  *logger.Logger
}

// NewHub constructs a hub. The logger is optional.
func NewHub(redisClient *pkgredis.Client, logg *logger.Logger) (*Hub, error) {
	if redisClient == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Hub{redis: redisClient, logg: logg}, nil
}

// InventoryChanged signals that item quantities or the ledger changed.
func (h *Hub) InventoryChanged(ctx context.Context) {
	h.publish(ctx, TopicInventory)
}

// RequestsChanged signals that a supply request was created or transitioned.
func (h *Hub) RequestsChanged(ctx context.Context) {
	h.publish(ctx, TopicRequests)
}

// publish is deliberately fire-and-forget: a missed notice only delays a
// dashboard refresh and must never fail the mutation that triggered it.
func (h *Hub) publish(ctx context.Context, topic string) {
	notice, err := json.Marshal(Notice{Topic: topic, ChangedAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := h.redis.Publish(ctx, h.redis.WatchChannel(topic), notice); err != nil && h.logg != nil {
		h.logg.Warn(h.logg.WithFields(ctx, map[string]any{"topic": topic}), "watch notice publish failed")
	}
}

// Subscribe delivers notices for one topic to fn until ctx is cancelled.
func Subscribe(ctx context.Context, redisClient *pkgredis.Client, topic string, fn func(Notice)) error {
	if redisClient == nil {
		return fmt.Errorf("redis client required")
	}
	if fn == nil {
		return fmt.Errorf("callback required")
	}

	sub, err := redisClient.Subscribe(ctx, redisClient.WatchChannel(topic))
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var notice Notice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				continue
			}
			fn(notice)
		}
	}
}
