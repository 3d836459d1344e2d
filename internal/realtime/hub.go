// Package realtime provides the push channel: every user has a dedicated
// redis pub/sub channel, and presence is a TTL key refreshed while a
// stream is attached. Delivery is best-effort; nothing is acknowledged.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event is a single push frame delivered to a connected user.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans push events out to per-user channels.
type Hub struct {
	client      *redis.Client
	presenceTTL time.Duration
	logger      *zap.Logger
}

// NewHub constructs a Hub on top of an existing redis client.
func NewHub(client *redis.Client, presenceTTL time.Duration, logger *zap.Logger) *Hub {
	if presenceTTL <= 0 {
		presenceTTL = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{client: client, presenceTTL: presenceTTL, logger: logger}
}

func userChannel(userID string) string {
	return "rt:user:" + userID
}

func presenceKey(userID string) string {
	return "rt:online:" + userID
}

// EmitToUser publishes an event on the user's channel. A user with no
// attached stream simply receives nothing; that is not an error.
func (h *Hub) EmitToUser(ctx context.Context, userID, event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}
	frame, err := json.Marshal(Event{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal push frame: %w", err)
	}
	if err := h.client.Publish(ctx, userChannel(userID), frame).Err(); err != nil {
		return fmt.Errorf("publish push frame: %w", err)
	}
	return nil
}

// IsReachable reports whether the user currently has a stream attached.
func (h *Hub) IsReachable(ctx context.Context, userID string) bool {
	n, err := h.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// Attach subscribes the user and marks them online. Events arrive on the
// returned channel until ctx is cancelled or detach is called; presence is
// refreshed on a heartbeat while attached.
func (h *Hub) Attach(ctx context.Context, userID string) (<-chan Event, func()) {
	sub := h.client.Subscribe(ctx, userChannel(userID))
	events := make(chan Event, 16)

	attachCtx, cancel := context.WithCancel(ctx)

	if err := h.client.Set(attachCtx, presenceKey(userID), "1", h.presenceTTL).Err(); err != nil {
		h.logger.Warn("presence set failed", zap.String("user_id", userID), zap.Error(err))
	}

	go func() {
		defer close(events)
		ticker := time.NewTicker(h.presenceTTL / 3)
		defer ticker.Stop()

		msgs := sub.Channel()
		for {
			select {
			case <-attachCtx.Done():
				return
			case <-ticker.C:
				if err := h.client.Expire(attachCtx, presenceKey(userID), h.presenceTTL).Err(); err != nil && attachCtx.Err() == nil {
					h.logger.Warn("presence refresh failed", zap.String("user_id", userID), zap.Error(err))
				}
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					h.logger.Warn("malformed push frame", zap.String("user_id", userID), zap.Error(err))
					continue
				}
				select {
				case events <- evt:
				default:
					// Slow consumer; push is best-effort, drop the frame.
				}
			}
		}
	}()

	detach := func() {
		cancel()
		_ = sub.Close()
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cleanupCancel()
		_ = h.client.Del(cleanupCtx, presenceKey(userID)).Err()
	}
	return events, detach
}
