package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotter-org/chat-backend/internal/logger"
)

const publishTimeout = 2 * time.Second

type RedisPubSub struct {
	log        *logger.Logger
	client     *redis.Client
	channel    string
	origin     string
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// envelope tags a message with the node that published it, so the publisher can skip
// its own echo.
type envelope struct {
	Origin  string  `json:"origin"`
	Message Message `json:"message"`
}

func NewRedisPubSub(log *logger.Logger, address, password, channel, origin string) (*RedisPubSub, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisPubSub{
		log:     log.With("component", "RedisPubSub"),
		client:  rdb,
		channel: channel,
		origin:  origin,
	}, nil
}

func (rp *RedisPubSub) StartSubscriber(hub *Hub) error {
	ctx, cancel := context.WithCancel(context.Background())
	rp.mu.Lock()
	rp.cancelFunc = cancel
	rp.mu.Unlock()

	pubsub := rp.client.Subscribe(ctx, rp.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}
	rp.log.Info("RedisPubSub subscribed successfully", "channel", rp.channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				rp.log.Debug("Redis pubsub context done, stopping subscription goroutine")
				return
			case msg, ok := <-ch:
				if !ok {
					rp.log.Debug("PubSub channel closed, stopping subscription goroutine")
					return
				}
				env, err := decodePubSubMessage(msg.Payload)
				if err != nil {
					rp.log.Warn("Failed to decode pubsub message", "error", err)
					continue
				}
				if env.Origin == rp.origin {
					continue
				}
				hub.localBroadcast(env.Message)
			}
		}
	}()
	return nil
}

func (rp *RedisPubSub) Publish(ctx context.Context, msg Message) error {
	payload, err := encodePubSubMessage(envelope{Origin: rp.origin, Message: msg})
	if err != nil {
		rp.log.Warn("failed to encode message for redis", "error", err)
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return rp.client.Publish(ctx, rp.channel, payload).Err()
}

func (rp *RedisPubSub) Stop() {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	if rp.cancelFunc != nil {
		rp.cancelFunc()
		rp.cancelFunc = nil
	}
	_ = rp.client.Close()
}

func encodePubSubMessage(e envelope) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodePubSubMessage(payload string) (envelope, error) {
	var e envelope
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return e, fmt.Errorf("json unmarshal failed: %w", err)
	}
	return e, nil
}
