package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "pipeline:"
	channelSuffix  = ":progress"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans pipeline progress out to websocket clients. With Redis configured
// every message goes through pub/sub so clients attached to any instance see
// runs executed on any other.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	log     *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RunID string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Warn("progress subscribe failed, delivering locally", zap.Error(err))
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.subscribeRedis(pubsub)
		}
	}
	return h
}

func (h *Hub) Register(runID string) *Client {
	client := &Client{
		RunID: runID,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[runID] == nil {
		h.clients[runID] = map[*Client]struct{}{}
	}
	h.clients[runID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if runClients, ok := h.clients[client.RunID]; ok {
		delete(runClients, client)
		if len(runClients) == 0 {
			delete(h.clients, client.RunID)
		}
	}
	close(client.Send)
}

// Broadcast publishes payload to every client watching runID.
func (h *Hub) Broadcast(runID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(runID), payload).Err()
		if err == nil {
			return
		}
		h.log.Warn("redis publish error", zap.String("run_id", runID), zap.Error(err))
	}
	h.deliver(runID, payload)
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(runID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[runID] {
		select {
		case client.Send <- payload:
		default:
			h.log.Debug("dropping progress message for slow client", zap.String("run_id", runID))
		}
	}
}

func (h *Hub) subscribeRedis(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		runID := runIDFromChannel(msg.Channel)
		if runID == "" {
			continue
		}
		h.deliver(runID, []byte(msg.Payload))
	}
}

func redisChannel(runID string) string {
	return channelPrefix + runID + channelSuffix
}

func runIDFromChannel(ch string) string {
	// pipeline:{run}:progress
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
