package redis

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	streamChannelPrefix = "ride:"
	streamChannelSuffix = ":snapshots"
)

// StreamClient is one live subscriber to a rider's ride snapshots.
type StreamClient struct {
	RiderID string
	Send    chan []byte
}

// StreamHub fans ride snapshots out to websocket subscribers.
// With a Redis client, broadcasts go through Redis pub/sub so every
// instance delivers to its own subscribers. Without one, delivery is local.
type StreamHub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*StreamClient]struct{}
	mu      sync.RWMutex
}

// NewStreamHub creates a hub. A nil client gives a local-only hub.
func NewStreamHub(ctx context.Context, client *redis.Client) *StreamHub {
	h := &StreamHub{
		clients: map[string]map[*StreamClient]struct{}{},
	}

	if client != nil {
		pubsub := client.PSubscribe(ctx, streamChannelPrefix+"*"+streamChannelSuffix)
		// Wait for the subscription to be confirmed so no broadcast is lost.
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Printf("[stream] redis subscribe failed, falling back to local delivery: %v", err)
			pubsub.Close()
		} else {
			h.redis = client
			h.pubsub = pubsub
			go h.subscribeRedis(pubsub.Channel())
		}
	}
	return h
}

// Register adds a subscriber for a rider.
func (h *StreamHub) Register(riderID string) *StreamClient {
	client := &StreamClient{
		RiderID: riderID,
		Send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[riderID] == nil {
		h.clients[riderID] = map[*StreamClient]struct{}{}
	}
	h.clients[riderID][client] = struct{}{}
	return client
}

// Unregister removes a subscriber and closes its Send channel.
func (h *StreamHub) Unregister(client *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	riderClients, ok := h.clients[client.RiderID]
	if !ok {
		return
	}
	if _, ok := riderClients[client]; !ok {
		return
	}
	delete(riderClients, client)
	if len(riderClients) == 0 {
		delete(h.clients, client.RiderID)
	}
	close(client.Send)
}

// Broadcast sends a payload to every subscriber of the rider.
func (h *StreamHub) Broadcast(riderID string, payload []byte) {
	if h.redis == nil {
		h.deliver(riderID, payload)
		return
	}

	if err := h.redis.Publish(context.Background(), streamChannel(riderID), payload).Err(); err != nil {
		log.Printf("[stream] redis publish error: %v", err)
		h.deliver(riderID, payload)
	}
}

// Close stops the Redis subscription.
func (h *StreamHub) Close() error {
	if h.pubsub != nil {
		return h.pubsub.Close()
	}
	return nil
}

// deliver drops the payload for subscribers whose buffer is full.
func (h *StreamHub) deliver(riderID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[riderID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *StreamHub) subscribeRedis(messages <-chan *redis.Message) {
	for msg := range messages {
		riderID := riderIDFromChannel(msg.Channel)
		if riderID == "" {
			continue
		}
		h.deliver(riderID, []byte(msg.Payload))
	}
}

func streamChannel(riderID string) string {
	return streamChannelPrefix + riderID + streamChannelSuffix
}

func riderIDFromChannel(ch string) string {
	// ride:{rider}:snapshots
	if !strings.HasPrefix(ch, streamChannelPrefix) || !strings.HasSuffix(ch, streamChannelSuffix) {
		return ""
	}
	if len(ch) <= len(streamChannelPrefix)+len(streamChannelSuffix) {
		return ""
	}
	return ch[len(streamChannelPrefix) : len(ch)-len(streamChannelSuffix)]
}
