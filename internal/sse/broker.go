package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/metrics"
	redisclient "github.com/sxk/signal-link/internal/redis"
	"github.com/sxk/signal-link/internal/util"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

const (
	EventConnected = "connected"
	EventPairing   = "pairing"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is one open event stream for a session code.
type Client struct {
	SessionCode string
	Events      chan Event
	Done        chan struct{}
}

// Broker fans pairing changes out to every stream of a session. Publishes go
// through Redis so streams on any server instance receive them.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // sessionCode -> set of clients
	subs    map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(sessionCode string) *Client {
	client := &Client{
		SessionCode: sessionCode,
		Events:      make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[sessionCode] == nil {
		b.clients[sessionCode] = make(map[*Client]bool)
		subCtx, cancel := context.WithCancel(b.ctx)
		b.subs[sessionCode] = cancel
		go b.subscribeToRedis(subCtx, sessionCode)
	}
	b.clients[sessionCode][client] = true
	clientCount := len(b.clients[sessionCode])
	b.mu.Unlock()

	metrics.IncSSEActive()
	log.Info().
		Str("sessionCode", util.MaskCode(sessionCode)).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.SessionCode]; ok {
		if _, present := clients[client]; !present {
			return
		}
		delete(clients, client)
		close(client.Done)
		metrics.DecSSEActive()

		if len(clients) == 0 {
			delete(b.clients, client.SessionCode)
			if cancel, ok := b.subs[client.SessionCode]; ok {
				cancel()
				delete(b.subs, client.SessionCode)
			}
		}

		log.Info().
			Str("sessionCode", util.MaskCode(client.SessionCode)).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

// Publish sends event to every stream of sessionCode.
func (b *Broker) Publish(ctx context.Context, sessionCode string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.PairingChannel(sessionCode)
	return b.redis.Publish(ctx, channel, data).Err()
}

// PublishJSON marshals data as the payload of an event of eventType.
func (b *Broker) PublishJSON(ctx context.Context, sessionCode, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return b.Publish(ctx, sessionCode, Event{Type: eventType, Data: raw})
}

// subscribeToRedis relays the session's channel until ctx is cancelled by the
// last unsubscribe or by Close.
func (b *Broker) subscribeToRedis(ctx context.Context, sessionCode string) {
	channel := redisclient.PairingChannel(sessionCode)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("sessionCode", util.MaskCode(sessionCode)).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(sessionCode, event)
		}
	}
}

// broadcast drops the event for any client whose buffer is full.
func (b *Broker) broadcast(sessionCode string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[sessionCode] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("sessionCode", util.MaskCode(sessionCode)).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
			metrics.DecSSEActive()
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(sessionCode string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[sessionCode])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
