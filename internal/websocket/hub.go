// Package websocket streams committed schedule and streamer events to
// connected clients.
package websocket

import (
	"context"
	"sync"
)

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
	opUnsubscribe
)

// op requests go through one queue so a client's register always lands
// before its subscriptions.
type op struct {
	kind    opKind
	client  *Client
	channel string
}

// Hub tracks feed connections and the channels each one listens to.
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	ops chan op
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[*Client]struct{}),
		ops:      make(chan op, 512),
	}
}

// Run applies membership changes until ctx ends, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case o := <-h.ops:
			switch o.kind {
			case opRegister:
				h.addClient(o.client)
			case opUnregister:
				h.removeClient(o.client)
			case opSubscribe:
				h.subscribe(o.client, o.channel)
			case opUnsubscribe:
				h.unsubscribe(o.client, o.channel)
			}
		}
	}
}

func (h *Hub) Register(client *Client)   { h.ops <- op{kind: opRegister, client: client} }
func (h *Hub) Unregister(client *Client) { h.ops <- op{kind: opUnregister, client: client} }

func (h *Hub) Subscribe(client *Client, channel string) {
	h.ops <- op{kind: opSubscribe, client: client, channel: channel}
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.ops <- op{kind: opUnsubscribe, client: client, channel: channel}
}

// Broadcast queues payload for every subscriber of channel and reports how
// many accepted it. Slow clients with a full buffer miss the message.
func (h *Hub) Broadcast(channel string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.channels[channel] {
		if c.enqueue(payload) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	for _, channel := range client.Channels() {
		h.dropSubscriber(client, channel)
	}
	delete(h.clients, client.ID)
	client.closeSend()
}

func (h *Hub) subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
	}
	h.channels[channel][client] = struct{}{}
	client.track(channel, true)
}

func (h *Hub) unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropSubscriber(client, channel)
	client.track(channel, false)
}

// dropSubscriber expects h.mu to be held.
func (h *Hub) dropSubscriber(client *Client, channel string) {
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.closeSend()
		delete(h.clients, id)
	}
	h.channels = make(map[string]map[*Client]struct{})
}
