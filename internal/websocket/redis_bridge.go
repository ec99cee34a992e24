package websocket

import (
	"context"
	"encoding/json"

	"instoo/internal/events"

	"github.com/google/uuid"
)

// Bridge relays envelopes published by the outbox worker into the hub.
type Bridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewBridge(subscriber events.Subscriber, hub *Hub) *Bridge {
	return &Bridge{subscriber: subscriber, hub: hub}
}

func (b *Bridge) Run(ctx context.Context) error {
	channels := []string{events.ChannelScheduleEvents, events.ChannelStreamerEvents}
	return b.subscriber.Subscribe(ctx, channels, b.relay)
}

func (b *Bridge) relay(channel string, payload []byte) {
	b.hub.Broadcast(channel, payload)
	if id, ok := streamerOf(payload); ok {
		b.hub.Broadcast(StreamerChannel(id), payload)
	}
}

// streamerOf finds the streamer an envelope concerns, either as its aggregate
// or through the streamerUuid field of the payload.
func streamerOf(payload []byte) (uuid.UUID, bool) {
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return uuid.Nil, false
	}
	if env.AggregateType == events.AggregateTypeStreamer {
		if id, err := uuid.Parse(env.AggregateID); err == nil {
			return id, true
		}
	}

	var body struct {
		StreamerUUID uuid.UUID `json:"streamerUuid"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil || body.StreamerUUID == uuid.Nil {
		return uuid.Nil, false
	}
	return body.StreamerUUID, true
}
