package events

import "context"

// Publisher delivers an encoded envelope to one destination.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscriber calls handle for every message on channels until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channels []string, handle func(channel string, payload []byte)) error
}

const (
	ChannelScheduleEvents = "schedule-events"
	ChannelStreamerEvents = "streamer-events"
)

// ChannelResolver determines where an envelope is published.
type ChannelResolver interface {
	ResolveChannel(env Envelope) string
}

// AggregateChannelResolver routes by aggregate type.
type AggregateChannelResolver struct{}

func NewAggregateChannelResolver() *AggregateChannelResolver {
	return &AggregateChannelResolver{}
}

func (r *AggregateChannelResolver) ResolveChannel(env Envelope) string {
	switch env.AggregateType {
	case AggregateTypeStreamer:
		return ChannelStreamerEvents
	default:
		return ChannelScheduleEvents
	}
}
