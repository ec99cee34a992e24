package websocket

import (
	"context"
	"errors"
	"strings"

	"instoo/internal/domain/streamer"
	"instoo/internal/events"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

const streamerChannelPrefix = "streamer:"

// StreamerChannel carries every event that concerns one streamer.
func StreamerChannel(id uuid.UUID) string {
	return streamerChannelPrefix + id.String()
}

type StreamerLookup interface {
	GetByUUID(ctx context.Context, id uuid.UUID) (streamer.Streamer, error)
}

// ChannelAuthorizer decides which feed channels a client may join.
type ChannelAuthorizer struct {
	streamers StreamerLookup
}

func NewChannelAuthorizer(streamers StreamerLookup) *ChannelAuthorizer {
	return &ChannelAuthorizer{streamers: streamers}
}

// CanSubscribe allows the two aggregate channels and the channel of any
// active streamer.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, channel string) (bool, error) {
	switch channel {
	case events.ChannelScheduleEvents, events.ChannelStreamerEvents:
		return true, nil
	}

	if !strings.HasPrefix(channel, streamerChannelPrefix) {
		return false, nil
	}
	id, err := uuid.Parse(strings.TrimPrefix(channel, streamerChannelPrefix))
	if err != nil {
		return false, nil
	}

	s, err := a.streamers.GetByUUID(ctx, id)
	if errors.Is(err, instoo_errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.IsActive, nil
}
