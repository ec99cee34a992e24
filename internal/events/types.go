package events

import "github.com/google/uuid"

// Event types follow the format: aggregate.action

// Schedule events
const (
	EventTypeScheduleCreated = "schedule.created"
	EventTypeScheduleUpdated = "schedule.updated"
	EventTypeScheduleDeleted = "schedule.deleted"
	EventTypeScheduleLiked   = "schedule.liked"
	EventTypeScheduleUnliked = "schedule.unliked"
)

// Streamer events
const (
	EventTypeStreamerCreated    = "streamer.created"
	EventTypeStreamerUpdated    = "streamer.updated"
	EventTypeStreamerDeleted    = "streamer.deleted"
	EventTypeStreamerVerified   = "streamer.verified"
	EventTypeStreamerFollowed   = "streamer.followed"
	EventTypeStreamerUnfollowed = "streamer.unfollowed"
)

// Aggregate type constants
const (
	AggregateTypeSchedule = "schedule"
	AggregateTypeStreamer = "streamer"
)

// ScheduleChanged is the payload of create, update and delete events.
type ScheduleChanged struct {
	ScheduleUUID uuid.UUID `json:"scheduleUuid"`
	StreamerUUID uuid.UUID `json:"streamerUuid"`
	ScheduleDate string    `json:"scheduleDate"`
	Status       string    `json:"status"`
	Version      int       `json:"version"`
	ActorUUID    uuid.UUID `json:"actorUuid"`
}

type ScheduleLikeChanged struct {
	ScheduleUUID uuid.UUID `json:"scheduleUuid"`
	UserUUID     uuid.UUID `json:"userUuid"`
	LikeCount    int64     `json:"likeCount"`
}

type StreamerChanged struct {
	StreamerUUID uuid.UUID `json:"streamerUuid"`
	Name         string    `json:"name"`
	IsVerified   bool      `json:"isVerified"`
	ActorUUID    uuid.UUID `json:"actorUuid"`
}

type FollowChanged struct {
	StreamerUUID uuid.UUID `json:"streamerUuid"`
	UserUUID     uuid.UUID `json:"userUuid"`
	FollowCount  int64     `json:"followCount"`
}
