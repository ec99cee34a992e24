package commands

import (
	"strings"
	"time"
	"unicode/utf8"

	"instoo/internal/domain/streamer"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

const (
	TypeCreateStreamer     = "streamer.create"
	TypeUpdateStreamer     = "streamer.update"
	TypeDeleteStreamer     = "streamer.delete"
	TypeVerifyStreamer     = "streamer.verify"
	TypeFollowStreamer     = "streamer.follow"
	TypeUnfollowStreamer   = "streamer.unfollow"
	TypeBatchToggleFollows = "follow.batch_toggle"
)

const MaxBatchToggleItems = 100

type CreateStreamerCommand struct {
	Name            string
	ProfileImageURL string
	Description     string
	Platforms       []streamer.Platform
}

func (CreateStreamerCommand) CommandType() string {
	return TypeCreateStreamer
}

func (c CreateStreamerCommand) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" || utf8.RuneCountInString(name) > streamer.MaxNameLength {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "name must be 1 to 100 characters")
	}
	return streamer.CheckPlatforms(c.Platforms)
}

// UpdateStreamerCommand edits a streamer if ExpectedUpdatedAt still matches
// the stored token.
type UpdateStreamerCommand struct {
	StreamerUUID      uuid.UUID
	ExpectedUpdatedAt time.Time
	Patch             streamer.Patch
}

func (UpdateStreamerCommand) CommandType() string {
	return TypeUpdateStreamer
}

func (c UpdateStreamerCommand) Validate() error {
	if c.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer uuid is required")
	}
	if c.ExpectedUpdatedAt.IsZero() {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "lastUpdatedAt is required")
	}
	if c.Patch.Empty() {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "nothing to update")
	}
	return nil
}

type DeleteStreamerCommand struct {
	StreamerUUID uuid.UUID
}

func (DeleteStreamerCommand) CommandType() string {
	return TypeDeleteStreamer
}

func (c DeleteStreamerCommand) Validate() error {
	if c.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer uuid is required")
	}
	return nil
}

type VerifyStreamerCommand struct {
	StreamerUUID uuid.UUID
	Verified     bool
}

func (VerifyStreamerCommand) CommandType() string {
	return TypeVerifyStreamer
}

func (c VerifyStreamerCommand) Validate() error {
	if c.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer uuid is required")
	}
	return nil
}

// FollowCommand covers both follow and unfollow; Undo selects unfollow.
type FollowCommand struct {
	StreamerUUID uuid.UUID
	Undo         bool
}

func (c FollowCommand) CommandType() string {
	if c.Undo {
		return TypeUnfollowStreamer
	}
	return TypeFollowStreamer
}

func (c FollowCommand) Validate() error {
	if c.StreamerUUID == uuid.Nil {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer uuid is required")
	}
	return nil
}

type BatchToggleFollowsCommand struct {
	Items []streamer.FollowToggle
}

func (BatchToggleFollowsCommand) CommandType() string {
	return TypeBatchToggleFollows
}

func (c BatchToggleFollowsCommand) Validate() error {
	if len(c.Items) == 0 {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, ErrEmptyBatch.Error())
	}
	if len(c.Items) > MaxBatchToggleItems {
		return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "at most 100 follows per batch")
	}
	for _, item := range c.Items {
		if item.StreamerUUID == uuid.Nil {
			return instoo_errors.Validation(instoo_errors.CodeInvalidInput, "streamer uuid is required")
		}
	}
	return nil
}
