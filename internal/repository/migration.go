package repository

import (
	"context"
	"fmt"
)

// schemaStatements create the tables in dependency order. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
        uuid              UUID PRIMARY KEY,
        email             VARCHAR(255) NOT NULL UNIQUE,
        nickname          VARCHAR(50) NOT NULL,
        profile_image_url TEXT,
        provider          VARCHAR(20) NOT NULL DEFAULT 'local',
        provider_id       VARCHAR(255),
        role              VARCHAR(20) NOT NULL DEFAULT 'USER' CHECK (role IN ('USER', 'ADMIN')),
        is_active         BOOLEAN NOT NULL DEFAULT TRUE,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        deleted_at        TIMESTAMPTZ
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_nickname
        ON users (nickname) WHERE is_active = TRUE AND deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS streamers (
        uuid              UUID PRIMARY KEY,
        name              VARCHAR(100) NOT NULL,
        profile_image_url TEXT,
        description       TEXT,
        is_verified       BOOLEAN NOT NULL DEFAULT FALSE,
        is_active         BOOLEAN NOT NULL DEFAULT TRUE,
        platforms         JSONB NOT NULL DEFAULT '[]',
        follow_count      BIGINT NOT NULL DEFAULT 0 CHECK (follow_count >= 0),
        created_by        UUID,
        updated_by        UUID,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        deleted_at        TIMESTAMPTZ
    )`,
	`CREATE INDEX IF NOT EXISTS idx_streamers_name ON streamers (name)`,
	`CREATE TABLE IF NOT EXISTS schedules (
        id                  BIGSERIAL PRIMARY KEY,
        uuid                UUID NOT NULL UNIQUE,
        title               VARCHAR(200) NOT NULL,
        schedule_date       DATE NOT NULL,
        start_time          TIMESTAMPTZ,
        status              VARCHAR(20) NOT NULL CHECK (status IN ('SCHEDULED', 'TIME_TBD', 'BREAK')),
        description         TEXT,
        external_notice_url TEXT,
        streamer_uuid       UUID NOT NULL REFERENCES streamers (uuid),
        created_by          UUID NOT NULL REFERENCES users (uuid),
        updated_by          UUID NOT NULL REFERENCES users (uuid),
        like_count          BIGINT NOT NULL DEFAULT 0 CHECK (like_count >= 0),
        version             INT NOT NULL DEFAULT 1,
        created_at          TIMESTAMPTZ NOT NULL,
        updated_at          TIMESTAMPTZ NOT NULL,
        deleted_at          TIMESTAMPTZ,
        CONSTRAINT chk_schedules_start_time CHECK ((status = 'SCHEDULED') = (start_time IS NOT NULL))
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_schedules_streamer_date
        ON schedules (streamer_uuid, schedule_date) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_listing
        ON schedules (schedule_date, start_time, id) WHERE deleted_at IS NULL`,
	// schedule_uuid is a weak reference with no foreign key.
	`CREATE TABLE IF NOT EXISTS schedule_histories (
        id                BIGSERIAL PRIMARY KEY,
        schedule_uuid     UUID NOT NULL,
        action            VARCHAR(10) NOT NULL CHECK (action IN ('CREATE', 'UPDATE', 'DELETE')),
        previous_snapshot JSONB,
        current_snapshot  JSONB,
        modified_by       UUID NOT NULL,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_histories_schedule ON schedule_histories (schedule_uuid, id)`,
	`CREATE TABLE IF NOT EXISTS schedule_likes (
        user_uuid     UUID NOT NULL REFERENCES users (uuid),
        schedule_uuid UUID NOT NULL REFERENCES schedules (uuid),
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (user_uuid, schedule_uuid)
    )`,
	`CREATE TABLE IF NOT EXISTS streamer_follows (
        user_uuid     UUID NOT NULL REFERENCES users (uuid),
        streamer_uuid UUID NOT NULL REFERENCES streamers (uuid),
        is_active     BOOLEAN NOT NULL DEFAULT TRUE,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (user_uuid, streamer_uuid)
    )`,
	`CREATE TABLE IF NOT EXISTS streamer_follow_histories (
        id            BIGSERIAL PRIMARY KEY,
        user_uuid     UUID NOT NULL,
        streamer_uuid UUID NOT NULL,
        action        VARCHAR(10) NOT NULL CHECK (action IN ('FOLLOW', 'UNFOLLOW')),
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_follow_histories_user ON streamer_follow_histories (user_uuid, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
        id             UUID PRIMARY KEY,
        event_type     VARCHAR(50) NOT NULL,
        aggregate_type VARCHAR(50) NOT NULL,
        aggregate_id   VARCHAR(36) NOT NULL,
        payload        JSONB NOT NULL,
        status         VARCHAR(20) NOT NULL DEFAULT 'PENDING',
        retry_count    INT NOT NULL DEFAULT 0,
        error          TEXT NOT NULL DEFAULT '',
        created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
        processed_at   TIMESTAMPTZ
    )`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (created_at) WHERE status = 'PENDING'`,
}

// Tables lists every table owned by the schema, parents last.
var Tables = []string{
	"outbox_events",
	"streamer_follow_histories",
	"streamer_follows",
	"schedule_likes",
	"schedule_histories",
	"schedules",
	"streamers",
	"users",
}

// InitSchema creates every table and index inside one transaction.
func InitSchema(ctx context.Context, db DBTX) error {
	return WithTx(ctx, db, func(tx DBTX) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
