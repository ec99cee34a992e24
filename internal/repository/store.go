package repository

import "context"

type sqlStore struct {
	db DBTX
}

// NewStore returns a Store backed by db, which is either a *sql.DB or a *sql.Tx.
func NewStore(db DBTX) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Schedules() ScheduleRepository      { return NewScheduleRepository(s.db) }
func (s *sqlStore) History() ScheduleHistoryRepository { return NewScheduleHistoryRepository(s.db) }
func (s *sqlStore) Likes() LikeRepository              { return NewLikeRepository(s.db) }
func (s *sqlStore) Streamers() StreamerRepository      { return NewStreamerRepository(s.db) }
func (s *sqlStore) Follows() FollowRepository          { return NewFollowRepository(s.db) }
func (s *sqlStore) Users() UserRepository              { return NewUserRepository(s.db) }
func (s *sqlStore) Outbox() OutboxRepository           { return NewOutboxRepository(s.db) }

func (s *sqlStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return WithTx(ctx, s.db, func(tx DBTX) error {
		return fn(&sqlStore{db: tx})
	})
}
