package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/outbox"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

// memState is the whole fake database. Transactions run one at a time and
// roll back by restoring a clone.
type memState struct {
	users         map[uuid.UUID]user.User
	streamers     map[uuid.UUID]streamer.Streamer
	schedules     map[uuid.UUID]schedule.Schedule
	nextID        int64
	history       []schedule.History
	likes         map[[2]uuid.UUID]schedule.Like
	follows       map[[2]uuid.UUID]streamer.Follow
	followHistory []streamer.FollowHistory
	outbox        []outbox.OutboxEvent

	failHistory bool
}

func newMemState() *memState {
	return &memState{
		users:     map[uuid.UUID]user.User{},
		streamers: map[uuid.UUID]streamer.Streamer{},
		schedules: map[uuid.UUID]schedule.Schedule{},
		likes:     map[[2]uuid.UUID]schedule.Like{},
		follows:   map[[2]uuid.UUID]streamer.Follow{},
	}
}

func (s *memState) clone() *memState {
	c := *s
	c.users = make(map[uuid.UUID]user.User, len(s.users))
	for k, v := range s.users {
		c.users[k] = v
	}
	c.streamers = make(map[uuid.UUID]streamer.Streamer, len(s.streamers))
	for k, v := range s.streamers {
		c.streamers[k] = v
	}
	c.schedules = make(map[uuid.UUID]schedule.Schedule, len(s.schedules))
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	c.likes = make(map[[2]uuid.UUID]schedule.Like, len(s.likes))
	for k, v := range s.likes {
		c.likes[k] = v
	}
	c.follows = make(map[[2]uuid.UUID]streamer.Follow, len(s.follows))
	for k, v := range s.follows {
		c.follows[k] = v
	}
	c.history = append([]schedule.History(nil), s.history...)
	c.followHistory = append([]streamer.FollowHistory(nil), s.followHistory...)
	c.outbox = append([]outbox.OutboxEvent(nil), s.outbox...)
	return &c
}

type memDB struct {
	mu    sync.Mutex
	state *memState
}

type memStore struct {
	db *memDB
	tx bool
}

func newMemStore() *memStore {
	return &memStore{db: &memDB{state: newMemState()}}
}

func (m *memStore) with(fn func(s *memState) error) error {
	if !m.tx {
		m.db.mu.Lock()
		defer m.db.mu.Unlock()
	}
	return fn(m.db.state)
}

// peek reads state outside any transaction. Test assertions only.
func (m *memStore) peek() *memState {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.state.clone()
}

func (m *memStore) Schedules() repository.ScheduleRepository      { return memSchedules{m} }
func (m *memStore) History() repository.ScheduleHistoryRepository { return memHistory{m} }
func (m *memStore) Likes() repository.LikeRepository              { return memLikes{m} }
func (m *memStore) Streamers() repository.StreamerRepository      { return memStreamers{m} }
func (m *memStore) Follows() repository.FollowRepository          { return memFollows{m} }
func (m *memStore) Users() repository.UserRepository              { return memUsers{m} }
func (m *memStore) Outbox() repository.OutboxRepository           { return memOutbox{m} }

func (m *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	snapshot := m.db.state.clone()
	if err := fn(&memStore{db: m.db, tx: true}); err != nil {
		m.db.state = snapshot
		return err
	}
	return ctx.Err()
}

func pair(a, b uuid.UUID) [2]uuid.UUID { return [2]uuid.UUID{a, b} }

// --- schedules ---

type memSchedules struct{ m *memStore }

func (s *memState) view(rec schedule.Schedule) schedule.View {
	return schedule.View{
		Schedule:      rec,
		Streamer:      s.streamers[rec.StreamerUUID].Ref(),
		CreatedByUser: s.users[rec.CreatedBy].Ref(),
		UpdatedByUser: s.users[rec.UpdatedBy].Ref(),
	}
}

func (r memSchedules) Create(_ context.Context, rec *schedule.Schedule) error {
	return r.m.with(func(s *memState) error {
		for _, other := range s.schedules {
			if !other.IsDeleted() && other.StreamerUUID == rec.StreamerUUID && other.ScheduleDate == rec.ScheduleDate {
				return instoo_errors.ErrAlreadyExists
			}
		}
		s.nextID++
		rec.ID = s.nextID
		s.schedules[rec.UUID] = *rec
		return nil
	})
}

func (r memSchedules) get(id uuid.UUID) (schedule.View, error) {
	var v schedule.View
	err := r.m.with(func(s *memState) error {
		rec, ok := s.schedules[id]
		if !ok || rec.IsDeleted() {
			return instoo_errors.ErrNotFound
		}
		v = s.view(rec)
		return nil
	})
	return v, err
}

func (r memSchedules) GetByUUID(_ context.Context, id uuid.UUID) (schedule.View, error) {
	return r.get(id)
}

func (r memSchedules) GetForUpdate(_ context.Context, id uuid.UUID) (schedule.View, error) {
	return r.get(id)
}

func (r memSchedules) ExistsForStreamerDate(_ context.Context, streamerID uuid.UUID, date string) (bool, error) {
	var found bool
	err := r.m.with(func(s *memState) error {
		for _, rec := range s.schedules {
			if !rec.IsDeleted() && rec.StreamerUUID == streamerID && rec.ScheduleDate == date {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r memSchedules) write(rec *schedule.Schedule, expectedVersion int) error {
	return r.m.with(func(s *memState) error {
		cur, ok := s.schedules[rec.UUID]
		if !ok || cur.IsDeleted() || cur.Version != expectedVersion {
			return instoo_errors.ErrConflict
		}
		next := *rec
		next.LikeCount = cur.LikeCount
		s.schedules[rec.UUID] = next
		return nil
	})
}

func (r memSchedules) Update(_ context.Context, rec *schedule.Schedule, expectedVersion int) error {
	return r.write(rec, expectedVersion)
}

func (r memSchedules) SoftDelete(_ context.Context, rec *schedule.Schedule, expectedVersion int) error {
	return r.write(rec, expectedVersion)
}

func (r memSchedules) bump(id uuid.UUID, delta int64, live bool) (int64, error) {
	var count int64
	err := r.m.with(func(s *memState) error {
		rec, ok := s.schedules[id]
		if !ok || (live && rec.IsDeleted()) {
			return instoo_errors.ErrNotFound
		}
		rec.LikeCount += delta
		if rec.LikeCount < 0 {
			rec.LikeCount = 0
		}
		s.schedules[id] = rec
		count = rec.LikeCount
		return nil
	})
	return count, err
}

func (r memSchedules) IncrementLikeCount(_ context.Context, id uuid.UUID) (int64, error) {
	return r.bump(id, 1, true)
}

func (r memSchedules) DecrementLikeCount(_ context.Context, id uuid.UUID) (int64, error) {
	return r.bump(id, -1, false)
}

func (r memSchedules) List(_ context.Context, q schedule.ListQuery) ([]schedule.View, error) {
	var out []schedule.View
	err := r.m.with(func(s *memState) error {
		wantStreamer := map[uuid.UUID]bool{}
		for _, id := range q.StreamerUUIDs {
			wantStreamer[id] = true
		}
		wantStatus := map[schedule.Status]bool{}
		for _, st := range q.Statuses {
			wantStatus[st] = true
		}

		for _, rec := range s.schedules {
			st := s.streamers[rec.StreamerUUID]
			switch {
			case rec.IsDeleted(), !st.IsActive, st.IsDeleted():
				continue
			case len(wantStreamer) > 0 && !wantStreamer[rec.StreamerUUID]:
				continue
			case q.DateFrom != "" && rec.ScheduleDate < q.DateFrom:
				continue
			case q.DateTo != "" && rec.ScheduleDate > q.DateTo:
				continue
			case q.Title != "" && !strings.Contains(strings.ToLower(rec.Title), strings.ToLower(q.Title)):
				continue
			case len(wantStatus) > 0 && !wantStatus[rec.Status]:
				continue
			case q.Cursor != nil && schedule.Compare(schedule.KeyOf(rec), *q.Cursor, q.Order) <= 0:
				continue
			}
			out = append(out, s.view(rec))
		}
		sort.Slice(out, func(i, j int) bool {
			return schedule.Compare(schedule.KeyOf(out[i].Schedule), schedule.KeyOf(out[j].Schedule), q.Order) < 0
		})
		if len(out) > q.Limit+1 {
			out = out[:q.Limit+1]
		}
		return nil
	})
	return out, err
}

// --- history ---

type memHistory struct{ m *memStore }

func (r memHistory) Append(_ context.Context, h *schedule.History) error {
	return r.m.with(func(s *memState) error {
		if s.failHistory {
			return context.DeadlineExceeded
		}
		h.ID = int64(len(s.history) + 1)
		s.history = append(s.history, *h)
		return nil
	})
}

func (r memHistory) ListBySchedule(_ context.Context, id uuid.UUID) ([]schedule.History, error) {
	var out []schedule.History
	err := r.m.with(func(s *memState) error {
		for _, h := range s.history {
			if h.ScheduleUUID == id {
				out = append(out, h)
			}
		}
		return nil
	})
	return out, err
}

func (r memHistory) GetByVersion(_ context.Context, id uuid.UUID, version int) (schedule.History, error) {
	var out schedule.History
	err := r.m.with(func(s *memState) error {
		for _, h := range s.history {
			if h.ScheduleUUID == id && h.CurrentSnapshot != nil && h.CurrentSnapshot.Version == version {
				out = h
				return nil
			}
		}
		return instoo_errors.ErrNotFound
	})
	return out, err
}

// --- likes ---

type memLikes struct{ m *memStore }

func (r memLikes) Create(_ context.Context, like *schedule.Like) error {
	return r.m.with(func(s *memState) error {
		key := pair(like.UserUUID, like.ScheduleUUID)
		if _, ok := s.likes[key]; ok {
			return instoo_errors.ErrAlreadyExists
		}
		s.likes[key] = *like
		return nil
	})
}

func (r memLikes) Delete(_ context.Context, userID, scheduleID uuid.UUID) error {
	return r.m.with(func(s *memState) error {
		key := pair(userID, scheduleID)
		if _, ok := s.likes[key]; !ok {
			return instoo_errors.ErrNotFound
		}
		delete(s.likes, key)
		return nil
	})
}

func (r memLikes) Exists(_ context.Context, userID, scheduleID uuid.UUID) (bool, error) {
	var ok bool
	err := r.m.with(func(s *memState) error {
		_, ok = s.likes[pair(userID, scheduleID)]
		return nil
	})
	return ok, err
}

// --- streamers ---

type memStreamers struct{ m *memStore }

func (r memStreamers) Create(_ context.Context, st *streamer.Streamer) error {
	return r.m.with(func(s *memState) error {
		s.streamers[st.UUID] = *st
		return nil
	})
}

func (r memStreamers) GetByUUID(_ context.Context, id uuid.UUID) (streamer.Streamer, error) {
	var out streamer.Streamer
	err := r.m.with(func(s *memState) error {
		st, ok := s.streamers[id]
		if !ok {
			return instoo_errors.ErrNotFound
		}
		out = st
		return nil
	})
	return out, err
}

func (r memStreamers) SearchByName(_ context.Context, term string, limit int) ([]streamer.Streamer, error) {
	var out []streamer.Streamer
	err := r.m.with(func(s *memState) error {
		for _, st := range s.streamers {
			if st.IsActive && !st.IsDeleted() && strings.Contains(strings.ToLower(st.Name), strings.ToLower(term)) {
				out = append(out, st)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].IsVerified != out[j].IsVerified {
				return out[i].IsVerified
			}
			return out[i].Name < out[j].Name
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r memStreamers) SetVerified(_ context.Context, id uuid.UUID, verified bool, actor uuid.UUID, at time.Time) error {
	return r.m.with(func(s *memState) error {
		st, ok := s.streamers[id]
		if !ok || st.IsDeleted() {
			return instoo_errors.ErrNotFound
		}
		st.IsVerified = verified
		st.UpdatedBy = actor
		st.UpdatedAt = at
		s.streamers[id] = st
		return nil
	})
}

func (r memStreamers) bump(id uuid.UUID, delta int64) (int64, error) {
	var count int64
	err := r.m.with(func(s *memState) error {
		st, ok := s.streamers[id]
		if !ok {
			return instoo_errors.ErrNotFound
		}
		st.FollowCount += delta
		if st.FollowCount < 0 {
			st.FollowCount = 0
		}
		s.streamers[id] = st
		count = st.FollowCount
		return nil
	})
	return count, err
}

func (r memStreamers) IncrementFollowCount(_ context.Context, id uuid.UUID) (int64, error) {
	return r.bump(id, 1)
}

func (r memStreamers) DecrementFollowCount(_ context.Context, id uuid.UUID) (int64, error) {
	return r.bump(id, -1)
}

func (r memStreamers) GetForUpdate(ctx context.Context, id uuid.UUID) (streamer.Streamer, error) {
	st, err := r.GetByUUID(ctx, id)
	if err == nil && st.IsDeleted() {
		return streamer.Streamer{}, instoo_errors.ErrNotFound
	}
	return st, err
}

func (r memStreamers) Update(_ context.Context, st *streamer.Streamer, expected time.Time) error {
	return r.m.with(func(s *memState) error {
		cur, ok := s.streamers[st.UUID]
		if !ok || cur.IsDeleted() || !cur.UpdatedAt.Equal(expected) {
			return instoo_errors.ErrConflict
		}
		s.streamers[st.UUID] = *st
		return nil
	})
}

func (r memStreamers) SoftDelete(_ context.Context, id uuid.UUID, actor uuid.UUID, at time.Time) error {
	return r.m.with(func(s *memState) error {
		st, ok := s.streamers[id]
		if !ok || st.IsDeleted() {
			return instoo_errors.ErrNotFound
		}
		st.IsActive = false
		st.DeletedAt = sql.NullTime{Time: at, Valid: true}
		st.UpdatedBy = actor
		st.UpdatedAt = at
		s.streamers[id] = st
		return nil
	})
}

func (r memStreamers) ExistsByName(_ context.Context, name string, exclude uuid.UUID) (bool, error) {
	var found bool
	err := r.m.with(func(s *memState) error {
		for _, st := range s.streamers {
			if st.UUID != exclude && st.IsActive && !st.IsDeleted() && st.Name == name {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (r memStreamers) ExistsOnPlatform(_ context.Context, name, platformName string) (bool, error) {
	var found bool
	err := r.m.with(func(s *memState) error {
		for _, st := range s.streamers {
			if st.Name != name || !st.IsActive || st.IsDeleted() {
				continue
			}
			for _, p := range st.Platforms {
				if p.PlatformName == platformName {
					found = true
				}
			}
		}
		return nil
	})
	return found, err
}

func (r memStreamers) List(_ context.Context, q streamer.ListQuery) ([]streamer.Streamer, int64, error) {
	var matched []streamer.Streamer
	err := r.m.with(func(s *memState) error {
		for _, st := range s.streamers {
			if st.IsActive && !st.IsDeleted() && matchesStreamerQuery(st, q) {
				matched = append(matched, st)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var less, equal bool
		switch q.SortBy {
		case streamer.SortByFollowCount:
			less, equal = a.FollowCount < b.FollowCount, a.FollowCount == b.FollowCount
		case streamer.SortByUpdatedAt:
			less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.UUID.String() < b.UUID.String()
		}
		if q.Order == domain.SortAsc {
			return less
		}
		return !less
	})

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func matchesStreamerQuery(st streamer.Streamer, q streamer.ListQuery) bool {
	if q.Name != "" && !strings.Contains(strings.ToLower(st.Name), strings.ToLower(q.Name)) {
		return false
	}
	if q.IsVerified != nil && st.IsVerified != *q.IsVerified {
		return false
	}
	if len(q.Platforms) == 0 {
		return true
	}
	for _, p := range st.Platforms {
		for _, want := range q.Platforms {
			if p.PlatformName == want {
				return true
			}
		}
	}
	return false
}

// --- follows ---

type memFollows struct{ m *memStore }

func (r memFollows) Create(_ context.Context, f *streamer.Follow) error {
	return r.m.with(func(s *memState) error {
		key := pair(f.UserUUID, f.StreamerUUID)
		if _, ok := s.follows[key]; ok {
			return instoo_errors.ErrAlreadyExists
		}
		s.follows[key] = *f
		return nil
	})
}

func (r memFollows) Delete(_ context.Context, userID, streamerID uuid.UUID) error {
	return r.m.with(func(s *memState) error {
		key := pair(userID, streamerID)
		if _, ok := s.follows[key]; !ok {
			return instoo_errors.ErrNotFound
		}
		delete(s.follows, key)
		return nil
	})
}

func (r memFollows) Get(_ context.Context, userID, streamerID uuid.UUID) (streamer.Follow, error) {
	var out streamer.Follow
	err := r.m.with(func(s *memState) error {
		f, ok := s.follows[pair(userID, streamerID)]
		if !ok {
			return instoo_errors.ErrNotFound
		}
		out = f
		return nil
	})
	return out, err
}

func (r memFollows) SetActive(_ context.Context, userID, streamerID uuid.UUID, active bool, at time.Time) (bool, error) {
	var found bool
	err := r.m.with(func(s *memState) error {
		key := pair(userID, streamerID)
		f, ok := s.follows[key]
		if !ok {
			return nil
		}
		f.IsActive = active
		f.UpdatedAt = at
		s.follows[key] = f
		found = true
		return nil
	})
	return found, err
}

func (r memFollows) ListByUser(_ context.Context, userID uuid.UUID) ([]streamer.FollowView, error) {
	var out []streamer.FollowView
	err := r.m.with(func(s *memState) error {
		for _, f := range s.follows {
			if f.UserUUID == userID {
				out = append(out, streamer.FollowView{Follow: f, Streamer: s.streamers[f.StreamerUUID].Ref()})
			}
		}
		return nil
	})
	return out, err
}

func (r memFollows) AppendHistory(_ context.Context, h *streamer.FollowHistory) error {
	return r.m.with(func(s *memState) error {
		h.ID = int64(len(s.followHistory) + 1)
		s.followHistory = append(s.followHistory, *h)
		return nil
	})
}

func (r memFollows) ListHistoryByUser(_ context.Context, userID uuid.UUID, limit int) ([]streamer.FollowHistory, error) {
	var out []streamer.FollowHistory
	err := r.m.with(func(s *memState) error {
		for i := len(s.followHistory) - 1; i >= 0 && len(out) < limit; i-- {
			if s.followHistory[i].UserUUID == userID {
				out = append(out, s.followHistory[i])
			}
		}
		return nil
	})
	return out, err
}

// --- users ---

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *user.User) error {
	return r.m.with(func(s *memState) error {
		s.users[u.UUID] = *u
		return nil
	})
}

func (r memUsers) GetByUUID(_ context.Context, id uuid.UUID) (user.User, error) {
	var out user.User
	err := r.m.with(func(s *memState) error {
		u, ok := s.users[id]
		if !ok || !u.IsActive || u.IsDeleted() {
			return instoo_errors.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r memUsers) NicknameTaken(_ context.Context, nickname string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.m.with(func(s *memState) error {
		for _, u := range s.users {
			if u.UUID != exclude && u.IsActive && !u.IsDeleted() && u.Nickname == nickname {
				taken = true
			}
		}
		return nil
	})
	return taken, err
}

func (r memUsers) UpdateNickname(_ context.Context, id uuid.UUID, nickname string, at time.Time) error {
	return r.m.with(func(s *memState) error {
		u, ok := s.users[id]
		if !ok || !u.IsActive || u.IsDeleted() {
			return instoo_errors.ErrNotFound
		}
		for _, other := range s.users {
			if other.UUID != id && other.IsActive && !other.IsDeleted() && other.Nickname == nickname {
				return instoo_errors.ErrAlreadyExists
			}
		}
		u.Nickname = nickname
		u.UpdatedAt = at
		s.users[id] = u
		return nil
	})
}

// --- outbox ---

type memOutbox struct{ m *memStore }

func (r memOutbox) Create(_ context.Context, e *outbox.OutboxEvent) error {
	return r.m.with(func(s *memState) error {
		s.outbox = append(s.outbox, *e)
		return nil
	})
}

func (r memOutbox) GetPending(context.Context, int) ([]outbox.OutboxEvent, error) {
	return nil, nil
}

func (r memOutbox) MarkProcessing(context.Context, uuid.UUID) (bool, error) { return true, nil }
func (r memOutbox) MarkCompleted(context.Context, uuid.UUID) error          { return nil }
func (r memOutbox) MarkFailed(context.Context, uuid.UUID, string) error     { return nil }
func (r memOutbox) IncrementRetry(context.Context, uuid.UUID, string) error { return nil }
func (r memOutbox) ReleaseStale(context.Context, time.Time) (int64, error)  { return 0, nil }
