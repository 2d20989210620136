package infrastructure

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

var (
	ErrConnectionNotFound = port.ErrConnectionNotFound
	// ErrInvariantViolation means the registry maps disagree. It is always a bug.
	ErrInvariantViolation = errors.New("registry invariant violation")
)

type memberSet map[domain.ConnectionID]struct{}

var _ port.ConnectionRegistry = (*Registry)(nil)

// Registry owns every connection index. One mutex guards all four maps so that no reader
// ever observes a half-applied transition.
type Registry struct {
	mu        sync.RWMutex
	handles   map[domain.ConnectionID]port.ConnectionHandle
	records   map[domain.ConnectionID]*domain.ConnectionRecord
	rooms     map[domain.RoomID]memberSet
	users     map[domain.UserID]memberSet
	totalEver int

	strict bool
	now    func() time.Time
	newID  func() domain.ConnectionID
}

type RegistryOption func(*Registry)

// WithStrictInvariants verifies every map after each mutation and panics on disagreement.
func WithStrictInvariants(enabled bool) RegistryOption {
	return func(r *Registry) { r.strict = enabled }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithIDGenerator(gen func() domain.ConnectionID) RegistryOption {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		handles: make(map[domain.ConnectionID]port.ConnectionHandle),
		records: make(map[domain.ConnectionID]*domain.ConnectionRecord),
		rooms:   make(map[domain.RoomID]memberSet),
		users:   make(map[domain.UserID]memberSet),
		now:     time.Now,
		newID:   func() domain.ConnectionID { return domain.ConnectionID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a new connection and indexes it under the optional user and room.
func (r *Registry) Register(handle port.ConnectionHandle, user domain.UserID, room domain.RoomID) domain.ConnectionID {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, taken := r.records[id]; !taken {
			break
		}
		id = r.newID()
	}

	r.handles[id] = handle
	r.records[id] = &domain.ConnectionRecord{
		ID:          id,
		UserID:      user,
		RoomID:      room,
		ConnectedAt: now,
		LastActive:  now,
		Alive:       true,
	}
	if room != domain.NoRoom {
		addMember(r.rooms, room, id)
	}
	if user != domain.NoUser {
		addMember(r.users, user, id)
	}
	r.totalEver++
	r.assertLocked("register")

	slog.Debug("registry connection registered", slog.String("connectionId", string(id)), slog.Int64("userId", int64(user)), slog.Int64("roomId", int64(room)))
	return id
}

// Remove deletes the connection from every index and hands back its final record and handle.
func (r *Registry) Remove(id domain.ConnectionID) (domain.ConnectionRecord, port.ConnectionHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return domain.ConnectionRecord{}, nil, ErrConnectionNotFound
	}
	handle := r.handles[id]

	delete(r.records, id)
	delete(r.handles, id)
	if rec.HasRoom() {
		removeMember(r.rooms, rec.RoomID, id)
	}
	if rec.HasUser() {
		removeMember(r.users, rec.UserID, id)
	}
	r.assertLocked("remove")

	removed := *rec
	removed.Alive = false
	slog.Debug("registry connection removed", slog.String("connectionId", string(id)), slog.Int64("roomId", int64(removed.RoomID)))
	return removed, handle, nil
}

// SetRoom moves the connection to room, or out of any room when room is NoRoom.
func (r *Registry) SetRoom(id domain.ConnectionID, room domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrConnectionNotFound
	}
	r.moveLocked(rec, room)
	return nil
}

// MoveRoom is SetRoom guarded by a check that the connection currently sits in from.
func (r *Registry) MoveRoom(id domain.ConnectionID, from, to domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrConnectionNotFound
	}
	if rec.RoomID != from {
		return port.ErrRoomMismatch
	}
	r.moveLocked(rec, to)
	return nil
}

func (r *Registry) moveLocked(rec *domain.ConnectionRecord, room domain.RoomID) {
	if rec.RoomID == room {
		return
	}
	if rec.HasRoom() {
		removeMember(r.rooms, rec.RoomID, rec.ID)
	}
	if room != domain.NoRoom {
		addMember(r.rooms, room, rec.ID)
	}
	rec.RoomID = room
	r.assertLocked("set_room")
}

// Touch refreshes the last-active timestamp. An absent connection is ignored.
func (r *Registry) Touch(id domain.ConnectionID) {
	now := r.now()
	r.mu.Lock()
	if rec, ok := r.records[id]; ok {
		rec.LastActive = now
	}
	r.mu.Unlock()
}

// TouchMany refreshes every listed connection under a single lock acquisition.
func (r *Registry) TouchMany(ids []domain.ConnectionID) {
	if len(ids) == 0 {
		return
	}
	now := r.now()
	r.mu.Lock()
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			rec.LastActive = now
		}
	}
	r.mu.Unlock()
}

// Record returns a copy of the connection's metadata.
func (r *Registry) Record(id domain.ConnectionID) (domain.ConnectionRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return domain.ConnectionRecord{}, false
	}
	return *rec, true
}

// Resolve snapshots the recipients matched by sel. The returned slice is owned by the caller.
func (r *Registry) Resolve(sel domain.Selector) []port.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch sel.Kind {
	case domain.SelectOne:
		if h, ok := r.handles[sel.Connection]; ok {
			return []port.Target{{ID: sel.Connection, Handle: h}}
		}
		return nil
	case domain.SelectRoom:
		return r.targetsLocked(r.rooms[sel.Room])
	case domain.SelectUser:
		return r.targetsLocked(r.users[sel.User])
	case domain.SelectAll:
		targets := make([]port.Target, 0, len(r.handles))
		for id, h := range r.handles {
			targets = append(targets, port.Target{ID: id, Handle: h})
		}
		return targets
	default:
		return nil
	}
}

func (r *Registry) targetsLocked(members memberSet) []port.Target {
	if len(members) == 0 {
		return nil
	}
	targets := make([]port.Target, 0, len(members))
	for id := range members {
		targets = append(targets, port.Target{ID: id, Handle: r.handles[id]})
	}
	return targets
}

// SnapshotCounts reads every counter under one lock.
func (r *Registry) SnapshotCounts() port.RegistryCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	perRoom := make(map[domain.RoomID]int, len(r.rooms))
	for room, members := range r.rooms {
		perRoom[room] = len(members)
	}
	return port.RegistryCounts{
		TotalEver: r.totalEver,
		Active:    len(r.handles),
		PerRoom:   perRoom,
	}
}

// Verify checks that all indices agree with each other.
func (r *Registry) Verify() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.verifyLocked()
}

func (r *Registry) assertLocked(op string) {
	if !r.strict {
		return
	}
	if err := r.verifyLocked(); err != nil {
		panic(fmt.Errorf("%s: %w", op, err))
	}
}

func (r *Registry) verifyLocked() error {
	if len(r.handles) != len(r.records) {
		return fmt.Errorf("%w: %d handles for %d records", ErrInvariantViolation, len(r.handles), len(r.records))
	}
	for id, rec := range r.records {
		if _, ok := r.handles[id]; !ok {
			return fmt.Errorf("%w: record %s has no handle", ErrInvariantViolation, id)
		}
		if rec.HasRoom() {
			if _, ok := r.rooms[rec.RoomID][id]; !ok {
				return fmt.Errorf("%w: %s missing from room %d", ErrInvariantViolation, id, rec.RoomID)
			}
		}
		if rec.HasUser() {
			if _, ok := r.users[rec.UserID][id]; !ok {
				return fmt.Errorf("%w: %s missing from user %d", ErrInvariantViolation, id, rec.UserID)
			}
		}
	}
	for room, members := range r.rooms {
		if len(members) == 0 {
			return fmt.Errorf("%w: empty room entry %d", ErrInvariantViolation, room)
		}
		for id := range members {
			rec, ok := r.records[id]
			if !ok || rec.RoomID != room {
				return fmt.Errorf("%w: room %d lists %s", ErrInvariantViolation, room, id)
			}
		}
	}
	for user, members := range r.users {
		if len(members) == 0 {
			return fmt.Errorf("%w: empty user entry %d", ErrInvariantViolation, user)
		}
		for id := range members {
			rec, ok := r.records[id]
			if !ok || rec.UserID != user {
				return fmt.Errorf("%w: user %d lists %s", ErrInvariantViolation, user, id)
			}
		}
	}
	return nil
}

func addMember[K comparable](index map[K]memberSet, key K, id domain.ConnectionID) {
	members, ok := index[key]
	if !ok {
		members = make(memberSet)
		index[key] = members
	}
	members[id] = struct{}{}
}

func removeMember[K comparable](index map[K]memberSet, key K, id domain.ConnectionID) {
	members, ok := index[key]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(index, key)
	}
}
