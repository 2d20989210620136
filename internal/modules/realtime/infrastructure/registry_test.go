package infrastructure

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
	"chatWs/internal/test/fakes"
)

func newStrictRegistry() *Registry {
	return NewRegistry(WithStrictInvariants(true))
}

func TestRegistry_RegisterIndexesRoomAndUser(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	id := r.Register(fakes.NewHandle(), 7, 42)

	rec, ok := r.Record(id)
	if !ok {
		t.Fatal("expected record after register")
	}
	if rec.UserID != 7 || rec.RoomID != 42 || !rec.Alive {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ConnectedAt.IsZero() || !rec.ConnectedAt.Equal(rec.LastActive) {
		t.Fatalf("timestamps not initialised: %+v", rec)
	}
	if got := len(r.Resolve(domain.Room(42))); got != 1 {
		t.Fatalf("room 42 expected 1 member got %d", got)
	}
	if got := len(r.Resolve(domain.User(7))); got != 1 {
		t.Fatalf("user 7 expected 1 connection got %d", got)
	}
}

func TestRegistry_RegisterRetriesOnIDCollision(t *testing.T) {
	t.Parallel()

	ids := []domain.ConnectionID{"a1", "a1", "a2"}
	next := 0
	r := NewRegistry(WithStrictInvariants(true), WithIDGenerator(func() domain.ConnectionID {
		id := ids[next]
		next++
		return id
	}))

	first := r.Register(fakes.NewHandle(), 0, 0)
	second := r.Register(fakes.NewHandle(), 0, 0)
	if first != "a1" || second != "a2" {
		t.Fatalf("expected a1/a2 got %s/%s", first, second)
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	h := fakes.NewHandle()
	id := r.Register(h, 3, 9)

	rec, handle, err := r.Remove(id)
	if err != nil {
		t.Fatalf("first remove: %v", err)
	}
	if rec.Alive || rec.RoomID != 9 || handle != h {
		t.Fatalf("unexpected removal result: %+v %v", rec, handle)
	}

	before := r.SnapshotCounts()
	if _, _, err := r.Remove(id); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("second remove expected ErrConnectionNotFound got %v", err)
	}
	after := r.SnapshotCounts()
	if before.Active != after.Active || before.TotalEver != after.TotalEver || len(after.PerRoom) != 0 {
		t.Fatalf("second remove mutated state: %+v -> %+v", before, after)
	}
	if len(r.Resolve(domain.User(3))) != 0 {
		t.Fatal("user index not pruned")
	}
}

func TestRegistry_SetRoomMovesBetweenRooms(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	id := r.Register(fakes.NewHandle(), 1, 0)

	if err := r.SetRoom(id, 5); err != nil {
		t.Fatalf("set room 5: %v", err)
	}
	if err := r.SetRoom(id, 7); err != nil {
		t.Fatalf("set room 7: %v", err)
	}

	counts := r.SnapshotCounts()
	if _, ok := counts.PerRoom[5]; ok {
		t.Fatalf("room 5 should be pruned: %+v", counts.PerRoom)
	}
	if counts.PerRoom[7] != 1 {
		t.Fatalf("room 7 expected 1 member: %+v", counts.PerRoom)
	}
	if rec, _ := r.Record(id); rec.RoomID != 7 {
		t.Fatalf("record room expected 7 got %d", rec.RoomID)
	}

	if err := r.SetRoom(id, domain.NoRoom); err != nil {
		t.Fatalf("clear room: %v", err)
	}
	if len(r.SnapshotCounts().PerRoom) != 0 {
		t.Fatal("room index should be empty")
	}
	if err := r.SetRoom("missing", 1); !errors.Is(err, ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound got %v", err)
	}
}

func TestRegistry_TouchIgnoresUnknown(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	r.Touch("ghost")
	r.TouchMany([]domain.ConnectionID{"ghost"})
	if r.SnapshotCounts().Active != 0 {
		t.Fatal("touch must not create records")
	}
}

func TestRegistry_SnapshotCounts(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	a := r.Register(fakes.NewHandle(), 1, 10)
	r.Register(fakes.NewHandle(), 2, 10)
	r.Register(fakes.NewHandle(), 3, 11)
	if _, _, err := r.Remove(a); err != nil {
		t.Fatalf("remove: %v", err)
	}

	counts := r.SnapshotCounts()
	if counts.TotalEver != 3 || counts.Active != 2 {
		t.Fatalf("unexpected totals: %+v", counts)
	}
	if counts.PerRoom[10] != 1 || counts.PerRoom[11] != 1 {
		t.Fatalf("unexpected per-room counts: %+v", counts.PerRoom)
	}
}

func TestRegistry_RandomSequencesKeepInvariants(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	r := newStrictRegistry()
	var live []domain.ConnectionID

	for step := 0; step < 5000; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(live) == 0:
			user := domain.UserID(rng.Intn(5))
			room := domain.RoomID(rng.Intn(4))
			live = append(live, r.Register(fakes.NewHandle(), user, room))
		case op == 1:
			id := live[rng.Intn(len(live))]
			_ = r.SetRoom(id, domain.RoomID(rng.Intn(4)))
		case op == 2:
			idx := rng.Intn(len(live))
			_, _, _ = r.Remove(live[idx])
			// stale ids stay in the pool now and then so later ops hit the not-found path
			if rng.Intn(3) != 0 {
				live = append(live[:idx], live[idx+1:]...)
			}
		default:
			r.Touch(live[rng.Intn(len(live))])
		}
		if err := r.Verify(); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
}

func TestRegistry_StrictModePanicsOnCorruption(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	id := r.Register(fakes.NewHandle(), 0, 1)
	r.rooms[2] = memberSet{id: {}}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic")
		}
		err, ok := rec.(error)
		if !ok || !errors.Is(err, ErrInvariantViolation) {
			t.Fatalf("expected invariant violation, got %v", rec)
		}
	}()
	r.Register(fakes.NewHandle(), 0, 0)
}

func TestRegistry_VerifyReportsEmptySets(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.users[4] = memberSet{}
	if err := r.Verify(); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected violation got %v", err)
	}
}

func ExampleRegistry_SnapshotCounts() {
	r := NewRegistry()
	r.Register(fakes.NewHandle(), 1, 42)
	r.Register(fakes.NewHandle(), 2, 42)
	c := r.SnapshotCounts()
	fmt.Println(c.TotalEver, c.Active, c.PerRoom[42])
	// Output: 2 2 2
}

func TestRegistry_MoveRoomChecksCurrentRoom(t *testing.T) {
	t.Parallel()

	r := newStrictRegistry()
	id := r.Register(fakes.NewHandle(), 0, 3)

	if err := r.MoveRoom(id, 4, domain.NoRoom); !errors.Is(err, port.ErrRoomMismatch) {
		t.Fatalf("expected ErrRoomMismatch got %v", err)
	}
	if rec, _ := r.Record(id); rec.RoomID != 3 {
		t.Fatalf("mismatch must not move the connection, room=%d", rec.RoomID)
	}
	if err := r.MoveRoom(id, 3, domain.NoRoom); err != nil {
		t.Fatalf("move: %v", err)
	}
	if len(r.SnapshotCounts().PerRoom) != 0 {
		t.Fatal("room 3 should be pruned")
	}
}
