package usecase

import (
	"time"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
	"chatWs/internal/modules/realtime/infrastructure"
	"chatWs/internal/test/fakes"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	registry   *infrastructure.Registry
	lifecycle  *Lifecycle
	dispatcher *Dispatcher
	store      *fakes.Store
	chat       *ChatUseCase
}

func newHarness() *harness {
	registry := infrastructure.NewRegistry(infrastructure.WithStrictInvariants(true))
	lifecycle := NewLifecycle(registry)
	dispatcher := NewDispatcher(registry, lifecycle)
	store := fakes.NewStore()
	store.Now = func() time.Time { return fixedNow }
	chat := NewChatUseCase(ChatDependencies{
		Lifecycle:   lifecycle,
		Dispatcher:  dispatcher,
		Messages:    store,
		Rooms:       store,
		Connections: store,
		Now:         func() time.Time { return fixedNow },
	})
	return &harness{registry: registry, lifecycle: lifecycle, dispatcher: dispatcher, store: store, chat: chat}
}

func accepting(h port.ConnectionHandle) func() (port.ConnectionHandle, error) {
	return func() (port.ConnectionHandle, error) { return h, nil }
}

// connectIn registers a fresh fake handle already placed in room.
func (h *harness) connectIn(user domain.UserID, room domain.RoomID) (domain.ConnectionID, *fakes.Handle) {
	handle := fakes.NewHandle()
	id, err := h.lifecycle.Connect(accepting(handle), domain.Identity{UserID: user}, room)
	if err != nil {
		panic(err)
	}
	return id, handle
}
