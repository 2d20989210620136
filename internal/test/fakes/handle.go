// Package fakes holds in-memory stand-ins shared by tests.
package fakes

import (
	"encoding/json"
	"errors"
	"sync"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// ErrBrokenPipe is what a dead handle reports on Send.
var ErrBrokenPipe = errors.New("broken pipe")

// Handle records every frame it accepts.
type Handle struct {
	mu         sync.Mutex
	frames     [][]byte
	closed     bool
	dead       bool
	closeCalls int
	onSend     func()
}

var _ port.ConnectionHandle = (*Handle)(nil)

func NewHandle() *Handle { return &Handle{} }

// NewDeadHandle returns a handle whose peer is already gone: every Send fails.
func NewDeadHandle() *Handle { return &Handle{dead: true} }

// OnSend installs a callback run before each send attempt, outside the handle lock.
func (h *Handle) OnSend(fn func()) {
	h.mu.Lock()
	h.onSend = fn
	h.mu.Unlock()
}

func (h *Handle) Send(data []byte) error {
	h.mu.Lock()
	hook := h.onSend
	h.mu.Unlock()
	if hook != nil {
		hook()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return port.ErrHandleClosed
	}
	if h.dead {
		return ErrBrokenPipe
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	h.frames = append(h.frames, frame)
	return nil
}

func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.closed && !h.dead
}

func (h *Handle) Close() {
	h.mu.Lock()
	h.closed = true
	h.closeCalls++
	h.mu.Unlock()
}

// Kill makes every later Send fail as if the peer vanished.
func (h *Handle) Kill() {
	h.mu.Lock()
	h.dead = true
	h.mu.Unlock()
}

func (h *Handle) CloseCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeCalls
}

func (h *Handle) Frames() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.frames))
	copy(out, h.frames)
	return out
}

// Events decodes every accepted frame.
func (h *Handle) Events() []domain.Event {
	frames := h.Frames()
	events := make([]domain.Event, 0, len(frames))
	for _, f := range frames {
		var evt domain.Event
		if err := json.Unmarshal(f, &evt); err == nil {
			events = append(events, evt)
		}
	}
	return events
}

// EventsOfType filters Events by type.
func (h *Handle) EventsOfType(kind string) []domain.Event {
	var out []domain.Event
	for _, evt := range h.Events() {
		if evt.Type == kind {
			out = append(out, evt)
		}
	}
	return out
}
