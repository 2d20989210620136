package port

import "errors"

var (
	// ErrHandleClosed is returned by Send once the handle has been closed.
	ErrHandleClosed = errors.New("connection handle closed")
	// ErrSendBufferFull is returned by Send when the outbound queue stayed full past the write deadline.
	ErrSendBufferFull = errors.New("connection send buffer full")
)

// ConnectionHandle is the live transport behind one connection.
// Send must not block on the network and must preserve submission order. It may wait a
// bounded time for queue space.
type ConnectionHandle interface {
	Send(data []byte) error
	Alive() bool
	Close()
}
