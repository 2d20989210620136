package domain

import "fmt"

// SelectorKind enumerates the targeting rules understood by the dispatcher.
type SelectorKind int

const (
	SelectOne SelectorKind = iota + 1
	SelectRoom
	SelectUser
	SelectAll
)

// Selector resolves a delivery to a set of connections.
type Selector struct {
	Kind       SelectorKind
	Connection ConnectionID
	Room       RoomID
	User       UserID
}

func One(id ConnectionID) Selector { return Selector{Kind: SelectOne, Connection: id} }

func Room(id RoomID) Selector { return Selector{Kind: SelectRoom, Room: id} }

func User(id UserID) Selector { return Selector{Kind: SelectUser, User: id} }

func All() Selector { return Selector{Kind: SelectAll} }

func (s Selector) String() string {
	switch s.Kind {
	case SelectOne:
		return fmt.Sprintf("one(%s)", s.Connection)
	case SelectRoom:
		return fmt.Sprintf("room(%d)", s.Room)
	case SelectUser:
		return fmt.Sprintf("user(%d)", s.User)
	case SelectAll:
		return "all"
	default:
		return "invalid"
	}
}

// DeliveryReport summarises one sweep.
type DeliveryReport struct {
	Attempted int
	Delivered int
	Failed    []ConnectionID
}
