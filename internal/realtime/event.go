package realtime

import "time"

// Tables that publish row-level changes
const (
	TablePhrases   = "phrases"
	TableActivity  = "activity_logs"
	TableChat      = "chat_messages"
	TableUsers     = "users"
	TableDashboard = "dashboard"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Event is a change notification for one row of one table
type Event struct {
	Table  string      `json:"table"`
	Type   EventType   `json:"type"`
	Record interface{} `json:"record"`
	At     time.Time   `json:"at"`
}

// Publisher is the write side of the bus used by services
type Publisher interface {
	Publish(ev Event)
}

// Listener receives events in-process. It runs on the publisher's goroutine
// and must not block.
type Listener func(Event)

// Discard is a Publisher that drops everything
type Discard struct{}

func (Discard) Publish(Event) {}
