// Package notify defines the control-plane events broadcast to remote clients.
package notify

import (
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/pkg/bus"
)

type EventType string

const (
	ConfigUpdated EventType = "ConfigUpdated"
	Ping          EventType = "Ping"
	Pong          EventType = "Pong"
)

func (t EventType) Valid() bool {
	switch t {
	case ConfigUpdated, Ping, Pong:
		return true
	}
	return false
}

// Event is the frame exchanged over the event stream. Data is always null.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

func NewEvent(t EventType) Event {
	return Event{Type: t}
}

type (
	Bus       = bus.Bus[Event]
	Publisher = bus.Publisher[Event]
)

func NewBus(log *zap.Logger, opts ...bus.Option) *Bus {
	return bus.NewBus[Event](log, opts...)
}
