package view

import (
	"fmt"
	"time"
)

// EventType names a pointer or control event forwarded by a remote client.
type EventType string

const (
	EventMove        EventType = "move"
	EventDown        EventType = "down"
	EventUp          EventType = "up"
	EventLeave       EventType = "leave"
	EventWheel       EventType = "wheel"
	EventPinch       EventType = "pinch"
	EventDoubleClick EventType = "dblclick"
	EventReset       EventType = "reset"
	EventResize      EventType = "resize"
)

// Event is the wire form of one interaction. Fields unused by a type are
// ignored.
type Event struct {
	Type      EventType `json:"type" msgpack:"type"`
	X         float64   `json:"x" msgpack:"x"`
	Y         float64   `json:"y" msgpack:"y"`
	DeltaY    float64   `json:"deltaY,omitempty" msgpack:"deltaY,omitempty"`
	DeltaMode WheelMode `json:"deltaMode,omitempty" msgpack:"deltaMode,omitempty"`
	Scale     float64   `json:"scale,omitempty" msgpack:"scale,omitempty"`
	Ctrl      bool      `json:"ctrlKey,omitempty" msgpack:"ctrlKey,omitempty"`
	Shift     bool      `json:"shiftKey,omitempty" msgpack:"shiftKey,omitempty"`
	Width     float64   `json:"width,omitempty" msgpack:"width,omitempty"`
	Height    float64   `json:"height,omitempty" msgpack:"height,omitempty"`
}

// Apply dispatches ev to the controller at time now.
func (c *Controller) Apply(ev Event, now time.Time) error {
	switch ev.Type {
	case EventMove:
		c.PointerMove(ev.X, ev.Y)
	case EventDown:
		c.PointerDown(ev.X, ev.Y)
	case EventUp:
		c.PointerUp(ev.X, ev.Y)
	case EventLeave:
		c.PointerLeave()
	case EventWheel:
		if ev.DeltaMode < WheelPixel || ev.DeltaMode > WheelPage {
			return fmt.Errorf("invalid wheel delta mode %d", ev.DeltaMode)
		}
		c.Wheel(ev.X, ev.Y, ev.DeltaY, ev.DeltaMode, ev.Ctrl, now)
	case EventPinch:
		if !(ev.Scale > 0) {
			return fmt.Errorf("invalid pinch scale %v", ev.Scale)
		}
		c.Pinch(ev.X, ev.Y, ev.Scale, now)
	case EventDoubleClick:
		c.DoubleClick(ev.X, ev.Y, ev.Shift, now)
	case EventReset:
		c.Reset(now)
	case EventResize:
		if ev.Width < 0 || ev.Height < 0 {
			return fmt.Errorf("invalid size %vx%v", ev.Width, ev.Height)
		}
		c.Resize(ev.Width, ev.Height)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	c.Tick(now)
	return nil
}
