// Package broadcast fans the composited sensor canvas out to any number of
// remote viewers. A Hub is a display.Surface; viewers subscribe to it and
// receive events on buffered channels.
package broadcast

import (
	"image"
	"time"
)

// ViewerID identifies one subscribed viewer.
type ViewerID string

// Event is delivered from a Hub to its viewers.
type Event interface {
	event()
}

// FrameEvent carries one presented canvas. The image is shared between
// viewers and must not be modified.
type FrameEvent struct {
	Seq    uint64
	Canvas *image.RGBA
	At     time.Time
}

func (FrameEvent) event() {}

// StatusEvent describes the run being broadcast.
type StatusEvent struct {
	Text string
}

func (StatusEvent) event() {}

// ClosedEvent is the last event a viewer receives when the hub shuts down.
type ClosedEvent struct{}

func (ClosedEvent) event() {}
