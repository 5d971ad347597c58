package broadcast

import "sync"

// DefaultBuffer is the per-viewer event buffer size.
const DefaultBuffer = 8

// Viewer receives hub events on a buffered channel. A slow viewer loses
// its oldest events rather than blocking the hub.
type Viewer struct {
	id       ViewerID
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
	leave    func(ViewerID)
}

func newViewer(id ViewerID, buffer int, leave func(ViewerID)) *Viewer {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Viewer{
		id:     id,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		leave:  leave,
	}
}

// ID returns the viewer identifier.
func (v *Viewer) ID() ViewerID {
	return v.id
}

// send delivers evt without blocking, dropping the oldest buffered event
// when full.
func (v *Viewer) send(evt Event) {
	select {
	case <-v.done:
		return
	default:
	}

	select {
	case v.events <- evt:
	default:
		select {
		case <-v.events:
		default:
		}
		select {
		case v.events <- evt:
		default:
		}
	}
}

// Events returns the channel to receive events from.
func (v *Viewer) Events() <-chan Event {
	return v.events
}

// Done returns a channel closed when the viewer leaves.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

// Close unsubscribes the viewer. Safe to call multiple times.
func (v *Viewer) Close() {
	v.doneOnce.Do(func() {
		close(v.done)
		if v.leave != nil {
			v.leave(v.id)
		}
	})
}
