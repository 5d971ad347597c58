package broadcast

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Hub is a display.Surface that republishes every presented canvas to
// its viewers. It has no input of its own.
type Hub struct {
	buffer int
	seq    atomic.Uint64
	nextID atomic.Uint64

	mu      sync.RWMutex
	viewers map[ViewerID]*Viewer
	last    *FrameEvent
	status  string
	closed  bool
}

// NewHub creates a hub whose viewers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	return &Hub{
		buffer:  buffer,
		viewers: make(map[ViewerID]*Viewer),
	}
}

// Subscribe registers a viewer. The latest status and frame, if any, are
// delivered immediately.
func (h *Hub) Subscribe(name string) *Viewer {
	id := ViewerID(fmt.Sprintf("%s-%d", name, h.nextID.Add(1)))
	v := newViewer(id, h.buffer, h.unsubscribe)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		v.send(ClosedEvent{})
		return v
	}
	h.viewers[id] = v
	if h.status != "" {
		v.send(StatusEvent{Text: h.status})
	}
	if h.last != nil {
		v.send(*h.last)
	}
	return v
}

func (h *Hub) unsubscribe(id ViewerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers, id)
}

// Count returns the number of subscribed viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Announce sets the status line and sends it to every viewer.
func (h *Hub) Announce(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = text
	for _, v := range h.viewers {
		v.send(StatusEvent{Text: text})
	}
}

// Present implements display.Surface. The canvas is copied since the
// compositor reuses it.
func (h *Hub) Present(canvas *image.RGBA) error {
	cp := image.NewRGBA(canvas.Bounds())
	draw.Draw(cp, cp.Bounds(), canvas, canvas.Bounds().Min, draw.Src)
	evt := FrameEvent{Seq: h.seq.Add(1), Canvas: cp, At: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.last = &evt
	for _, v := range h.viewers {
		v.send(evt)
	}
	return nil
}

// Poll implements display.InputSource. Spectators cannot drive.
func (h *Hub) Poll() core.InputFrame {
	return core.NewInputFrame()
}

// Close implements display.Surface. Viewers receive a ClosedEvent and are
// dropped.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, v := range h.viewers {
		v.send(ClosedEvent{})
		delete(h.viewers, id)
	}
	return nil
}
