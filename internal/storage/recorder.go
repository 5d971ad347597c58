package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/sensor"
)

// DefaultBatchSize is the number of ticks buffered before a flush.
const DefaultBatchSize = 64

// Recorder buffers the telemetry of one session and writes it in batches.
// It is safe for concurrent use.
type Recorder struct {
	store     *Store
	session   Session
	batchSize int

	mu      sync.Mutex
	pending []core.TickSample
	closed  bool
}

// NewRecorder starts a session and returns a recorder for it.
func NewRecorder(store *Store, mode, backend string) (*Recorder, error) {
	sess, err := store.StartSession(mode, backend, "")
	if err != nil {
		return nil, err
	}
	return &Recorder{store: store, session: sess, batchSize: DefaultBatchSize}, nil
}

// SessionID returns the ID of the recorded session.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// SetBatchSize changes the flush threshold. Values below one flush every
// tick.
func (r *Recorder) SetBatchSize(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchSize = max(n, 1)
}

// SetVehicle records the vehicle type for the session.
func (r *Recorder) SetVehicle(typeID string) error {
	return r.store.SetVehicle(r.session.ID, typeID)
}

// RecordTick buffers one sample, flushing when the batch is full.
func (r *Recorder) RecordTick(s core.TickSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.New("storage: recorder closed")
	}
	r.pending = append(r.pending, s)
	if len(r.pending) < r.batchSize {
		return nil
	}
	return r.flushLocked()
}

// RecordSensorStats stores one sensor's timing summary.
func (r *Recorder) RecordSensorStats(kind string, s sensor.StatsSnapshot) error {
	return r.store.SaveSensorStats(r.session.ID, kind, s)
}

// Flush writes buffered ticks.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

// flushLocked writes the pending batch. A batch that fails to write is
// dropped so the buffer stays bounded.
func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	err := r.store.RecordTicks(r.session.ID, r.pending)
	n := len(r.pending)
	r.pending = r.pending[:0]
	if err != nil {
		return fmt.Errorf("storage: dropped %d ticks: %w", n, err)
	}
	return nil
}

// Close flushes and ends the session with reason. Later calls are no-ops.
func (r *Recorder) Close(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return errors.Join(r.flushLocked(), r.store.EndSession(r.session.ID, reason))
}
