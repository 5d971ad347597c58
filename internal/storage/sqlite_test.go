package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/carlaview/internal/control"
	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/sensor"
)

var (
	_ control.Recorder        = (*Recorder)(nil)
	_ control.StatsRecorder   = (*Recorder)(nil)
	_ control.VehicleRecorder = (*Recorder)(nil)
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := Open(dbPath)
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created")

	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	require.NoError(t, store.Close())

	// Reopening an up to date database is not an error.
	store, err = Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestSessionLifecycle(t *testing.T) {
	store := openStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	sess, err := store.StartSession("drive", "fake", "")
	require.NoError(t, err)
	_, err = uuid.Parse(sess.ID)
	assert.NoError(t, err)
	assert.True(t, sess.Running())

	require.NoError(t, store.SetVehicle(sess.ID, "vehicle.tesla.model3"))
	require.NoError(t, store.RecordTicks(sess.ID, []core.TickSample{
		{Tick: 0, SpeedKPH: 1, Throttle: 0.8},
		{Tick: 1, SpeedKPH: 3, Throttle: 0.8, Steer: -0.1, Predicted: 0.1},
	}))

	store.now = func() time.Time { return start.Add(90 * time.Second) }
	require.NoError(t, store.EndSession(sess.ID, "quit"))

	got, err := store.Session(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "drive", got.Mode)
	assert.Equal(t, "vehicle.tesla.model3", got.Vehicle)
	assert.Equal(t, 2, got.Ticks)
	assert.Equal(t, "quit", got.EndReason)
	assert.Equal(t, start, got.StartedAt)
	assert.Equal(t, 90*time.Second, got.Duration())

	ticks, err := store.Ticks(sess.ID)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, 3.0, ticks[1].SpeedKPH)
	assert.Equal(t, 0.1, ticks[1].Predicted)
}

func TestSessionNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.Session("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.EndSession("missing", "quit"), ErrNotFound)
	assert.ErrorIs(t, store.DeleteSession("missing"), ErrNotFound)
}

func TestSessionsNewestFirst(t *testing.T) {
	store := openStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		store.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		sess, err := store.StartSession("sensors", "fake", "")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	sessions, err := store.Sessions(2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, ids[2], sessions[0].ID)
	assert.Equal(t, ids[1], sessions[1].ID)
}

func TestFindSessionByPrefix(t *testing.T) {
	store := openStore(t)
	for _, id := range []string{"abc-1", "abc-2", "def-1"} {
		_, err := store.db.Exec(
			`INSERT INTO sessions (id, mode, backend, started_at) VALUES (?, 'drive', 'fake', 0)`, id)
		require.NoError(t, err)
	}

	sess, err := store.FindSession("def")
	require.NoError(t, err)
	assert.Equal(t, "def-1", sess.ID)

	sess, err = store.FindSession("abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-2", sess.ID)

	_, err = store.FindSession("abc")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = store.FindSession("xyz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.FindSession("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateTickRollsBack(t *testing.T) {
	store := openStore(t)
	sess, err := store.StartSession("manual", "fake", "")
	require.NoError(t, err)

	err = store.RecordTicks(sess.ID, []core.TickSample{{Tick: 0}, {Tick: 1}, {Tick: 1}})
	assert.Error(t, err)

	ticks, err := store.Ticks(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestSensorStatsAndDelete(t *testing.T) {
	store := openStore(t)
	sess, err := store.StartSession("sensors", "fake", "")
	require.NoError(t, err)

	snap := sensor.StatsSnapshot{Ticks: 10, Total: 25 * time.Millisecond, MeanMS: 2.5, StdDevMS: 0.5}
	require.NoError(t, store.SaveSensorStats(sess.ID, "lidar", snap))
	require.NoError(t, store.RecordTicks(sess.ID, []core.TickSample{{Tick: 0}}))

	stats, err := store.SensorStats(sess.ID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "lidar", stats[0].Kind)
	assert.Equal(t, snap, stats[0].StatsSnapshot)

	require.NoError(t, store.DeleteSession(sess.ID))
	ticks, err := store.Ticks(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, ticks)
	stats, err = store.SensorStats(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRecorderBatches(t *testing.T) {
	store := openStore(t)
	rec, err := NewRecorder(store, "drive", "fake")
	require.NoError(t, err)
	rec.SetBatchSize(3)

	for i := range 4 {
		require.NoError(t, rec.RecordTick(core.TickSample{Tick: i}))
	}

	ticks, err := store.Ticks(rec.SessionID())
	require.NoError(t, err)
	assert.Len(t, ticks, 3, "only the full batch is written")

	require.NoError(t, rec.RecordSensorStats("camera", sensor.StatsSnapshot{Ticks: 4}))
	require.NoError(t, rec.Close("done"))
	require.NoError(t, rec.Close("again"))
	assert.Error(t, rec.RecordTick(core.TickSample{Tick: 9}))

	sess, err := store.Session(rec.SessionID())
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Ticks)
	assert.Equal(t, "done", sess.EndReason)
	assert.False(t, sess.Running())
}

func TestRecorderDropsFailedBatch(t *testing.T) {
	store := openStore(t)
	rec, err := NewRecorder(store, "manual", "fake")
	require.NoError(t, err)
	rec.SetBatchSize(2)

	require.NoError(t, rec.RecordTick(core.TickSample{Tick: 0}))
	assert.Error(t, rec.RecordTick(core.TickSample{Tick: 0}), "duplicate tick fails the batch")
	assert.Empty(t, rec.pending, "failed batch is not retried")

	require.NoError(t, rec.RecordTick(core.TickSample{Tick: 1}))
	require.NoError(t, rec.RecordTick(core.TickSample{Tick: 2}))
	require.NoError(t, rec.Close("done"))

	ticks, err := store.Ticks(rec.SessionID())
	require.NoError(t, err)
	assert.Len(t, ticks, 2)
}
