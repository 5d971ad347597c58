package sim_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/carlaview/internal/sim"
	"github.com/vovakirdan/carlaview/internal/sim/fake"
)

func newWorld(t *testing.T) (*fake.Client, sim.World) {
	t.Helper()
	c := fake.New()
	w, err := c.World(context.Background())
	require.NoError(t, err)
	return c, w
}

func TestErrorKinds(t *testing.T) {
	var err error = &sim.ConnectionError{Host: "127.0.0.1", Port: 2000, Err: errors.New("refused")}
	assert.ErrorIs(t, err, sim.ErrConnection)
	assert.NotErrorIs(t, err, sim.ErrSpawn)
	assert.Contains(t, err.Error(), "127.0.0.1:2000")

	var ce *sim.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2000, ce.Port)

	err = &sim.SpawnError{Reason: sim.SpawnCollision, Detail: "occupied"}
	assert.ErrorIs(t, err, sim.ErrSpawn)
	assert.NotErrorIs(t, err, sim.ErrConnection)
	assert.Contains(t, err.Error(), "collision")
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, sim.MatchPattern("*model3*", "vehicle.tesla.model3"))
	assert.True(t, sim.MatchPattern("*sensor*", "sensor.camera.rgb"))
	assert.True(t, sim.MatchPattern("vehicle.*", "vehicle.audi.tt"))
	assert.False(t, sim.MatchPattern("*vehicle*", "sensor.lidar.ray_cast"))
	assert.False(t, sim.MatchPattern("[", "anything"))
}

func TestSetupSynchronousMode(t *testing.T) {
	c, w := newWorld(t)
	tm, err := c.TrafficManager(8000)
	require.NoError(t, err)

	original, err := sim.SetupSynchronousMode(w, tm, 0.05)
	require.NoError(t, err)

	assert.False(t, original.SynchronousMode)
	assert.True(t, w.Settings().SynchronousMode)
	assert.InDelta(t, 0.05, w.Settings().FixedDeltaSeconds, 1e-9)

	require.NoError(t, sim.RestoreSettings(w, original))
	assert.Equal(t, original, w.Settings())
}

func TestVehicleBlueprint(t *testing.T) {
	_, w := newWorld(t)

	bp, err := sim.VehicleBlueprint(w, "*model3*")
	require.NoError(t, err)
	assert.Equal(t, fake.BlueprintModel3, bp.ID())

	_, err = sim.VehicleBlueprint(w, "*cybertruck*")
	require.ErrorIs(t, err, sim.ErrSpawn)
	var se *sim.SpawnError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim.SpawnNoBlueprint, se.Reason)
}

func TestSpawnPointsByRoad(t *testing.T) {
	_, w := newWorld(t)

	points := sim.SpawnPointsByRoad(w.Map(), []int{37})
	require.NotEmpty(t, points)
	for _, p := range points {
		wp, ok := w.Map().Waypoint(p.Location)
		require.True(t, ok)
		assert.Equal(t, 37, wp.RoadID)
	}

	assert.Empty(t, sim.SpawnPointsByRoad(w.Map(), []int{999}))
}

func TestSpawnVehicleCollision(t *testing.T) {
	_, w := newWorld(t)
	point := w.Map().SpawnPoints()[0]

	v, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*", SpawnPoint: &point})
	require.NoError(t, err)
	assert.True(t, v.IsAlive())

	_, err = sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*", SpawnPoint: &point})
	var se *sim.SpawnError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim.SpawnCollision, se.Reason)
}

func TestSpawnVehicleOnRoad(t *testing.T) {
	_, w := newWorld(t)

	v, err := sim.SpawnVehicleOnRoad(context.Background(), w, []int{37}, 0, sim.SpawnOptions{Filter: "*model3*"})
	require.NoError(t, err)
	wp, ok := w.Map().Waypoint(v.Transform().Location)
	require.True(t, ok)
	assert.Equal(t, 37, wp.RoadID)

	_, err = sim.SpawnVehicleOnRoad(context.Background(), w, []int{999}, 0, sim.SpawnOptions{Filter: "*model3*"})
	var se *sim.SpawnError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sim.SpawnNoSpawnPoint, se.Reason)
}

func TestSpawnVehicleOnRoadSettleCancelled(t *testing.T) {
	_, w := newWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context cuts the settle wait short but keeps the vehicle.
	v, err := sim.SpawnVehicleOnRoad(ctx, w, []int{37}, 24*time.Hour, sim.SpawnOptions{Filter: "*model3*"})
	require.NoError(t, err)
	assert.True(t, v.IsAlive())
}

func TestFindVehicle(t *testing.T) {
	_, w := newWorld(t)

	_, err := sim.FindVehicle(w, "*model3*")
	require.ErrorIs(t, err, sim.ErrVehicleNotFound)

	spawned, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*"})
	require.NoError(t, err)

	found, err := sim.FindVehicle(w, "*model3*")
	require.NoError(t, err)
	assert.Equal(t, spawned.ID(), found.ID())
}

func TestDestroyHelpers(t *testing.T) {
	_, w := newWorld(t)
	v, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*"})
	require.NoError(t, err)

	bp, err := w.Blueprints().Find(fake.BlueprintCamera)
	require.NoError(t, err)
	cam, err := w.SpawnActor(bp, sim.Transform{}, v)
	require.NoError(t, err)
	require.NoError(t, cam.(sim.Sensor).Listen(func(sim.Measurement) {}))

	require.NoError(t, sim.DestroyAllSensors(w))
	assert.False(t, cam.IsAlive())
	assert.True(t, v.IsAlive())

	require.NoError(t, sim.DestroyAllVehicles(w))
	assert.False(t, v.IsAlive())

	// Destroying twice is a no-op.
	require.NoError(t, sim.DestroyActor(v))
	require.NoError(t, sim.DestroyActor(nil))
}

// countingActor records how often it is destroyed.
type countingActor struct {
	mu        sync.Mutex
	id        int
	destroyed int
	order     *[]int
}

func (a *countingActor) ID() int        { return a.id }
func (a *countingActor) TypeID() string { return "vehicle.test.counting" }

func (a *countingActor) IsAlive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.destroyed == 0
}

func (a *countingActor) Destroy() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyed++
	*a.order = append(*a.order, a.id)
	return nil
}

func TestSessionCloseRunsOnce(t *testing.T) {
	_, w := newWorld(t)
	original := w.Settings()
	_, err := sim.SetupSynchronousMode(w, nil, 0.05)
	require.NoError(t, err)

	s := sim.NewSession(w, nil)
	s.RememberSettings(original)

	var order []int
	a1 := &countingActor{id: 1, order: &order}
	a2 := &countingActor{id: 2, order: &order}
	s.Track(a1)
	s.Track(a2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Close())
		}()
	}
	wg.Wait()

	assert.True(t, s.Closed())
	assert.Equal(t, 1, a1.destroyed)
	assert.Equal(t, 1, a2.destroyed)
	assert.Equal(t, []int{2, 1}, order, "actors are destroyed in reverse spawn order")
	assert.Equal(t, original, w.Settings())
}

func TestSessionStopsSensorsAndSweeps(t *testing.T) {
	_, w := newWorld(t)
	s := sim.NewSession(w, nil)
	points := w.Map().SpawnPoints()

	v, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*", SpawnPoint: &points[0]})
	require.NoError(t, err)
	s.Track(v)

	bp, err := w.Blueprints().Find(fake.BlueprintLidar)
	require.NoError(t, err)
	lidar, err := w.SpawnActor(bp, sim.Transform{}, v)
	require.NoError(t, err)
	sensor := lidar.(sim.Sensor)
	require.NoError(t, sensor.Listen(func(sim.Measurement) {}))
	s.Track(lidar)

	// Spawned outside the session, removed by the sweep.
	stray, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*audi*", SpawnPoint: &points[1]})
	require.NoError(t, err)
	s.Sweep("*sensor*", "*vehicle*")

	require.NoError(t, s.Close())
	assert.False(t, sensor.IsListening())
	assert.False(t, lidar.IsAlive())
	assert.False(t, v.IsAlive())
	assert.False(t, stray.IsAlive())
	assert.Empty(t, w.Actors("*"))

	// Tracking after close destroys immediately.
	late, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*model3*", SpawnPoint: &points[2]})
	require.NoError(t, err)
	s.Track(late)
	assert.False(t, late.IsAlive())
}
