package murmur

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallFlockParams() FlockParams {
	p := DefaultFlockParams()
	p.Count = 24
	p.Seed = 5
	return p
}

func buildFlockApp(t *testing.T, extra ...Module) *App {
	t.Helper()
	params := smallFlockParams()
	modules := []Module{
		AssetServerModule{},
		SceneModule{TerrainSize: 100, TerrainSegments: 8, PlantClusters: 2, BeaconCount: 2},
		FlockModule{Params: &params, LightStride: 6},
	}
	app := NewApp()
	app.UseModules(append(extra, modules...)...)
	app.build()
	return app
}

func TestFlockModuleWiresBatchAndLights(t *testing.T) {
	app := buildFlockApp(t)

	state := resourceOf[FlockState](app)
	require.NotNil(t, state)
	scene := resourceOf[SceneState](app).Scene

	// Terrain, plants, beacons, then the boid batch.
	require.Len(t, scene.Batches, 4)
	assert.Same(t, state.Batch, scene.Batches[3])
	assert.Equal(t, 24, state.Batch.Count())

	// Every 6th agent trails a light: agents 0, 6, 12, 18.
	assert.Equal(t, 4, state.lightCount)
	require.GreaterOrEqual(t, len(scene.Lights), 4)
	for li := 0; li < state.lightCount; li++ {
		light := scene.Lights[state.lightBase+li]
		assert.Equal(t, state.Sim.PositionAt(li*6), light.Position)
		assert.Greater(t, light.Intensity, float32(0))
	}
}

func TestFlockTickAndPublishMoveInstances(t *testing.T) {
	app := buildFlockApp(t)
	state := resourceOf[FlockState](app)
	sceneState := resourceOf[SceneState](app)

	before := make([]mgl32.Mat4, state.Batch.Count())
	for i := range before {
		before[i] = state.Batch.TransformAt(i)
	}
	state.Batch.MarkClean()

	tm := &Time{Dt: 16 * time.Millisecond}
	flockTickSystem(tm, state)
	flockPublishSystem(state, sceneState)

	assert.True(t, state.Batch.Dirty(), "publish must flag the batch for re-upload")

	moved := 0
	for i := 0; i < state.Batch.Count(); i++ {
		m := state.Batch.TransformAt(i)
		if m != before[i] {
			moved++
		}
		assert.Equal(t, state.Sim.PositionAt(i), m.Col(3).Vec3(), "instance %d transform lags the sim", i)
	}
	assert.Greater(t, moved, state.Batch.Count()/2, "most agents should move in a tick")

	// Lights trail their agents.
	scene := sceneState.Scene
	for li := 0; li < state.lightCount; li++ {
		assert.Equal(t, state.Sim.PositionAt(li*state.lightStride), scene.Lights[state.lightBase+li].Position)
	}
}

func TestFlockPublishKeepsMotionVectorHistory(t *testing.T) {
	app := buildFlockApp(t)
	state := resourceOf[FlockState](app)
	sceneState := resourceOf[SceneState](app)

	current := state.Batch.TransformAt(0)

	tm := &Time{Dt: 16 * time.Millisecond}
	flockTickSystem(tm, state)
	flockPublishSystem(state, sceneState)

	prev := state.Batch.AttributeAt(0, "prevTransform")
	assert.Equal(t, current[:], prev, "previous world matrix must rotate into the history slot")
}

func TestFlockModuleRequiresSceneAndAssets(t *testing.T) {
	app := NewApp()
	app.UseModules(FlockModule{})
	require.PanicsWithValue(t, "flock module: AssetServerModule and SceneModule must be installed first", func() {
		app.build()
	})
}

func TestFlockModuleTimelineBindings(t *testing.T) {
	app := buildFlockApp(t, TimelineModule{})
	state := resourceOf[FlockState](app)
	timeline := resourceOf[TimelineState](app)
	require.NotNil(t, timeline)

	// Install-time registration must not disturb the defaults.
	assert.Equal(t, DefaultFlockParams().SeparationWeight, state.Sim.Params().SeparationWeight)

	path := writeTimelineFile(t, `{
		"flock.center": [40, 12, -8],
		"flock.separation": 2.5,
		"flock.centerPull": 0.2
	}`)
	require.True(t, timeline.load(path))
	timelineSystem(timeline)

	assert.Equal(t, mgl32.Vec3{40, 12, -8}, state.Sim.Center())
	p := state.Sim.Params()
	assert.Equal(t, float32(2.5), p.SeparationWeight)
	assert.Equal(t, float32(0.2), p.CenterPull)
	assert.Equal(t, DefaultFlockParams().AlignmentWeight, p.AlignmentWeight,
		"keys absent from the file keep their current values")
}
