package murmur

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmur3d/murmur/deferred/core"
)

func flockCentroid(f *Flock) mgl32.Vec3 {
	var c mgl32.Vec3
	for i := 0; i < f.Count(); i++ {
		c = c.Add(f.PositionAt(i))
	}
	return c.Mul(1 / float32(f.Count()))
}

func TestFollowCamTracksCentroid(t *testing.T) {
	app := buildFlockApp(t, FollowCamModule{})

	camState := resourceOf[FollowCamState](app)
	camera := resourceOf[core.CameraState](app)
	flock := resourceOf[FlockState](app)
	require.NotNil(t, camState)
	require.NotNil(t, camera)
	assert.Same(t, camera, camState.Camera)

	tm := &Time{Dt: 16 * time.Millisecond}
	followCamSystem(tm, camState, flock)

	centroid := flockCentroid(flock.Sim)
	assert.Equal(t, centroid.Add(camState.Offset), camera.Position,
		"first update snaps to the centroid plus offset")

	// The camera looks at the followed point.
	toTarget := centroid.Sub(camera.Position).Normalize()
	forward := camera.Forward()
	assert.InDelta(t, 1, float64(toTarget.Dot(forward)), 1e-4)
}

func TestFollowCamSmoothsAfterFirstFrame(t *testing.T) {
	app := buildFlockApp(t, FollowCamModule{Smoothing: 2})
	camState := resourceOf[FollowCamState](app)
	flock := resourceOf[FlockState](app)
	sceneState := resourceOf[SceneState](app)

	tm := &Time{Dt: 16 * time.Millisecond}
	followCamSystem(tm, camState, flock)
	first := camState.target

	// Move the flock, then update again: the smoothed target must land
	// strictly between the old and new centroids.
	for i := 0; i < 30; i++ {
		flockTickSystem(tm, flock)
	}
	flockPublishSystem(flock, sceneState)
	moved := flockCentroid(flock.Sim)
	require.NotEqual(t, first, moved)

	followCamSystem(tm, camState, flock)
	distBefore := moved.Sub(first).Len()
	distAfter := moved.Sub(camState.target).Len()
	assert.Less(t, distAfter, distBefore, "target eases toward the new centroid")
	assert.Greater(t, distAfter, float32(0), "one frame of easing must not teleport")
}

func TestFollowCamPinsToAgent(t *testing.T) {
	app := buildFlockApp(t, FollowCamModule{})
	camState := resourceOf[FollowCamState](app)
	flock := resourceOf[FlockState](app)

	camState.TargetAgent = 3
	tm := &Time{Dt: 16 * time.Millisecond}
	followCamSystem(tm, camState, flock)

	want := flock.Sim.PositionAt(3).Add(camState.Offset)
	assert.Equal(t, want, camState.Camera.Position)

	// An out-of-range pin falls back to the centroid instead of panicking.
	camState.TargetAgent = 10_000
	followCamSystem(tm, camState, flock)
}
