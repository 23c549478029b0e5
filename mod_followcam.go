package murmur

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// FollowCamState trails the flock through its observation API: it never
// touches agent storage, only PositionAt and the count.
type FollowCamState struct {
	Camera *core.CameraState

	// Offset from the followed point to the camera eye.
	Offset mgl32.Vec3

	// Smoothing is the exponential catch-up rate per second; higher is
	// stiffer.
	Smoothing float32

	// TargetAgent pins the camera to one agent when >= 0; otherwise the
	// flock centroid is followed.
	TargetAgent int

	// ManualControl suspends following while another controller (the fly
	// camera) owns the camera.
	ManualControl bool

	target      mgl32.Vec3
	initialized bool
}

type FollowCamModule struct {
	Offset    mgl32.Vec3
	Smoothing float32
}

func (m FollowCamModule) Install(app *App, cmd *Commands) {
	if m.Offset.Len() == 0 {
		m.Offset = mgl32.Vec3{0, 14, 46}
	}
	if m.Smoothing <= 0 {
		m.Smoothing = 1.6
	}

	camera := core.NewCameraState()
	state := &FollowCamState{
		Camera:      camera,
		Offset:      m.Offset,
		Smoothing:   m.Smoothing,
		TargetAgent: -1,
	}

	cmd.AddResources(camera, state)
	cmd.UseSystem(
		System(followCamSystem).
			InStage(PostUpdate),
	)

	if timeline := resourceOf[TimelineState](app); timeline != nil {
		timeline.OnValuesChange(func(t *TimelineState) {
			state.Offset = t.Vec3("cam.offset", state.Offset)
			state.Smoothing = t.Scalar("cam.smoothing", state.Smoothing)
			state.TargetAgent = int(t.Scalar("cam.agent", float32(state.TargetAgent)))
		})
	}
}

func followCamSystem(t *Time, cam *FollowCamState, flock *FlockState) {
	if cam.ManualControl {
		return
	}
	sim := flock.Sim

	var target mgl32.Vec3
	if cam.TargetAgent >= 0 && cam.TargetAgent < sim.Count() {
		target = sim.PositionAt(cam.TargetAgent)
	} else {
		for i := 0; i < sim.Count(); i++ {
			target = target.Add(sim.PositionAt(i))
		}
		target = target.Mul(1 / float32(sim.Count()))
	}

	if !cam.initialized {
		cam.target = target
		cam.initialized = true
	} else {
		blend := 1 - float32(math.Exp(float64(-cam.Smoothing*t.DtSeconds())))
		cam.target = cam.target.Add(target.Sub(cam.target).Mul(blend))
	}

	cam.Camera.Position = cam.target.Add(cam.Offset)
	cam.Camera.LookAt(cam.target)
}
