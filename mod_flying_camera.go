package murmur

import (
	"github.com/go-gl/mathgl/mgl32"
)

const flyCamPitchLimit = 1.55 // just short of straight up/down, radians

// FlyCamState is the free-flight override: F takes the camera off the flock,
// Tab toggles mouse capture, WASD plus Space/Ctrl move.
type FlyCamState struct {
	Enabled     bool
	Speed       float32
	Sensitivity float32
}

type FlyCamModule struct {
	Speed       float32
	Sensitivity float32
}

func (m FlyCamModule) Install(app *App, cmd *Commands) {
	if resourceOf[Input](app) == nil || resourceOf[FollowCamState](app) == nil {
		panic("fly camera module: InputModule and FollowCamModule must be installed first")
	}
	if m.Speed <= 0 {
		m.Speed = 24
	}
	if m.Sensitivity <= 0 {
		m.Sensitivity = 0.0025
	}

	cmd.AddResources(&FlyCamState{
		Speed:       m.Speed,
		Sensitivity: m.Sensitivity,
	})
	// Registered after FollowCamModule, so within PostUpdate this runs
	// after the follow update and the override wins the frame.
	cmd.UseSystem(
		System(flyCamSystem).
			InStage(PostUpdate),
	)
}

func flyCamSystem(t *Time, input *Input, fly *FlyCamState, follow *FollowCamState) {
	if input.JustPressed[KeyF] {
		fly.Enabled = !fly.Enabled
		follow.ManualControl = fly.Enabled
		input.MouseCaptured = fly.Enabled
		if !fly.Enabled {
			// Hand the camera back where it stands so the follow
			// easing resumes from here instead of teleporting.
			follow.target = follow.Camera.Position.Sub(follow.Offset)
			follow.initialized = true
		}
	}
	if input.JustPressed[KeyTab] {
		input.MouseCaptured = !input.MouseCaptured
	}
	if !fly.Enabled {
		return
	}

	camera := follow.Camera
	if input.MouseCaptured {
		camera.Yaw += float32(input.MouseDeltaX) * fly.Sensitivity
		camera.Pitch -= float32(input.MouseDeltaY) * fly.Sensitivity
		if camera.Pitch > flyCamPitchLimit {
			camera.Pitch = flyCamPitchLimit
		}
		if camera.Pitch < -flyCamPitchLimit {
			camera.Pitch = -flyCamPitchLimit
		}
	}

	forward := camera.Forward()
	up := mgl32.Vec3{0, 1, 0}
	right := forward.Cross(up).Normalize()

	var move mgl32.Vec3
	if input.Pressed[KeyW] {
		move = move.Add(forward)
	}
	if input.Pressed[KeyS] {
		move = move.Sub(forward)
	}
	if input.Pressed[KeyD] {
		move = move.Add(right)
	}
	if input.Pressed[KeyA] {
		move = move.Sub(right)
	}
	if input.Pressed[KeySpace] {
		move = move.Add(up)
	}
	if input.Pressed[KeyControl] {
		move = move.Sub(up)
	}

	if move.Len() > 0 {
		camera.Position = camera.Position.Add(move.Normalize().Mul(fly.Speed * t.DtSeconds()))
	}
}
