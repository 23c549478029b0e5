package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type CameraState struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	FovDeg float32
	Near   float32
	Far    float32
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position: mgl32.Vec3{0, 12, 40},
		Yaw:      0,
		Pitch:    -0.15,
		FovDeg:   60,
		Near:     0.1,
		Far:      1000,
	}
}

// Forward derives the view direction from yaw/pitch, Y-up.
func (c *CameraState) Forward() mgl32.Vec3 {
	cosPitch := float32(math.Cos(float64(c.Pitch)))
	return mgl32.Vec3{
		cosPitch * float32(math.Sin(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
		-cosPitch * float32(math.Cos(float64(c.Yaw))),
	}
}

func (c *CameraState) View() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.Forward())
	up := mgl32.Vec3{0, 1, 0}
	return mgl32.LookAtV(eye, target, up)
}

func (c *CameraState) Projection(aspect float32) mgl32.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovDeg), aspect, c.Near, c.Far)
}

// LookAt points the camera at a world position without rolling.
func (c *CameraState) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Position)
	flat := float32(math.Hypot(float64(d.X()), float64(d.Z())))
	c.Yaw = float32(math.Atan2(float64(d.X()), float64(-d.Z())))
	c.Pitch = float32(math.Atan2(float64(d.Y()), float64(flat)))
}
