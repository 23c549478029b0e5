package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PointLight is one dynamic light. The flocking controller owns the slice and
// rewrites positions every tick; the lighting pass packs it for the GPU as
// two vec4s per light (position+radius, color+intensity).
type PointLight struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	Radius    float32
}

// MaxLights bounds the GPU light array. The flock pool tops out well below
// this; anything past the cap is truncated at upload.
const MaxLights = 512
