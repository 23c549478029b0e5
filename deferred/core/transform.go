package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a position/rotation/scale triple composable into the 4x4
// world matrix used by instance buffers.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Mat4 composes translation * rotation * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotation := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return translation.Mul4(rotation).Mul4(scale)
}

// Pack flattens the composed matrix into 16 floats, column-major, which is
// the layout both mgl32 and WGSL mat4x4 constructors use.
func (t Transform) Pack() [16]float32 {
	return [16]float32(t.Mat4())
}

// DecomposeTRS splits a column-major TRS matrix back into its components.
// Shear-free matrices round-trip exactly up to float precision; the returned
// rotation may differ from the composed one by quaternion sign.
func DecomposeTRS(m mgl32.Mat4) Transform {
	position := mgl32.Vec3{m[12], m[13], m[14]}

	c0 := mgl32.Vec3{m[0], m[1], m[2]}
	c1 := mgl32.Vec3{m[4], m[5], m[6]}
	c2 := mgl32.Vec3{m[8], m[9], m[10]}
	scale := mgl32.Vec3{c0.Len(), c1.Len(), c2.Len()}

	rot := mgl32.Ident4()
	if scale.X() > 0 && scale.Y() > 0 && scale.Z() > 0 {
		c0 = c0.Mul(1 / scale.X())
		c1 = c1.Mul(1 / scale.Y())
		c2 = c2.Mul(1 / scale.Z())
		rot = mgl32.Mat4{
			c0.X(), c0.Y(), c0.Z(), 0,
			c1.X(), c1.Y(), c1.Z(), 0,
			c2.X(), c2.Y(), c2.Z(), 0,
			0, 0, 0, 1,
		}
	}

	return Transform{
		Position: position,
		Rotation: mgl32.Mat4ToQuat(rot),
		Scale:    scale,
	}
}

const headingEpsilon = 1e-5

// HeadingQuat returns the shortest-arc rotation taking the fixed forward
// axis onto dir. Near-zero dir yields identity so callers never see NaN
// orientations from a stalled agent.
func HeadingQuat(forward, dir mgl32.Vec3) mgl32.Quat {
	if dir.Len() < headingEpsilon {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatBetweenVectors(forward, dir.Normalize())
}
