package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func vecNear(a, b mgl32.Vec3, tol float32) bool {
	return absf(a.X()-b.X()) < tol && absf(a.Y()-b.Y()) < tol && absf(a.Z()-b.Z()) < tol
}

func TestTransform_PackDecomposeRoundTrip(t *testing.T) {
	cases := []Transform{
		{Position: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
		{Position: mgl32.Vec3{-4.5, 0.25, 90}, Rotation: mgl32.QuatRotate(1.3, mgl32.Vec3{0, 1, 0}), Scale: mgl32.Vec3{2, 2, 2}},
		{Position: mgl32.Vec3{0, -7, 0.001}, Rotation: mgl32.QuatRotate(0.7, mgl32.Vec3{1, 1, 0}.Normalize()), Scale: mgl32.Vec3{0.5, 3, 1.25}},
	}

	for i, tr := range cases {
		packed := tr.Pack()
		back := DecomposeTRS(mgl32.Mat4(packed))

		if !vecNear(back.Position, tr.Position, 1e-4) {
			t.Errorf("case %d: position %v decomposed to %v", i, tr.Position, back.Position)
		}
		if !vecNear(back.Scale, tr.Scale, 1e-4) {
			t.Errorf("case %d: scale %v decomposed to %v", i, tr.Scale, back.Scale)
		}

		// Quaternions q and -q are the same rotation; compare via |dot| ≈ 1.
		dot := tr.Rotation.Dot(back.Rotation)
		if math.Abs(float64(dot)) < 1-1e-4 {
			t.Errorf("case %d: rotation %v decomposed to %v (|dot|=%v)", i, tr.Rotation, back.Rotation, dot)
		}
	}
}

func TestHeadingQuat_RotatesForwardOntoDirection(t *testing.T) {
	forward := mgl32.Vec3{0, 0, 1}
	dir := mgl32.Vec3{3, 0.5, -1}

	q := HeadingQuat(forward, dir)
	rotated := q.Rotate(forward)

	if !vecNear(rotated, dir.Normalize(), 1e-5) {
		t.Errorf("rotated forward %v does not match direction %v", rotated, dir.Normalize())
	}
}

func TestHeadingQuat_NearZeroDirectionIsIdentity(t *testing.T) {
	q := HeadingQuat(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1e-7, 0, 0})
	if q != mgl32.QuatIdent() {
		t.Errorf("near-zero direction must yield identity, got %v", q)
	}

	// And the identity must be finite; a naive normalize here would NaN.
	rotated := q.Rotate(mgl32.Vec3{0, 0, 1})
	if rotated != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("identity rotation changed the vector: %v", rotated)
	}
}
