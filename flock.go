package murmur

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// flockForward is the reference axis agent orientations rotate from.
var flockForward = mgl32.Vec3{0, 0, 1}

const flockEpsilon = 1e-4

type FlockParams struct {
	Count int
	Seed  int64

	// Agents spawn uniformly inside this box.
	SpawnMin mgl32.Vec3
	SpawnMax mgl32.Vec3

	PerceptionRadius float32
	SeparationRadius float32

	MaxSpeed float32
	MaxForce float32

	AlignmentWeight  float32
	CohesionWeight   float32
	SeparationWeight float32

	// CenterPull scales the unclamped pull toward the mutable center point.
	CenterPull float32

	// JitterStrength is the per-axis amplitude of the unclamped random
	// acceleration added every tick.
	JitterStrength float32

	// HeightWeight > 0 enables steering the vertical velocity toward
	// TargetHeight, clamped to MaxForce like the grouped forces.
	TargetHeight float32
	HeightWeight float32

	FloorEnabled bool
	FloorHeight  float32
	Restitution  float32
}

func DefaultFlockParams() FlockParams {
	return FlockParams{
		Count:            200,
		Seed:             1,
		SpawnMin:         mgl32.Vec3{-30, 8, -30},
		SpawnMax:         mgl32.Vec3{30, 28, 30},
		PerceptionRadius: 12,
		SeparationRadius: 3.5,
		MaxSpeed:         14,
		MaxForce:         8,
		AlignmentWeight:  1.0,
		CohesionWeight:   0.9,
		SeparationWeight: 1.8,
		CenterPull:       0.08,
		JitterStrength:   0.4,
		TargetHeight:     18,
		HeightWeight:     0,
		FloorEnabled:     true,
		FloorHeight:      0.5,
		Restitution:      0.5,
	}
}

// Flock is the agent pool. All agents are created up front and live for the
// pool's lifetime; Tick mutates them in place.
type Flock struct {
	params FlockParams
	center mgl32.Vec3

	pos []mgl32.Vec3
	vel []mgl32.Vec3
	acc []mgl32.Vec3

	rng *rand.Rand
}

func NewFlock(params FlockParams) *Flock {
	if params.Count <= 0 {
		panic(fmt.Sprintf("flock: agent count must be positive, got %d", params.Count))
	}
	if params.MaxSpeed <= 0 {
		panic(fmt.Sprintf("flock: maxSpeed must be positive, got %g", params.MaxSpeed))
	}

	f := &Flock{
		params: params,
		pos:    make([]mgl32.Vec3, params.Count),
		vel:    make([]mgl32.Vec3, params.Count),
		acc:    make([]mgl32.Vec3, params.Count),
		rng:    rand.New(rand.NewSource(params.Seed)),
	}

	span := params.SpawnMax.Sub(params.SpawnMin)
	for i := range f.pos {
		f.pos[i] = mgl32.Vec3{
			params.SpawnMin.X() + f.rng.Float32()*span.X(),
			params.SpawnMin.Y() + f.rng.Float32()*span.Y(),
			params.SpawnMin.Z() + f.rng.Float32()*span.Z(),
		}
		f.vel[i] = mgl32.Vec3{
			(f.rng.Float32()*2 - 1),
			(f.rng.Float32()*2 - 1),
			(f.rng.Float32()*2 - 1),
		}
	}

	f.center = params.SpawnMin.Add(span.Mul(0.5))
	return f
}

func (f *Flock) Count() int { return f.params.Count }

func (f *Flock) Params() FlockParams { return f.params }

// Center is the global attractor; it may be moved at any time without
// re-initializing the pool.
func (f *Flock) Center() mgl32.Vec3 { return f.center }

func (f *Flock) SetCenter(c mgl32.Vec3) { f.center = c }

// TuneSteering adjusts the steering weights live. The pool itself (count,
// spawn state) is fixed; only force composition changes.
func (f *Flock) TuneSteering(alignment, cohesion, separation, centerPull float32) {
	f.params.AlignmentWeight = alignment
	f.params.CohesionWeight = cohesion
	f.params.SeparationWeight = separation
	f.params.CenterPull = centerPull
}

func (f *Flock) boundsCheck(i int, op string) {
	if i < 0 || i >= f.params.Count {
		panic(fmt.Sprintf("flock: %s: index %d out of range [0,%d)", op, i, f.params.Count))
	}
}

func (f *Flock) PositionAt(i int) mgl32.Vec3 {
	f.boundsCheck(i, "PositionAt")
	return f.pos[i]
}

func (f *Flock) VelocityAt(i int) mgl32.Vec3 {
	f.boundsCheck(i, "VelocityAt")
	return f.vel[i]
}

// OrientationAt derives the agent's heading as the shortest-arc rotation
// from the forward axis onto its velocity; identity when nearly stopped.
func (f *Flock) OrientationAt(i int) mgl32.Quat {
	f.boundsCheck(i, "OrientationAt")
	return core.HeadingQuat(flockForward, f.vel[i])
}

// Tick advances the simulation one step. Phase 1 computes every agent's
// acceleration from the pre-tick state; phase 2 integrates. The phases must
// not be fused: phase 1 reading a half-updated pool would make the result
// depend on agent visit order.
func (f *Flock) Tick(dt float32) {
	for i := range f.pos {
		f.acc[i] = f.steerAcceleration(i).Add(f.jitter())
	}

	for i := range f.pos {
		f.vel[i] = clampLen(f.vel[i].Add(f.acc[i].Mul(dt)), f.params.MaxSpeed)
		f.pos[i] = f.pos[i].Add(f.vel[i].Mul(dt))

		if f.params.FloorEnabled && f.pos[i].Y() < f.params.FloorHeight {
			f.pos[i][1] = f.params.FloorHeight
			if f.vel[i].Y() < 0 {
				f.vel[i][1] = -f.vel[i].Y() * f.params.Restitution
			}
		}
	}
}

// flockForces holds the composed steering terms for one agent, separated so
// tests can check individual components.
type flockForces struct {
	alignment  mgl32.Vec3
	cohesion   mgl32.Vec3
	separation mgl32.Vec3
	center     mgl32.Vec3
	height     mgl32.Vec3
}

func (ff flockForces) sum() mgl32.Vec3 {
	return ff.alignment.Add(ff.cohesion).Add(ff.separation).Add(ff.center).Add(ff.height)
}

// steerAcceleration is the deterministic part of an agent's acceleration;
// jitter draws from the sequential RNG and is added by Tick.
func (f *Flock) steerAcceleration(i int) mgl32.Vec3 {
	return f.forcesAt(i).sum()
}

// forcesAt runs the O(N) neighbor scan for agent i against the current pool
// state and composes the steering forces. During a tick this is only called
// in phase 1, so the state it reads is the frozen pre-tick snapshot.
func (f *Flock) forcesAt(i int) flockForces {
	p := &f.params
	pos := f.pos[i]
	vel := f.vel[i]

	var velSum, posSum, repulsion mgl32.Vec3
	perceived := 0
	separated := 0

	for j := range f.pos {
		if j == i {
			continue
		}
		diff := pos.Sub(f.pos[j])
		dist := diff.Len()
		if dist >= p.PerceptionRadius {
			continue
		}

		velSum = velSum.Add(f.vel[j])
		posSum = posSum.Add(f.pos[j])
		perceived++

		if dist < p.SeparationRadius && dist > flockEpsilon {
			repulsion = repulsion.Add(diff.Mul(1 / (dist * dist)))
			separated++
		}
	}

	var forces flockForces

	if perceived > 0 {
		inv := 1 / float32(perceived)
		forces.alignment = f.steerToward(velSum.Mul(inv), vel).Mul(p.AlignmentWeight)
		forces.cohesion = f.steerToward(posSum.Mul(inv).Sub(pos), vel).Mul(p.CohesionWeight)
	}
	if separated > 0 {
		forces.separation = f.steerToward(repulsion.Mul(1/float32(separated)), vel).Mul(p.SeparationWeight)
	}

	forces.center = f.center.Sub(pos).Mul(p.CenterPull)

	if p.HeightWeight > 0 {
		desired := clampf(p.TargetHeight-pos.Y(), -p.MaxSpeed, p.MaxSpeed)
		lift := mgl32.Vec3{0, desired - vel.Y(), 0}
		forces.height = clampLen(lift, p.MaxForce).Mul(p.HeightWeight)
	}

	return forces
}

// steerToward is the shared steering rule: desired velocity along dir at full
// speed, minus the current velocity, clamped to MaxForce. A near-zero dir
// contributes nothing rather than a NaN.
func (f *Flock) steerToward(dir, vel mgl32.Vec3) mgl32.Vec3 {
	if dir.Dot(dir) < flockEpsilon*flockEpsilon {
		return mgl32.Vec3{}
	}
	desired := dir.Normalize().Mul(f.params.MaxSpeed)
	return clampLen(desired.Sub(vel), f.params.MaxForce)
}

func (f *Flock) jitter() mgl32.Vec3 {
	s := f.params.JitterStrength
	if s <= 0 {
		return mgl32.Vec3{}
	}
	return mgl32.Vec3{
		(f.rng.Float32()*2 - 1) * s,
		(f.rng.Float32()*2 - 1) * s,
		(f.rng.Float32()*2 - 1) * s,
	}
}

// steerAccelerations computes the deterministic accelerations visiting agents
// in the given order. The result is independent of that order because each
// agent only reads the shared pool state.
func (f *Flock) steerAccelerations(order []int) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, f.params.Count)
	for _, i := range order {
		out[i] = f.steerAcceleration(i)
	}
	return out
}

func clampLen(v mgl32.Vec3, max float32) mgl32.Vec3 {
	if max <= 0 {
		return v
	}
	lenSq := v.Dot(v)
	if lenSq <= max*max {
		return v
	}
	return v.Mul(max / sqrtf(lenSq))
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
