package murmur

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// FlockState owns the simulation and its two render-side outputs: the boid
// instance batch and a slice of the scene's light list that trails every
// LightStride-th agent.
type FlockState struct {
	Sim *Flock

	Batch *core.InstancedMesh

	lightBase   int
	lightCount  int
	lightStride int
}

// FlockModule creates the agent pool, its instanced shard bodies, and the
// trailing point lights, then ticks and publishes every frame.
type FlockModule struct {
	// Params overrides the defaults when non-nil.
	Params *FlockParams

	// LightStride attaches a point light to every k-th agent.
	LightStride int
}

func (m FlockModule) Install(app *App, cmd *Commands) {
	params := DefaultFlockParams()
	if m.Params != nil {
		params = *m.Params
	}
	if m.LightStride <= 0 {
		m.LightStride = 8
	}

	assets := resourceOf[AssetServer](app)
	sceneState := resourceOf[SceneState](app)
	if assets == nil || sceneState == nil {
		panic("flock module: AssetServerModule and SceneModule must be installed first")
	}

	sim := NewFlock(params)
	scene := sceneState.Scene
	palette := BoidPalette(params.Count)

	shardId := assets.AddMesh(CreateShardMesh(1.6, 0.9))
	shard := assets.Mesh(shardId)

	objects := make([]core.SceneObject, params.Count)
	for i := range objects {
		t := core.NewTransform()
		t.Position = sim.PositionAt(i)
		objects[i] = core.SceneObject{
			Name:      "boid",
			Transform: t,
			Attributes: map[string]any{
				core.AttrColor:    palette[i],
				core.AttrMaterial: [4]float32{0.35, 0.1, 0.55, 0},
			},
		}
	}
	batch := core.BuildInstanced(shard, objects)
	scene.AddBatch(batch)

	state := &FlockState{
		Sim:         sim,
		Batch:       batch,
		lightBase:   len(scene.Lights),
		lightStride: m.LightStride,
	}
	for i := 0; i < params.Count; i += m.LightStride {
		scene.Lights = append(scene.Lights, core.PointLight{
			Position:  sim.PositionAt(i),
			Color:     mgl32.Vec3{palette[i][0], palette[i][1], palette[i][2]},
			Intensity: 2.2,
			Radius:    18,
		})
		state.lightCount++
	}

	cmd.AddResources(state)
	cmd.UseSystem(
		System(flockTickSystem).
			InStage(Update),
	)
	cmd.UseSystem(
		System(flockPublishSystem).
			InStage(PreRender),
	)

	if timeline := resourceOf[TimelineState](app); timeline != nil {
		timeline.OnValuesChange(func(t *TimelineState) {
			p := sim.Params()
			sim.SetCenter(t.Vec3("flock.center", sim.Center()))
			sim.TuneSteering(
				t.Scalar("flock.alignment", p.AlignmentWeight),
				t.Scalar("flock.cohesion", p.CohesionWeight),
				t.Scalar("flock.separation", p.SeparationWeight),
				t.Scalar("flock.centerPull", p.CenterPull),
			)
		})
	}
}

func flockTickSystem(t *Time, flock *FlockState) {
	flock.Sim.Tick(t.DtSeconds())
}

// flockPublishSystem runs in PreRender so camera and any other PostUpdate
// consumers observe final positions before the batch is rewritten.
func flockPublishSystem(flock *FlockState, sceneState *SceneState) {
	flock.publish(sceneState.Scene)
}

// publish writes this tick's transforms into the instance batch (rotating
// last frame's matrices into the motion-vector slots) and moves the trailing
// lights. Lights take position only; they do not rotate.
func (fs *FlockState) publish(scene *core.Scene) {
	sim := fs.Sim
	for i := 0; i < sim.Count(); i++ {
		tr := core.Transform{
			Position: sim.PositionAt(i),
			Rotation: sim.OrientationAt(i),
			Scale:    mgl32.Vec3{1, 1, 1},
		}
		fs.Batch.SetTransform(i, tr.Mat4())
	}

	for li := 0; li < fs.lightCount; li++ {
		scene.Lights[fs.lightBase+li].Position = sim.PositionAt(li * fs.lightStride)
	}
}
