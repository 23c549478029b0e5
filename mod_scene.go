package murmur

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// SceneState wraps the renderer-facing scene. Static batches are built once
// at install; the flock and UI systems append their dynamic content.
type SceneState struct {
	Scene *core.Scene
}

// SceneModule builds the static world: a noise-displaced terrain, plant
// clusters grown by a bracketed turtle, and a handful of emissive beacon
// orbs. All content is deterministic for a given seed.
type SceneModule struct {
	TerrainSize     float32
	TerrainSegments int
	PlantClusters   int
	BeaconCount     int
	Seed            int64
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	if m.TerrainSize <= 0 {
		m.TerrainSize = 400
	}
	if m.TerrainSegments <= 0 {
		m.TerrainSegments = 96
	}
	if m.PlantClusters <= 0 {
		m.PlantClusters = 14
	}
	if m.BeaconCount <= 0 {
		m.BeaconCount = 6
	}
	if m.Seed == 0 {
		m.Seed = 7
	}

	assets := resourceOf[AssetServer](app)
	if assets == nil {
		panic("scene module: AssetServerModule must be installed first")
	}

	scene := core.NewScene()
	m.buildTerrain(assets, scene)
	m.buildPlants(assets, scene)
	m.buildBeacons(assets, scene)

	cmd.AddResources(&SceneState{Scene: scene})
}

func (m SceneModule) buildTerrain(assets *AssetServer, scene *core.Scene) {
	mesh := CreatePlaneMesh(m.TerrainSize, m.TerrainSegments)
	for i := range mesh.Vertices {
		p := &mesh.Vertices[i].Position
		p[1] = terrainHeight(p[0], p[2])
	}
	mesh.RecalculateNormals()
	assets.AddMesh(mesh)

	scene.AddBatch(core.BuildInstanced(mesh, []core.SceneObject{{
		Name:      "terrain",
		Transform: core.NewTransform(),
		Attributes: map[string]any{
			core.AttrColor:    [4]float32{0.16, 0.20, 0.17, 1},
			core.AttrMaterial: [4]float32{0, 0, 0.95, 0},
		},
	}}))
}

func (m SceneModule) buildPlants(assets *AssetServer, scene *core.Scene) {
	branch := CreateBranchMesh(1, 0.05, 6)
	assets.AddMesh(branch)

	rng := rand.New(rand.NewSource(m.Seed))
	palette := PlantPalette(m.PlantClusters)

	var objects []core.SceneObject
	spread := m.TerrainSize * 0.35
	for c := 0; c < m.PlantClusters; c++ {
		x := (rng.Float32()*2 - 1) * spread
		z := (rng.Float32()*2 - 1) * spread
		origin := mgl32.Vec3{x, terrainHeight(x, z), z}
		objects = append(objects, growPlant(origin, rng, palette[c])...)
	}

	if len(objects) > 0 {
		scene.AddBatch(core.BuildInstanced(branch, objects))
	}
}

func (m SceneModule) buildBeacons(assets *AssetServer, scene *core.Scene) {
	orb := CreateOrbMesh(1, 2)
	assets.AddMesh(orb)

	rng := rand.New(rand.NewSource(m.Seed + 1))
	palette := BoidPalette(m.BeaconCount)

	objects := make([]core.SceneObject, 0, m.BeaconCount)
	spread := m.TerrainSize * 0.2
	for i := 0; i < m.BeaconCount; i++ {
		pos := mgl32.Vec3{
			(rng.Float32()*2 - 1) * spread,
			14 + rng.Float32()*18,
			(rng.Float32()*2 - 1) * spread,
		}
		t := core.NewTransform()
		t.Position = pos
		t.Scale = mgl32.Vec3{1.6, 1.6, 1.6}
		objects = append(objects, core.SceneObject{
			Name:      fmt.Sprintf("beacon-%d", i),
			Transform: t,
			Attributes: map[string]any{
				core.AttrColor:    palette[i],
				core.AttrMaterial: [4]float32{2.5, 0, 0.3, 0},
			},
		})
	}
	scene.AddBatch(core.BuildInstanced(orb, objects))
}

// ---------------------------------------------------------------------------
// Terrain noise

// terrainHeight is three octaves of value noise. Same function displaces the
// terrain mesh and places plants, so clusters sit on the ground.
func terrainHeight(x, z float32) float32 {
	var h float32
	amp := float32(4.0)
	freq := float32(1.0 / 60.0)
	for o := 0; o < 3; o++ {
		h += valueNoise2(x*freq, z*freq) * amp
		amp *= 0.45
		freq *= 2.1
	}
	return h
}

func valueNoise2(x, z float32) float32 {
	ix := int32(math.Floor(float64(x)))
	iz := int32(math.Floor(float64(z)))
	fx := x - float32(ix)
	fz := z - float32(iz)

	// Smoothstep fade.
	fx = fx * fx * (3 - 2*fx)
	fz = fz * fz * (3 - 2*fz)

	h00 := latticeHash(ix, iz)
	h10 := latticeHash(ix+1, iz)
	h01 := latticeHash(ix, iz+1)
	h11 := latticeHash(ix+1, iz+1)

	top := h00 + (h10-h00)*fx
	bot := h01 + (h11-h01)*fx
	return (top + (bot-top)*fz) * 2 - 1
}

func latticeHash(ix, iz int32) float32 {
	h := uint32(ix)*374761393 + uint32(iz)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float32(h&0xFFFF) / 65535
}

// ---------------------------------------------------------------------------
// Plant turtle

// plantRules is a small bracketed L-system: three expansions of X produce a
// forked silhouette of around a dozen segments per plant.
var plantRules = map[byte]string{
	'X': "F[+X][-X]F",
}

const plantIterations = 3

// growPlant expands the L-system and walks it with a 3D turtle, emitting one
// branch instance per F. The rng only perturbs branch angles; the expansion
// itself is fixed.
func growPlant(origin mgl32.Vec3, rng *rand.Rand, color [4]float32) []core.SceneObject {
	expanded := "X"
	for i := 0; i < plantIterations; i++ {
		var next []byte
		for j := 0; j < len(expanded); j++ {
			if rule, ok := plantRules[expanded[j]]; ok {
				next = append(next, rule...)
			} else {
				next = append(next, expanded[j])
			}
		}
		expanded = string(next)
	}

	type turtleState struct {
		pos     mgl32.Vec3
		heading mgl32.Quat
		length  float32
		width   float32
	}

	state := turtleState{
		pos:     origin,
		heading: mgl32.QuatIdent(),
		length:  2.6 + rng.Float32()*1.2,
		width:   1.0,
	}
	var stack []turtleState
	var objects []core.SceneObject

	branchAngle := func(sign float32) mgl32.Quat {
		angle := sign * (0.38 + rng.Float32()*0.25)
		yaw := rng.Float32() * 2 * math.Pi
		axis := mgl32.Rotate3DY(yaw).Mul3x1(mgl32.Vec3{1, 0, 0})
		return mgl32.QuatRotate(angle, axis)
	}

	for i := 0; i < len(expanded); i++ {
		switch expanded[i] {
		case 'F':
			t := core.Transform{
				Position: state.pos,
				Rotation: state.heading,
				Scale:    mgl32.Vec3{state.width, state.length, state.width},
			}
			objects = append(objects, core.SceneObject{
				Name:      "branch",
				Transform: t,
				Attributes: map[string]any{
					core.AttrColor:    color,
					core.AttrMaterial: [4]float32{0, 0, 0.85, 0},
				},
			})
			state.pos = state.pos.Add(state.heading.Rotate(mgl32.Vec3{0, state.length, 0}))
		case '+':
			state.heading = state.heading.Mul(branchAngle(1))
		case '-':
			state.heading = state.heading.Mul(branchAngle(-1))
		case '[':
			stack = append(stack, state)
			state.length *= 0.72
			state.width *= 0.70
		case ']':
			if len(stack) > 0 {
				state = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		}
	}

	return objects
}
