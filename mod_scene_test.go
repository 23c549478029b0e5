package murmur

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murmur3d/murmur/deferred/core"
)

func buildTestScene(t *testing.T, mod SceneModule) *core.Scene {
	t.Helper()
	app := NewApp()
	app.UseModules(AssetServerModule{}, mod)
	app.build()

	state := resourceOf[SceneState](app)
	require.NotNil(t, state)
	return state.Scene
}

func TestSceneModuleBuildsStaticBatches(t *testing.T) {
	scene := buildTestScene(t, SceneModule{
		TerrainSize:     100,
		TerrainSegments: 16,
		PlantClusters:   4,
		BeaconCount:     3,
		Seed:            9,
	})

	// Terrain, plants, beacons.
	require.Len(t, scene.Batches, 3)

	terrain := scene.Batches[0]
	assert.Equal(t, 1, terrain.Count())
	assert.Equal(t, 17*17, len(terrain.Mesh.Vertices))

	plants := scene.Batches[1]
	assert.Greater(t, plants.Count(), 4, "each cluster grows several branches")
	assert.Equal(t, "branch", plants.Mesh.Name)

	beacons := scene.Batches[2]
	assert.Equal(t, 3, beacons.Count())
	emissive := beacons.AttributeAt(0, core.AttrMaterial)
	assert.Greater(t, emissive[0], float32(1), "beacons glow")
}

func TestSceneModuleRequiresAssetServer(t *testing.T) {
	app := NewApp()
	app.UseModules(SceneModule{})
	require.PanicsWithValue(t, "scene module: AssetServerModule must be installed first", func() {
		app.build()
	})
}

func TestSceneModuleDeterministicForSeed(t *testing.T) {
	mod := SceneModule{TerrainSize: 120, TerrainSegments: 12, PlantClusters: 3, BeaconCount: 2, Seed: 21}
	a := buildTestScene(t, mod)
	b := buildTestScene(t, mod)

	require.Len(t, b.Batches, len(a.Batches))
	for bi := range a.Batches {
		assert.Equal(t, a.Batches[bi].Data(), b.Batches[bi].Data(), "batch %d differs between identical seeds", bi)
	}
}

func TestSceneTerrainFollowsHeightField(t *testing.T) {
	scene := buildTestScene(t, SceneModule{TerrainSize: 80, TerrainSegments: 8})

	for i, v := range scene.Batches[0].Mesh.Vertices {
		want := terrainHeight(v.Position[0], v.Position[2])
		assert.Equal(t, want, v.Position[1], "vertex %d", i)
	}
}

func TestScenePlantsSitOnTerrain(t *testing.T) {
	scene := buildTestScene(t, SceneModule{TerrainSize: 200, TerrainSegments: 16, PlantClusters: 5})
	plants := scene.Batches[1]

	// The first branch of the first cluster is emitted at the cluster
	// origin before the turtle moves.
	m := plants.TransformAt(0)
	pos := m.Col(3).Vec3()
	assert.Equal(t, terrainHeight(pos.X(), pos.Z()), pos.Y())
}

func TestTerrainHeightStability(t *testing.T) {
	// Same input, same output; the function backs both mesh displacement
	// and plant placement.
	assert.Equal(t, terrainHeight(12.5, -40.25), terrainHeight(12.5, -40.25))

	// Bounded by the octave amplitudes.
	limit := float32(4 + 4*0.45 + 4*0.45*0.45)
	for _, xz := range [][2]float32{{0, 0}, {100, -37}, {-250, 613}, {5.5, 5.5}} {
		h := terrainHeight(xz[0], xz[1])
		assert.LessOrEqual(t, h, limit)
		assert.GreaterOrEqual(t, h, -limit)
	}
}
