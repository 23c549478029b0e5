package murmur

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetRoundTrip(t *testing.T) {
	saved := DefaultPreset()
	saved.Name = "custom"
	saved.Flock.Count = 77
	saved.Flock.MaxSpeed = 11.5
	saved.Sky.SunIntensity = 2.25
	saved.Sky.ZenithColor = mgl32.Vec3{0.1, 0.2, 0.3}
	saved.Scene.Seed = 1234
	saved.LightStride = 5

	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, SavePreset(path, saved))

	loaded, err := LoadPreset(path)
	require.NoError(t, err)
	assert.Equal(t, *saved, *loaded)
}

func TestBuiltinPresets(t *testing.T) {
	names := BuiltinPresets()
	require.NotEmpty(t, names)

	for _, name := range names {
		p, err := ResolvePreset(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
		assert.Greater(t, p.Flock.Count, 0, name)
		assert.Greater(t, p.LightStride, 0, name)
		assert.InDelta(t, 1.0, p.Sky.SunDirection.Len(), 1e-4, name)
	}

	dusk, err := ResolvePreset("dusk")
	require.NoError(t, err)
	noon, err := ResolvePreset("noon")
	require.NoError(t, err)
	assert.NotEqual(t, dusk.Sky, noon.Sky)

	// Empty name falls back to the default look.
	def, err := ResolvePreset("")
	require.NoError(t, err)
	assert.Equal(t, dusk.Flock, def.Flock)
}

func TestResolvePresetFromDisk(t *testing.T) {
	saved := DefaultPreset()
	saved.Name = "from-disk"
	saved.Flock.Seed = 99

	path := filepath.Join(t.TempDir(), "look.json")
	require.NoError(t, SavePreset(path, saved))

	loaded, err := ResolvePreset(path)
	require.NoError(t, err)
	assert.Equal(t, "from-disk", loaded.Name)
	assert.EqualValues(t, 99, loaded.Flock.Seed)

	_, err = ResolvePreset(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadPresetRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"flock\": ["), 0o644))

	_, err := LoadPreset(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}
