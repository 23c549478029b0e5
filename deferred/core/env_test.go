package core

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBrdfLUT_Deterministic(t *testing.T) {
	a := ComputeBrdfLUT(16)
	b := ComputeBrdfLUT(16)

	require.Len(t, a, 16*16*4)
	assert.True(t, bytes.Equal(a, b), "two integrations of the same size must be byte-identical")
}

func TestComputeBrdfLUT_ValueRanges(t *testing.T) {
	lut := ComputeBrdfLUT(8)

	for i := 0; i < len(lut); i += 4 {
		assert.EqualValues(t, 255, lut[i+3])
	}

	// High N·V at low roughness: scale near 1, bias near 0.
	idx := (0*8 + 7) * 4
	assert.Greater(t, lut[idx], byte(200))
	assert.Less(t, lut[idx+1], byte(64))
}

func TestBrdfLUTKey(t *testing.T) {
	assert.Equal(t, "brdfLUT_v1_512", BrdfLUTKey(512))
}

func TestBrdfCache_RoundTrip(t *testing.T) {
	cache := BrdfCache{Dir: t.TempDir()}
	data := ComputeBrdfLUT(8)

	require.NoError(t, cache.Store(8, data))

	loaded, ok := cache.Load(8)
	require.True(t, ok)
	assert.Equal(t, data, loaded)
}

func TestBrdfCache_CorruptPayloadFallsBack(t *testing.T) {
	dir := t.TempDir()
	cache := BrdfCache{Dir: dir}

	// Not valid base64 at all.
	require.NoError(t, os.WriteFile(filepath.Join(dir, BrdfLUTKey(8)), []byte("!!not-base64!!"), 0o644))
	_, ok := cache.Load(8)
	assert.False(t, ok)

	// Valid base64, wrong decoded length.
	short := base64.StdEncoding.EncodeToString(make([]byte, 8*8*4-4))
	require.NoError(t, os.WriteFile(filepath.Join(dir, BrdfLUTKey(8)), []byte(short), 0o644))
	_, ok = cache.Load(8)
	assert.False(t, ok)

	// LUT() recovers by recomputing and rewriting the entry.
	data, computed, storeErr := cache.LUT(8)
	require.NoError(t, storeErr)
	assert.True(t, computed)
	assert.Equal(t, ComputeBrdfLUT(8), data)

	loaded, ok := cache.Load(8)
	require.True(t, ok)
	assert.Equal(t, data, loaded)
}

func TestBrdfCache_LUTUsesCacheOnSecondCall(t *testing.T) {
	cache := BrdfCache{Dir: t.TempDir()}

	first, computed, storeErr := cache.LUT(8)
	require.NoError(t, storeErr)
	require.True(t, computed)

	second, computed, storeErr := cache.LUT(8)
	require.NoError(t, storeErr)
	assert.False(t, computed)
	assert.Equal(t, first, second)
}

func TestSkySample_FiniteAndNonNegative(t *testing.T) {
	sky := DefaultSky()
	dirs := []mgl32.Vec3{
		{0, 1, 0},
		{0, -1, 0},
		{1, 0, 0},
		sky.SunDirection,
		{0, 0, 0},
	}
	for _, d := range dirs {
		c := sky.Sample(d)
		for i := 0; i < 3; i++ {
			assert.False(t, c[i] < 0, "sky radiance must not be negative for %v", d)
			assert.False(t, c[i] != c[i], "sky radiance must be finite for %v", d)
		}
	}
}

func TestComputeIrradianceMap_Shape(t *testing.T) {
	cm := ComputeIrradianceMap(DefaultSky(), 4)

	require.Equal(t, 4, cm.Size)
	for face := 0; face < 6; face++ {
		require.Len(t, cm.Faces[face], 4*4*4)
		for i := 0; i < len(cm.Faces[face]); i += 4 {
			assert.False(t, cm.Faces[face][i] != cm.Faces[face][i], "irradiance must be finite")
			assert.EqualValues(t, 1, cm.Faces[face][i+3])
		}
	}

	// The upward face sees mostly sky, the downward face mostly ground.
	upSum := cm.Faces[2][0] + cm.Faces[2][1] + cm.Faces[2][2]
	downSum := cm.Faces[3][0] + cm.Faces[3][1] + cm.Faces[3][2]
	assert.Greater(t, upSum, downSum)
}

func TestComputePrefilteredEnv_MipChain(t *testing.T) {
	chain := ComputePrefilteredEnv(DefaultSky(), 16, 3)

	require.Len(t, chain, 3)
	assert.Equal(t, 16, chain[0].Size)
	assert.Equal(t, 8, chain[1].Size)
	assert.Equal(t, 4, chain[2].Size)

	for _, cm := range chain {
		for face := 0; face < 6; face++ {
			require.Len(t, cm.Faces[face], cm.Size*cm.Size*4)
		}
	}
}
