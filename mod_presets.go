package murmur

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// PresetData bundles the tunables that define a look: flock behaviour, the
// sky feeding the environment maps, scene dressing and light density.
// Timeline files layer live tweaks on top of whatever preset the app booted
// with.
type PresetData struct {
	Name        string         `json:"name,omitempty"`
	Flock       FlockParams    `json:"flock"`
	Sky         core.SkyParams `json:"sky"`
	Scene       SceneModule    `json:"scene"`
	LightStride int            `json:"light_stride"`
}

// DefaultPreset is the dusk look the demo boots with.
func DefaultPreset() *PresetData {
	return &PresetData{
		Name:  "dusk",
		Flock: DefaultFlockParams(),
		Sky:   core.DefaultSky(),
		Scene: SceneModule{
			TerrainSize:     400,
			TerrainSegments: 96,
			PlantClusters:   14,
			BeaconCount:     6,
			Seed:            7,
		},
		LightStride: 8,
	}
}

// BuiltinPresets lists the looks compiled into the binary.
func BuiltinPresets() []string {
	return []string{"dusk", "noon", "abyss"}
}

// ResolvePreset returns the builtin with the given name, or loads the file
// at that path when no builtin matches. An empty name means the default.
func ResolvePreset(name string) (*PresetData, error) {
	if p := builtinPreset(name); p != nil {
		return p, nil
	}
	return LoadPreset(name)
}

func builtinPreset(name string) *PresetData {
	switch name {
	case "", "dusk":
		return DefaultPreset()

	case "noon":
		p := DefaultPreset()
		p.Name = "noon"
		p.Sky = core.SkyParams{
			ZenithColor:  mgl32.Vec3{0.18, 0.32, 0.70},
			HorizonColor: mgl32.Vec3{0.72, 0.80, 0.92},
			GroundColor:  mgl32.Vec3{0.10, 0.09, 0.08},
			SunDirection: mgl32.Vec3{0.15, 0.92, 0.20}.Normalize(),
			SunColor:     mgl32.Vec3{1.0, 0.98, 0.92},
			SunIntensity: 6.0,
		}
		p.Flock.PerceptionRadius = 15
		p.Flock.CohesionWeight = 1.3
		p.Scene.PlantClusters = 20
		return p

	case "abyss":
		p := DefaultPreset()
		p.Name = "abyss"
		p.Sky = core.SkyParams{
			ZenithColor:  mgl32.Vec3{0.004, 0.006, 0.012},
			HorizonColor: mgl32.Vec3{0.02, 0.05, 0.09},
			GroundColor:  mgl32.Vec3{0.001, 0.001, 0.002},
			SunDirection: mgl32.Vec3{-0.3, 0.5, 0.4}.Normalize(),
			SunColor:     mgl32.Vec3{0.55, 0.70, 1.0},
			SunIntensity: 1.2,
		}
		p.Flock.MaxSpeed = 9
		p.Flock.JitterStrength = 0.15
		p.Scene.BeaconCount = 10
		p.LightStride = 4
		return p
	}
	return nil
}

// LoadPreset reads a preset saved with SavePreset.
func LoadPreset(filename string) (*PresetData, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var preset PresetData
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return nil, fmt.Errorf("preset %s: %w", filename, err)
	}
	return &preset, nil
}

// SavePreset writes the preset as indented JSON so it can be hand-edited
// and fed back with --preset.
func SavePreset(filename string, preset *PresetData) error {
	bytes, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0644)
}
