package murmur

import (
	"testing"

	"github.com/murmur3d/murmur/deferred/core"
)

func TestAssetServerRoundTrip(t *testing.T) {
	server := &AssetServer{meshes: make(map[AssetId]*core.Mesh)}

	a := CreateOrbMesh(1, 0)
	b := CreateShardMesh(1, 0.5)
	idA := server.AddMesh(a)
	idB := server.AddMesh(b)

	if idA == idB {
		t.Fatalf("ids must be unique, both %q", idA)
	}
	if server.Mesh(idA) != a || server.Mesh(idB) != b {
		t.Errorf("lookup returned the wrong mesh")
	}
}

func TestAssetServerUnknownIdPanics(t *testing.T) {
	server := &AssetServer{meshes: make(map[AssetId]*core.Mesh)}
	expectPanic(t, "unknown id", func() { server.Mesh("nope") })
}

func TestBoidPalette(t *testing.T) {
	palette := BoidPalette(16)
	if len(palette) != 16 {
		t.Fatalf("palette length %d", len(palette))
	}
	for i, c := range palette {
		for ch := 0; ch < 3; ch++ {
			if c[ch] < 0 || c[ch] > 1 {
				t.Fatalf("color %d channel %d out of range: %g", i, ch, c[ch])
			}
		}
		if c[3] != 1 {
			t.Fatalf("color %d alpha %g, want 1", i, c[3])
		}
	}
	if palette[0] == palette[15] {
		t.Errorf("ramp endpoints should differ")
	}

	if got := BoidPalette(0); got != nil {
		t.Errorf("empty palette should be nil, got %v", got)
	}
	if got := BoidPalette(1); len(got) != 1 {
		t.Errorf("single-entry palette length %d", len(got))
	}
}

func TestPlantPalette(t *testing.T) {
	palette := PlantPalette(8)
	if len(palette) != 8 {
		t.Fatalf("palette length %d", len(palette))
	}
	for i, c := range palette {
		// Muted greens: green channel leads.
		if c[1] <= c[2] {
			t.Errorf("color %d: green %g should exceed blue %g", i, c[1], c[2])
		}
	}
}
