package murmur

import (
	"fmt"

	"github.com/google/uuid"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/murmur3d/murmur/deferred/core"
)

type AssetId string

// AssetServer holds shared meshes keyed by generated ids. Registration
// happens at install time; lookups during the frame loop never mutate it.
type AssetServer struct {
	meshes map[AssetId]*core.Mesh
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AssetServer{
		meshes: make(map[AssetId]*core.Mesh),
	})
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

func (server *AssetServer) AddMesh(mesh *core.Mesh) AssetId {
	id := makeAssetId()
	server.meshes[id] = mesh
	return id
}

// Mesh resolves an id registered earlier. An unknown id is a wiring mistake,
// not a runtime condition, so it panics with the id in the message.
func (server *AssetServer) Mesh(id AssetId) *core.Mesh {
	mesh, ok := server.meshes[id]
	if !ok {
		panic(fmt.Sprintf("asset server: unknown mesh id %q", id))
	}
	return mesh
}

// BoidPalette returns n colors along a teal-to-violet HCL ramp. HCL keeps
// perceived brightness even across the ramp, which reads better on a dark
// scene than an HSV sweep.
func BoidPalette(n int) [][4]float32 {
	if n <= 0 {
		return nil
	}
	out := make([][4]float32, n)
	for i := range out {
		t := float64(i) / float64(maxInt(n-1, 1))
		c := colorful.Hcl(210+110*t, 0.55, 0.40+0.35*t).Clamped()
		out[i] = [4]float32{float32(c.R), float32(c.G), float32(c.B), 1}
	}
	return out
}

// PlantPalette returns n muted greens with slight hue drift per cluster.
func PlantPalette(n int) [][4]float32 {
	if n <= 0 {
		return nil
	}
	out := make([][4]float32, n)
	for i := range out {
		t := float64(i) / float64(maxInt(n-1, 1))
		c := colorful.Hcl(130+35*t, 0.35, 0.30+0.25*t).Clamped()
		out[i] = [4]float32{float32(c.R), float32(c.G), float32(c.B), 1}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
