package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the per-frame feed into the renderer: instanced batches, the
// dynamic light list, and overlay text. Producers (simulation, scene
// generation) own the batches and the light slice; the renderer only reads
// and uploads.
type Scene struct {
	Batches []*InstancedMesh
	Lights  []PointLight
	Sky     SkyParams
	Text    []TextItem
}

func NewScene() *Scene {
	return &Scene{
		Sky: DefaultSky(),
	}
}

func (s *Scene) AddBatch(im *InstancedMesh) {
	s.Batches = append(s.Batches, im)
}

func (s *Scene) ClearText() {
	s.Text = s.Text[:0]
}

func (s *Scene) DrawText(text string, x, y float32, scale float32, color [4]float32) {
	s.Text = append(s.Text, TextItem{
		Text:     text,
		Position: [2]float32{x, y},
		Scale:    scale,
		Color:    color,
	})
}

// FrameParams carries everything that changes per frame into the passes.
// Tunables that change rarely (pass parameters) live on the passes
// themselves; there is no shared mutable render state.
type FrameParams struct {
	Time float32
	Dt   float32

	Loudness float32
	Bands    [6]float32

	View         mgl32.Mat4
	Proj         mgl32.Mat4
	PrevViewProj mgl32.Mat4
	CamPos       mgl32.Vec3
}
