package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is the interleaved layout shared by every mesh pipeline.
// Field order matters: the vertex buffer layouts index into it by offset.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// RecalculateNormals rebuilds per-vertex normals as the area-weighted average
// of adjacent face normals. Used by generators that displace positions after
// building topology (terrain).
func (m *Mesh) RecalculateNormals() {
	for i := range m.Vertices {
		m.Vertices[i].Normal = [3]float32{}
	}

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		p0 := mgl32.Vec3(m.Vertices[i0].Position)
		p1 := mgl32.Vec3(m.Vertices[i1].Position)
		p2 := mgl32.Vec3(m.Vertices[i2].Position)

		// Cross product magnitude carries the area weighting.
		n := p1.Sub(p0).Cross(p2.Sub(p0))

		for _, vi := range []uint32{i0, i1, i2} {
			acc := mgl32.Vec3(m.Vertices[vi].Normal).Add(n)
			m.Vertices[vi].Normal = [3]float32(acc)
		}
	}

	for i := range m.Vertices {
		n := mgl32.Vec3(m.Vertices[i].Normal)
		if n.Len() > 1e-8 {
			m.Vertices[i].Normal = [3]float32(n.Normalize())
		} else {
			m.Vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}
