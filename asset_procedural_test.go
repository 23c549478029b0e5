package murmur

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

func checkIndicesInRange(t *testing.T, mesh *core.Mesh) {
	t.Helper()
	if len(mesh.Indices)%3 != 0 {
		t.Fatalf("%s: index count %d is not a multiple of 3", mesh.Name, len(mesh.Indices))
	}
	for i, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Vertices) {
			t.Fatalf("%s: index %d at %d out of range (%d vertices)", mesh.Name, idx, i, len(mesh.Vertices))
		}
	}
}

func checkUnitNormals(t *testing.T, mesh *core.Mesh) {
	t.Helper()
	for i, v := range mesh.Vertices {
		l := mgl32.Vec3(v.Normal).Len()
		if l < 0.99 || l > 1.01 {
			t.Fatalf("%s: vertex %d normal length %g", mesh.Name, i, l)
		}
	}
}

func TestCreatePlaneMesh(t *testing.T) {
	mesh := CreatePlaneMesh(10, 4)

	if got, want := len(mesh.Vertices), 5*5; got != want {
		t.Errorf("vertex count %d, want %d", got, want)
	}
	if got, want := len(mesh.Indices), 4*4*6; got != want {
		t.Errorf("index count %d, want %d", got, want)
	}
	checkIndicesInRange(t, mesh)

	for i, v := range mesh.Vertices {
		if v.Normal != [3]float32{0, 1, 0} {
			t.Fatalf("vertex %d: flat plane normal %v, want +Y", i, v.Normal)
		}
		if v.Position[0] < -5 || v.Position[0] > 5 || v.Position[2] < -5 || v.Position[2] > 5 {
			t.Fatalf("vertex %d: position %v outside the grid span", i, v.Position)
		}
	}

	// Winding must face +Y or the terrain is backface-culled.
	mesh.RecalculateNormals()
	for i, v := range mesh.Vertices {
		if v.Normal[1] <= 0 {
			t.Fatalf("vertex %d: recalculated normal %v points down", i, v.Normal)
		}
	}
}

func TestCreateOrbMesh(t *testing.T) {
	const radius = float32(2)
	mesh := CreateOrbMesh(radius, 2)

	if got, want := len(mesh.Indices), 8*4*4*3; got != want {
		t.Errorf("index count %d, want %d (two subdivisions of an octahedron)", got, want)
	}
	checkIndicesInRange(t, mesh)
	checkUnitNormals(t, mesh)

	for i, v := range mesh.Vertices {
		p := mgl32.Vec3(v.Position)
		if l := p.Len(); l < radius*0.999 || l > radius*1.001 {
			t.Fatalf("vertex %d: distance %g from center, want %g", i, l, radius)
		}
		// Sphere normals are radial.
		if d := p.Normalize().Dot(mgl32.Vec3(v.Normal)); d < 0.999 {
			t.Fatalf("vertex %d: normal not radial, dot=%g", i, d)
		}
	}
}

func TestCreateShardMesh(t *testing.T) {
	const length, width = float32(1.6), float32(0.9)
	mesh := CreateShardMesh(length, width)

	checkIndicesInRange(t, mesh)
	checkUnitNormals(t, mesh)

	var maxZ, minZ float32
	for _, v := range mesh.Vertices {
		if v.Position[2] > maxZ {
			maxZ = v.Position[2]
		}
		if v.Position[2] < minZ {
			minZ = v.Position[2]
		}
	}
	// The nose leads along +Z, the axis headings rotate from.
	if maxZ != length*0.6 {
		t.Errorf("nose at z=%g, want %g", maxZ, length*0.6)
	}
	if minZ != -length*0.4 {
		t.Errorf("tail at z=%g, want %g", minZ, -length*0.4)
	}
}

func TestCreateBranchMesh(t *testing.T) {
	const length, radius = float32(1), float32(0.05)
	mesh := CreateBranchMesh(length, radius, 6)

	checkIndicesInRange(t, mesh)
	checkUnitNormals(t, mesh)

	for i, v := range mesh.Vertices {
		if v.Position[1] < 0 || v.Position[1] > length {
			t.Fatalf("vertex %d: y=%g outside [0,%g]", i, v.Position[1], length)
		}
	}

	// Cap center is the last vertex and must face up.
	capCenter := mesh.Vertices[len(mesh.Vertices)-1]
	if capCenter.Position != [3]float32{0, length, 0} {
		t.Fatalf("cap center at %v", capCenter.Position)
	}
	if capCenter.Normal[1] < 0.99 {
		t.Errorf("cap center normal %v, want +Y", capCenter.Normal)
	}
}

func TestCreateBranchMeshClampsSides(t *testing.T) {
	mesh := CreateBranchMesh(1, 0.1, 1)
	checkIndicesInRange(t, mesh)
	// sides clamps to 3: two rings and a cap ring of 4 vertices each plus
	// the cap center.
	if got, want := len(mesh.Vertices), 3*4+1; got != want {
		t.Errorf("vertex count %d, want %d", got, want)
	}
}
