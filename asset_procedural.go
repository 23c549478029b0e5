package murmur

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// CreatePlaneMesh builds a segments x segments grid spanning size x size,
// centered at the origin, facing +Y. Terrain displaces its vertices and then
// rebuilds the normals.
func CreatePlaneMesh(size float32, segments int) *core.Mesh {
	if segments < 1 {
		segments = 1
	}

	verts := make([]core.Vertex, 0, (segments+1)*(segments+1))
	half := size / 2
	step := size / float32(segments)
	for z := 0; z <= segments; z++ {
		for x := 0; x <= segments; x++ {
			verts = append(verts, core.Vertex{
				Position: [3]float32{-half + float32(x)*step, 0, -half + float32(z)*step},
				Normal:   [3]float32{0, 1, 0},
				UV:       [2]float32{float32(x) / float32(segments), float32(z) / float32(segments)},
			})
		}
	}

	indices := make([]uint32, 0, segments*segments*6)
	w := uint32(segments + 1)
	for z := uint32(0); z < uint32(segments); z++ {
		for x := uint32(0); x < uint32(segments); x++ {
			i0 := z*w + x
			i1 := i0 + 1
			i2 := i0 + w
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}

	return &core.Mesh{Name: "plane", Vertices: verts, Indices: indices}
}

// CreateOrbMesh builds a sphere by subdividing an octahedron and projecting
// onto the radius. Subdivision 0 is the bare octahedron (8 faces); each level
// quadruples the face count.
func CreateOrbMesh(radius float32, subdivisions int) *core.Mesh {
	positions := []mgl32.Vec3{
		{0, 1, 0},
		{1, 0, 0},
		{0, 0, 1},
		{-1, 0, 0},
		{0, 0, -1},
		{0, -1, 0},
	}
	faces := [][3]uint32{
		{0, 2, 1}, {0, 3, 2}, {0, 4, 3}, {0, 1, 4},
		{5, 1, 2}, {5, 2, 3}, {5, 3, 4}, {5, 4, 1},
	}

	for s := 0; s < subdivisions; s++ {
		cache := make(map[[2]uint32]uint32)
		midpoint := func(a, b uint32) uint32 {
			key := [2]uint32{min(a, b), max(a, b)}
			if idx, ok := cache[key]; ok {
				return idx
			}
			positions = append(positions, positions[a].Add(positions[b]).Normalize())
			idx := uint32(len(positions) - 1)
			cache[key] = idx
			return idx
		}

		next := make([][3]uint32, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]uint32{f[0], ab, ca},
				[3]uint32{ab, f[1], bc},
				[3]uint32{ca, bc, f[2]},
				[3]uint32{ab, bc, ca},
			)
		}
		faces = next
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		u := 0.5 + float32(math.Atan2(float64(p.Z()), float64(p.X())))/(2*math.Pi)
		v := 0.5 - float32(math.Asin(float64(p.Y())))/math.Pi
		verts[i] = core.Vertex{
			Position: [3]float32(p.Mul(radius)),
			Normal:   [3]float32(p),
			UV:       [2]float32{u, v},
		}
	}

	indices := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		indices = append(indices, f[0], f[1], f[2])
	}

	return &core.Mesh{Name: "orb", Vertices: verts, Indices: indices}
}

// CreateShardMesh builds the boid body: an elongated octahedron with its nose
// along +Z, the axis agent orientations rotate from. Vertices are duplicated
// per face so the shading stays faceted.
func CreateShardMesh(length, width float32) *core.Mesh {
	nose := mgl32.Vec3{0, 0, length * 0.6}
	tail := mgl32.Vec3{0, 0, -length * 0.4}
	ring := [4]mgl32.Vec3{
		{width / 2, 0, 0},
		{0, width * 0.35, 0},
		{-width / 2, 0, 0},
		{0, -width * 0.2, 0},
	}

	mesh := &core.Mesh{Name: "shard"}
	addFace := func(a, b, c mgl32.Vec3) {
		base := uint32(len(mesh.Vertices))
		for i, p := range []mgl32.Vec3{a, b, c} {
			uv := [2]float32{0, 0}
			if i == 1 {
				uv = [2]float32{1, 0}
			} else if i == 2 {
				uv = [2]float32{0.5, 1}
			}
			mesh.Vertices = append(mesh.Vertices, core.Vertex{Position: [3]float32(p), UV: uv})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
	}

	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		addFace(nose, ring[i], ring[j])
		addFace(tail, ring[j], ring[i])
	}

	mesh.RecalculateNormals()
	return mesh
}

// CreateBranchMesh builds a tapered cylinder along +Y with a closed top cap,
// the unit stem the plant turtle stretches and bends into place.
func CreateBranchMesh(length, radius float32, sides int) *core.Mesh {
	if sides < 3 {
		sides = 3
	}
	topRadius := radius * 0.55

	mesh := &core.Mesh{Name: "branch"}
	ringAt := func(y, r float32) []uint32 {
		ids := make([]uint32, sides+1)
		for i := 0; i <= sides; i++ {
			theta := float64(i) / float64(sides) * 2 * math.Pi
			x := r * float32(math.Cos(theta))
			z := r * float32(math.Sin(theta))
			ids[i] = uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, core.Vertex{
				Position: [3]float32{x, y, z},
				UV:       [2]float32{float32(i) / float32(sides), y / length},
			})
		}
		return ids
	}

	bottom := ringAt(0, radius)
	top := ringAt(length, topRadius)
	for i := 0; i < sides; i++ {
		mesh.Indices = append(mesh.Indices,
			bottom[i], top[i], bottom[i+1],
			bottom[i+1], top[i], top[i+1],
		)
	}

	// Separate cap ring so the cap's up-facing normals don't bleed into the
	// side shading.
	cap := ringAt(length, topRadius)
	center := uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, core.Vertex{
		Position: [3]float32{0, length, 0},
		UV:       [2]float32{0.5, 1},
	})
	for i := 0; i < sides; i++ {
		mesh.Indices = append(mesh.Indices, cap[i], center, cap[i+1])
	}

	mesh.RecalculateNormals()
	return mesh
}
