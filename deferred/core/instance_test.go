package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadMesh() *Mesh {
	return &Mesh{
		Name: "quad",
		Vertices: []Vertex{
			{Position: [3]float32{-1, 0, -1}},
			{Position: [3]float32{1, 0, -1}},
			{Position: [3]float32{1, 0, 1}},
			{Position: [3]float32{-1, 0, 1}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

func TestBuildInstanced_PackedLengthInvariant(t *testing.T) {
	objects := []SceneObject{
		{Name: "a", Transform: NewTransform(), Attributes: map[string]any{AttrColor: [4]float32{1, 0, 0, 1}}},
		{Name: "b", Transform: NewTransform()},
		{Name: "c", Transform: NewTransform()},
	}

	im := BuildInstanced(quadMesh(), objects)

	attrFloats := 0
	for _, attr := range im.Schema {
		attrFloats += attr.Size
	}
	require.Equal(t, len(objects)*(16+attrFloats), len(im.Data()),
		"packed buffer length must be count*(16+sum(attributeSizes))")
	assert.Equal(t, 16+attrFloats, im.Stride())
	assert.Equal(t, len(objects), im.Count())
	assert.True(t, im.Dirty(), "a fresh batch must be flagged for upload")
}

func TestBuildInstanced_SchemaFromFirstObjectShader(t *testing.T) {
	shader := &ShaderSpec{
		Name: "sparks",
		Attributes: []AttributeSpec{
			{Name: "tint", Size: 3},
			{Name: "phase", Size: 1},
		},
	}
	objects := []SceneObject{
		{Name: "s0", Transform: NewTransform(), Shader: shader, Attributes: map[string]any{
			"tint":  mgl32.Vec3{1, 0.5, 0},
			"phase": float32(0.25),
		}},
		{Name: "s1", Transform: NewTransform(), Attributes: map[string]any{
			"phase": float32(0.5),
		}},
	}

	im := BuildInstanced(quadMesh(), objects)

	assert.Equal(t, 16+3+1, im.Stride())
	assert.Equal(t, []float32{1, 0.5, 0}, im.AttributeAt(0, "tint"))
	assert.Equal(t, []float32{0.25}, im.AttributeAt(0, "phase"))
	assert.Equal(t, []float32{0, 0, 0}, im.AttributeAt(1, "tint"), "missing attributes zero-fill")
}

func TestBuildInstanced_FailsFastOnSchemaViolations(t *testing.T) {
	// Unknown attribute name.
	require.Panics(t, func() {
		BuildInstanced(quadMesh(), []SceneObject{
			{Name: "bad", Transform: NewTransform(), Attributes: map[string]any{"nope": float32(1)}},
		})
	}, "attribute outside the schema is a configuration error")

	// Wrong flattening shape: vec3 into a 4-wide slot.
	require.Panics(t, func() {
		BuildInstanced(quadMesh(), []SceneObject{
			{Name: "shape", Transform: NewTransform(), Attributes: map[string]any{AttrColor: mgl32.Vec3{1, 1, 1}}},
		})
	})

	// Unflattenable type.
	require.Panics(t, func() {
		BuildInstanced(quadMesh(), []SceneObject{
			{Name: "type", Transform: NewTransform(), Attributes: map[string]any{AttrColor: "red"}},
		})
	})
}

func TestInstancedMesh_SetTransformRotatesPrevious(t *testing.T) {
	im := BuildInstanced(quadMesh(), []SceneObject{
		{Name: "mover", Transform: NewTransform()},
	})
	im.MarkClean()

	first := mgl32.Translate3D(1, 2, 3)
	im.SetTransform(0, first)
	assert.True(t, im.Dirty(), "mutation must mark the batch dirty")
	assert.Equal(t, first, im.TransformAt(0))
	// Build seeded prev with identity, so after one write prev is identity.
	ident := mgl32.Ident4()
	assert.Equal(t, ident[:], im.AttributeAt(0, AttrPrevTransform))

	second := mgl32.Translate3D(4, 5, 6)
	im.SetTransform(0, second)
	assert.Equal(t, first[:], im.AttributeAt(0, AttrPrevTransform),
		"previous slot must hold last frame's matrix")
}

func TestInstancedMesh_IndexBounds(t *testing.T) {
	im := BuildInstanced(quadMesh(), []SceneObject{{Name: "only", Transform: NewTransform()}})

	require.Panics(t, func() { im.SetTransform(1, mgl32.Ident4()) })
	require.Panics(t, func() { im.TransformAt(-1) })
}
