package core

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// AttributeSpec names one per-instance attribute slot and its width in floats.
type AttributeSpec struct {
	Name string
	Size int
}

// ShaderSpec is the attribute descriptor a scene object may declare when its
// instances feed a custom pipeline. Objects without one get the default
// schema.
type ShaderSpec struct {
	Name       string
	Attributes []AttributeSpec
}

const transformFloats = 16

// AttrPrevTransform holds last frame's world matrix per instance; the
// geometry pass derives motion vectors from it.
const (
	AttrPrevTransform = "prevTransform"
	AttrColor         = "color"
	AttrMaterial      = "material" // x: emissive strength, y: metalness, z: roughness, w: unused
)

func DefaultInstanceSchema() []AttributeSpec {
	return []AttributeSpec{
		{Name: AttrPrevTransform, Size: 16},
		{Name: AttrColor, Size: 4},
		{Name: AttrMaterial, Size: 4},
	}
}

// SceneObject is one instance in a batch: a world transform plus named
// material attributes matching the batch schema.
type SceneObject struct {
	Name       string
	Transform  Transform
	Shader     *ShaderSpec
	Attributes map[string]any
}

// InstancedMesh is one batched draw unit: a shared base mesh plus a packed
// per-instance buffer of `count * (16 + sum(attribute sizes))` floats. The
// packed buffer is mutable in place; mutators set the dirty flag so the
// uploader re-uploads without rebuilding.
type InstancedMesh struct {
	Mesh   *Mesh
	Schema []AttributeSpec

	count      int
	stride     int // floats per instance
	data       []float32
	offsets    map[string]int // attribute name -> float offset within an instance
	prevOffset int            // offset of AttrPrevTransform, -1 when absent
	dirty      bool
}

// BuildInstanced packs objects into one draw unit for the given mesh.
// Callers guarantee a non-empty object list; the schema comes from the first
// object's shader descriptor (or the default schema) and every object must
// match it. Schema violations are configuration errors and panic with a
// diagnostic naming the object and attribute.
func BuildInstanced(mesh *Mesh, objects []SceneObject) *InstancedMesh {
	schema := DefaultInstanceSchema()
	if objects[0].Shader != nil {
		schema = objects[0].Shader.Attributes
	}

	stride := transformFloats
	offsets := make(map[string]int, len(schema))
	prevOffset := -1
	for _, attr := range schema {
		if attr.Size <= 0 {
			panic(fmt.Sprintf("instanced mesh %q: attribute %q has invalid size %d", mesh.Name, attr.Name, attr.Size))
		}
		offsets[attr.Name] = stride
		if attr.Name == AttrPrevTransform {
			prevOffset = stride
		}
		stride += attr.Size
	}

	im := &InstancedMesh{
		Mesh:       mesh,
		Schema:     schema,
		count:      len(objects),
		stride:     stride,
		data:       make([]float32, len(objects)*stride),
		offsets:    offsets,
		prevOffset: prevOffset,
		dirty:      true,
	}

	for i, obj := range objects {
		base := i * stride
		world := obj.Transform.Pack()
		copy(im.data[base:base+transformFloats], world[:])

		// New instances have no history; motion vectors start at zero.
		if prevOffset >= 0 {
			copy(im.data[base+prevOffset:base+prevOffset+transformFloats], world[:])
		}

		for name, value := range obj.Attributes {
			off, ok := offsets[name]
			if !ok {
				panic(fmt.Sprintf("instanced mesh %q: object %d (%s): attribute %q is not in the batch schema",
					mesh.Name, i, obj.Name, name))
			}
			size := schemaSize(schema, name)
			flat, ok := flattenAttribute(value, size)
			if !ok {
				panic(fmt.Sprintf("instanced mesh %q: object %d (%s): attribute %q: cannot flatten %T into %d floats",
					mesh.Name, i, obj.Name, name, value, size))
			}
			copy(im.data[base+off:base+off+size], flat)
		}
	}

	return im
}

func schemaSize(schema []AttributeSpec, name string) int {
	for _, attr := range schema {
		if attr.Name == name {
			return attr.Size
		}
	}
	return 0
}

// flattenAttribute turns a scalar-or-vector value into `size` floats.
func flattenAttribute(value any, size int) ([]float32, bool) {
	var flat []float32
	switch v := value.(type) {
	case float32:
		flat = []float32{v}
	case float64:
		flat = []float32{float32(v)}
	case [2]float32:
		flat = v[:]
	case [3]float32:
		flat = v[:]
	case [4]float32:
		flat = v[:]
	case []float32:
		flat = v
	case mgl32.Vec2:
		flat = v[:]
	case mgl32.Vec3:
		flat = v[:]
	case mgl32.Vec4:
		flat = v[:]
	case mgl32.Mat4:
		flat = v[:]
	default:
		return nil, false
	}
	if len(flat) != size {
		return nil, false
	}
	return flat, true
}

func (im *InstancedMesh) Count() int  { return im.count }
func (im *InstancedMesh) Stride() int { return im.stride }

// Data exposes the packed buffer for upload. Mutating through it directly is
// allowed for per-frame writers; call MarkDirty afterwards.
func (im *InstancedMesh) Data() []float32 { return im.data }

func (im *InstancedMesh) Dirty() bool { return im.dirty }
func (im *InstancedMesh) MarkDirty()  { im.dirty = true }
func (im *InstancedMesh) MarkClean()  { im.dirty = false }

func (im *InstancedMesh) boundsCheck(i int, op string) {
	if i < 0 || i >= im.count {
		panic(fmt.Sprintf("instanced mesh %q: %s: index %d out of range [0,%d)", im.Mesh.Name, op, i, im.count))
	}
}

// SetTransform overwrites instance i's world matrix. When the schema tracks
// previous transforms, the outgoing matrix is rotated into the previous slot
// first; call this once per instance per frame so motion vectors span exactly
// one frame.
func (im *InstancedMesh) SetTransform(i int, m mgl32.Mat4) {
	im.boundsCheck(i, "SetTransform")
	base := i * im.stride
	if im.prevOffset >= 0 {
		copy(im.data[base+im.prevOffset:base+im.prevOffset+transformFloats], im.data[base:base+transformFloats])
	}
	copy(im.data[base:base+transformFloats], m[:])
	im.dirty = true
}

func (im *InstancedMesh) TransformAt(i int) mgl32.Mat4 {
	im.boundsCheck(i, "TransformAt")
	base := i * im.stride
	var m mgl32.Mat4
	copy(m[:], im.data[base:base+transformFloats])
	return m
}

// SetAttribute overwrites one attribute slot of instance i. Unknown names and
// size mismatches are configuration errors.
func (im *InstancedMesh) SetAttribute(i int, name string, values ...float32) {
	im.boundsCheck(i, "SetAttribute")
	off, ok := im.offsets[name]
	if !ok {
		panic(fmt.Sprintf("instanced mesh %q: SetAttribute: attribute %q is not in the batch schema", im.Mesh.Name, name))
	}
	size := schemaSize(im.Schema, name)
	if len(values) != size {
		panic(fmt.Sprintf("instanced mesh %q: SetAttribute %q: got %d floats, schema says %d",
			im.Mesh.Name, name, len(values), size))
	}
	copy(im.data[i*im.stride+off:], values)
	im.dirty = true
}

func (im *InstancedMesh) AttributeAt(i int, name string) []float32 {
	im.boundsCheck(i, "AttributeAt")
	off, ok := im.offsets[name]
	if !ok {
		panic(fmt.Sprintf("instanced mesh %q: AttributeAt: attribute %q is not in the batch schema", im.Mesh.Name, name))
	}
	size := schemaSize(im.Schema, name)
	out := make([]float32, size)
	copy(out, im.data[i*im.stride+off:i*im.stride+off+size])
	return out
}
