package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/core"
)

// FrameDataSize is the byte size of the shared per-frame uniform block.
// Struct FrameData {
//   view: mat4x4<f32>;           -- 0
//   proj: mat4x4<f32>;           -- 64
//   inv_view: mat4x4<f32>;       -- 128
//   inv_proj: mat4x4<f32>;       -- 192
//   view_proj: mat4x4<f32>;      -- 256
//   prev_view_proj: mat4x4<f32>; -- 320
//   cam_pos: vec4<f32>;          -- 384
//   time_dt: vec4<f32>;          -- 400 (time, dt, loudness, unused)
//   audio_a: vec4<f32>;          -- 416 (bands 0..3)
//   audio_b: vec4<f32>;          -- 432 (bands 4..5, unused, unused)
//   screen: vec4<f32>;           -- 448 (w, h, 1/w, 1/h)
//   counts: vec4<u32>;           -- 464 (light_count, 0, 0, 0)
// } -> 512 bytes (padded)
const FrameDataSize = 512

// BufferManager owns the GPU-resident frame state: the shared frame
// uniform, the light list, per-batch mesh buffers and the common samplers.
type BufferManager struct {
	Device *wgpu.Device

	FrameBuf  *wgpu.Buffer
	LightsBuf *wgpu.Buffer

	LinearSampler  *wgpu.Sampler
	NearestSampler *wgpu.Sampler

	batches map[*core.InstancedMesh]*MeshBuffers
}

// MeshBuffers is the GPU residency of one instanced batch. Vertex and
// index data upload once; instance data re-uploads when the batch is dirty.
type MeshBuffers struct {
	VertexBuf   *wgpu.Buffer
	IndexBuf    *wgpu.Buffer
	InstanceBuf *wgpu.Buffer

	IndexCount    uint32
	InstanceCount uint32
}

func NewBufferManager(device *wgpu.Device) *BufferManager {
	m := &BufferManager{
		Device:  device,
		batches: make(map[*core.InstancedMesh]*MeshBuffers),
	}

	var err error
	m.LinearSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	m.NearestSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MinFilter:     wgpu.FilterModeNearest,
		MagFilter:     wgpu.FilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}

	return m
}

func (m *BufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}

		newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		*buf = newBuf

		if len(data) > 0 {
			m.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true
	}

	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false
}

// UpdateFrame packs the per-frame uniform block and uploads it.
func (m *BufferManager) UpdateFrame(params core.FrameParams, width, height, lightCount uint32) {
	buf := make([]byte, FrameDataSize)

	writeMat := func(offset int, mat mgl32.Mat4) {
		for i, v := range mat {
			binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
		}
	}
	writeF := func(offset int, v float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
	}

	viewProj := params.Proj.Mul4(params.View)

	writeMat(0, params.View)
	writeMat(64, params.Proj)
	writeMat(128, params.View.Inv())
	writeMat(192, params.Proj.Inv())
	writeMat(256, viewProj)
	writeMat(320, params.PrevViewProj)

	writeF(384, params.CamPos.X())
	writeF(388, params.CamPos.Y())
	writeF(392, params.CamPos.Z())
	writeF(396, 0)

	writeF(400, params.Time)
	writeF(404, params.Dt)
	writeF(408, params.Loudness)
	writeF(412, 0)

	for i := 0; i < 4; i++ {
		writeF(416+i*4, params.Bands[i])
	}
	writeF(432, params.Bands[4])
	writeF(436, params.Bands[5])
	writeF(440, 0)
	writeF(444, 0)

	w, h := float32(width), float32(height)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	writeF(448, w)
	writeF(452, h)
	writeF(456, 1/w)
	writeF(460, 1/h)

	binary.LittleEndian.PutUint32(buf[464:], lightCount)

	if m.FrameBuf == nil {
		var err error
		m.FrameBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "FrameUB",
			Size:  FrameDataSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
	}
	m.Device.GetQueue().WriteBuffer(m.FrameBuf, 0, buf)
}

// UpdateLights uploads the point light list as two vec4s per light:
// (position, radius) and (color, intensity). The buffer is sized for
// MaxLights up front so bind groups referencing it never go stale.
func (m *BufferManager) UpdateLights(lights []core.PointLight) uint32 {
	count := uint32(len(lights))
	if count > core.MaxLights {
		count = core.MaxLights
	}

	data := make([]byte, 0, int(count)*32)
	for _, l := range lights[:count] {
		data = append(data, packVec4(l.Position.X(), l.Position.Y(), l.Position.Z(), l.Radius)...)
		data = append(data, packVec4(l.Color.X(), l.Color.Y(), l.Color.Z(), l.Intensity)...)
	}

	m.ensureBuffer("LightsBuf", &m.LightsBuf, data, wgpu.BufferUsageStorage, core.MaxLights*32-len(data))
	return count
}

// SyncBatch uploads one instanced batch, creating its buffers on first
// sight. Instance data only re-uploads when the batch is marked dirty.
func (m *BufferManager) SyncBatch(im *core.InstancedMesh) *MeshBuffers {
	mb, ok := m.batches[im]
	if !ok {
		mb = &MeshBuffers{}
		m.batches[im] = mb

		verts := im.Mesh.Vertices
		vSize := uint64(len(verts)) * uint64(unsafe.Sizeof(core.Vertex{}))
		var err error
		mb.VertexBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "MeshVB:" + im.Mesh.Name,
			Size:  vSize,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		m.Device.GetQueue().WriteBuffer(mb.VertexBuf, 0,
			unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), vSize))

		indices := im.Mesh.Indices
		iSize := uint64(len(indices)) * 4
		mb.IndexBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "MeshIB:" + im.Mesh.Name,
			Size:  iSize,
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		m.Device.GetQueue().WriteBuffer(mb.IndexBuf, 0,
			unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), iSize))

		mb.IndexCount = im.Mesh.IndexCount()
	}

	if im.Dirty() || mb.InstanceBuf == nil {
		data := im.Data()
		byteLen := len(data) * 4
		m.ensureBuffer("InstanceVB:"+im.Mesh.Name, &mb.InstanceBuf,
			unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), byteLen),
			wgpu.BufferUsageVertex, 0)
		im.MarkClean()
	}
	mb.InstanceCount = uint32(im.Count())

	return mb
}

// SyncScene uploads every batch in the scene and the light list.
func (m *BufferManager) SyncScene(scene *core.Scene) uint32 {
	for _, batch := range scene.Batches {
		m.SyncBatch(batch)
	}
	return m.UpdateLights(scene.Lights)
}

// Batch returns the GPU buffers of a synced batch, nil when never synced.
func (m *BufferManager) Batch(im *core.InstancedMesh) *MeshBuffers {
	return m.batches[im]
}

func packVec4(x, y, z, w float32) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(z))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(w))
	return buf
}
