package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/core"
	"github.com/murmur3d/murmur/deferred/shaders"
)

// LightingPass shades covered G-buffer pixels with the point light list
// and fills the rest with the procedural sky. Emission is added as-is.
type LightingPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	skyBuf    *wgpu.Buffer
}

func NewLightingPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*LightingPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "LightingShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.LightingWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "LightingPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    wgpu.TextureFormatRGBA16Float,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	skyBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SkyUB",
		Size:  80,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p := &LightingPass{
		device:   device,
		pool:     pool,
		buffers:  buffers,
		pipeline: pipeline,
		skyBuf:   skyBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *LightingPass) Name() string { return "lighting" }

func (p *LightingPass) Reads() []string {
	return []string{TargetAlbedo, TargetNormal, TargetPosition, TargetEmission, TargetSSAO}
}

func (p *LightingPass) Writes() []string { return []string{TargetLight} }

func (p *LightingPass) Rebind() {
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: p.pool.Get(TargetAlbedo).View},
			{Binding: 2, TextureView: p.pool.Get(TargetNormal).View},
			{Binding: 3, TextureView: p.pool.Get(TargetPosition).View},
			{Binding: 4, TextureView: p.pool.Get(TargetEmission).View},
			{Binding: 5, TextureView: p.pool.Get(TargetSSAO).View},
			{Binding: 6, Buffer: p.buffers.LightsBuf, Size: wgpu.WholeSize},
			{Binding: 7, Buffer: p.skyBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *LightingPass) uploadSky(sky core.SkyParams) {
	buf := make([]byte, 80)
	writeVec4 := func(offset int, x, y, z, w float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(x))
		binary.LittleEndian.PutUint32(buf[offset+4:], math.Float32bits(y))
		binary.LittleEndian.PutUint32(buf[offset+8:], math.Float32bits(z))
		binary.LittleEndian.PutUint32(buf[offset+12:], math.Float32bits(w))
	}
	writeVec4(0, sky.ZenithColor.X(), sky.ZenithColor.Y(), sky.ZenithColor.Z(), 0)
	writeVec4(16, sky.HorizonColor.X(), sky.HorizonColor.Y(), sky.HorizonColor.Z(), 0)
	writeVec4(32, sky.GroundColor.X(), sky.GroundColor.Y(), sky.GroundColor.Z(), 0)
	writeVec4(48, sky.SunDirection.X(), sky.SunDirection.Y(), sky.SunDirection.Z(), sky.SunIntensity)
	writeVec4(64, sky.SunColor.X(), sky.SunColor.Y(), sky.SunColor.Z(), 0)

	p.device.GetQueue().WriteBuffer(p.skyBuf, 0, buf)
}

func (p *LightingPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	p.uploadSky(frame.Scene.Sky)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "LightingPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.pool.Get(TargetLight).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: Lighting pass End failed: %v\n", err)
	}
}
