package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// GlitchPass applies audio-reactive screen distortion: horizontal row
// displacement and chromatic aberration that scale with track loudness.
type GlitchPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	Strength float32

	pipeline  *wgpu.RenderPipeline
	srcGroups map[*RenderTarget]*wgpu.BindGroup
	paramsBuf *wgpu.Buffer
}

func NewGlitchPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*GlitchPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GlitchShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GlitchWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "GlitchPipeline",
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

	paramsBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "GlitchParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}

	p := &GlitchPass{
		device:    device,
		pool:      pool,
		buffers:   buffers,
		Strength:  1.0,
		pipeline:  pipeline,
		paramsBuf: paramsBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *GlitchPass) Name() string { return "glitch" }

func (p *GlitchPass) Reads() []string { return []string{TargetColor} }

func (p *GlitchPass) Writes() []string { return []string{TargetColor} }

func (p *GlitchPass) Rebind() {
	p.srcGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)
	for _, src := range p.pool.ColorPair() {
		bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
				{Binding: 1, TextureView: src.View},
				{Binding: 2, Sampler: p.buffers.LinearSampler},
				{Binding: 3, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			panic(err)
		}
		p.srcGroups[src] = bg
	}
}

func (p *GlitchPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.Strength))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "GlitchPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       frame.ColorDst.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.srcGroups[frame.ColorSrc], nil)
	rp.Draw(3, 1, 0, 0)
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: GlitchPass End failed: %v\n", err)
	}
}
