package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// SSRPass marches screen-space reflections against the position buffer and
// composites them over the incoming color. Reflections sample the previous
// frame's color, so they lag one frame behind.
type SSRPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	MaxDistance float32
	Thickness   float32
	Strength    float32

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	srcGroups map[*RenderTarget]*wgpu.BindGroup
	paramsBuf *wgpu.Buffer
}

func NewSSRPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*SSRPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SSRShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SSRWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "SSRPipeline",
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
		Label: "SSRParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p := &SSRPass{
		device:      device,
		pool:        pool,
		buffers:     buffers,
		MaxDistance: 30,
		Thickness:   0.4,
		Strength:    0.8,
		pipeline:    pipeline,
		paramsBuf:   paramsBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *SSRPass) Name() string { return "ssr" }

func (p *SSRPass) Reads() []string {
	return []string{TargetColor, TargetNormal, TargetPosition, TargetPrevColor}
}

func (p *SSRPass) Writes() []string { return []string{TargetColor} }

func (p *SSRPass) Rebind() {
	p.srcGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)
	for _, src := range p.pool.ColorPair() {
		bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: src.View},
			},
		})
		if err != nil {
			panic(err)
		}
		p.srcGroups[src] = bg
	}

	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: p.pool.Get(TargetNormal).View},
			{Binding: 2, TextureView: p.pool.Get(TargetPosition).View},
			{Binding: 3, TextureView: p.pool.Get(TargetPrevColor).View},
			{Binding: 4, Sampler: p.buffers.LinearSampler},
			{Binding: 5, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *SSRPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.MaxDistance))
	binary.LittleEndian.PutUint32(params[4:], math.Float32bits(p.Thickness))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(p.Strength))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "SSRPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       frame.ColorDst.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.srcGroups[frame.ColorSrc], nil)
	rp.SetBindGroup(1, p.bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: SSR pass End failed: %v\n", err)
	}
}
