package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// DoFPass applies a depth-driven disc blur: pixels outside the focus range
// around FocusDistance are blurred proportionally to their circle of
// confusion, up to BlurRadius pixels.
type DoFPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	FocusDistance float32
	FocusRange    float32
	BlurRadius    float32

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	srcGroups map[*RenderTarget]*wgpu.BindGroup
	paramsBuf *wgpu.Buffer
}

func NewDoFPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*DoFPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "DoFShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.DoFWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "DoFPipeline",
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
		Label: "DoFParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p := &DoFPass{
		device:        device,
		pool:          pool,
		buffers:       buffers,
		FocusDistance: 35,
		FocusRange:    18,
		BlurRadius:    6,
		pipeline:      pipeline,
		paramsBuf:     paramsBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *DoFPass) Name() string { return "dof" }

func (p *DoFPass) Reads() []string { return []string{TargetColor, TargetPosition} }

func (p *DoFPass) Writes() []string { return []string{TargetColor} }

func (p *DoFPass) Rebind() {
	// The color source alternates between the ping-pong halves, so one
	// bind group is prebuilt per possible source.
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
			{Binding: 1, TextureView: p.pool.Get(TargetPosition).View},
			{Binding: 2, Sampler: p.buffers.LinearSampler},
			{Binding: 3, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *DoFPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.FocusDistance))
	binary.LittleEndian.PutUint32(params[4:], math.Float32bits(p.FocusRange))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(p.BlurRadius))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "DoFPass",
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
		fmt.Printf("ERROR: DoF pass End failed: %v\n", err)
	}
}
