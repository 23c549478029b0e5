package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// TonemapPass is always the terminal pass: it maps the HDR color buffer to
// the presentable surface with exponential exposure and gamma encoding.
type TonemapPass struct {
	PassToggle
	device *wgpu.Device
	pool   *TargetPool

	Exposure float32

	pipeline  *wgpu.RenderPipeline
	srcGroups map[*RenderTarget]*wgpu.BindGroup
	paramsBuf *wgpu.Buffer
}

func NewTonemapPass(device *wgpu.Device, pool *TargetPool, surfaceFormat wgpu.TextureFormat) (*TonemapPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "TonemapShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TonemapWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "TonemapPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    surfaceFormat,
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
		Label: "TonemapParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}

	p := &TonemapPass{
		device:    device,
		pool:      pool,
		Exposure:  1.2,
		pipeline:  pipeline,
		paramsBuf: paramsBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *TonemapPass) Name() string { return "tonemap" }

func (p *TonemapPass) Reads() []string { return []string{TargetColor} }

func (p *TonemapPass) Writes() []string { return []string{TargetSurface} }

func (p *TonemapPass) Rebind() {
	p.srcGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)
	for _, src := range p.pool.ColorPair() {
		bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: src.View},
				{Binding: 1, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			panic(err)
		}
		p.srcGroups[src] = bg
	}
}

func (p *TonemapPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.Exposure))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "TonemapPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       frame.SurfaceView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.srcGroups[frame.ColorSrc], nil)
	rp.Draw(3, 1, 0, 0)
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: TonemapPass End failed: %v\n", err)
	}
}
