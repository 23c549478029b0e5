package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// Names of resources produced outside the chain before the first frame.
const (
	ResourceBrdf       = "brdf"
	ResourceIrradiance = "irradiance"
	ResourcePrefilter  = "prefilter"
)

// IBLPass adds image-based ambient light on top of the direct lighting.
// The stencil test (equal to the G-buffer coverage reference) keeps sky
// pixels untouched, and the blend state is additive into the light target.
type IBLPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager
	env     *EnvMaps

	Intensity float32

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	paramsBuf *wgpu.Buffer
}

func NewIBLPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager, env *EnvMaps) (*IBLPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "IBLShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.IBLWGSL},
	})
	if err != nil {
		return nil, err
	}

	stencilEqual := wgpu.StencilFaceState{
		Compare:     wgpu.CompareFunctionEqual,
		FailOp:      wgpu.StencilOperationKeep,
		DepthFailOp: wgpu.StencilOperationKeep,
		PassOp:      wgpu.StencilOperationKeep,
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "IBLPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: wgpu.TextureFormatRGBA16Float,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
					},
					Alpha: wgpu.BlendComponent{
						Operation: wgpu.BlendOperationAdd,
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      stencilEqual,
			StencilBack:       stencilEqual,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0,
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
		Label: "IBLParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p := &IBLPass{
		device:    device,
		pool:      pool,
		buffers:   buffers,
		env:       env,
		Intensity: 1.0,
		pipeline:  pipeline,
		paramsBuf: paramsBuf,
	}
	p.Rebind()
	return p, nil
}

func (p *IBLPass) Name() string { return "ibl" }

func (p *IBLPass) Reads() []string {
	return []string{
		TargetAlbedo, TargetNormal, TargetPosition, TargetSSAO, TargetLight, TargetDepth,
		ResourceBrdf, ResourceIrradiance, ResourcePrefilter,
	}
}

func (p *IBLPass) Writes() []string { return []string{TargetLight} }

func (p *IBLPass) Rebind() {
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: p.pool.Get(TargetAlbedo).View},
			{Binding: 2, TextureView: p.pool.Get(TargetNormal).View},
			{Binding: 3, TextureView: p.pool.Get(TargetPosition).View},
			{Binding: 4, TextureView: p.pool.Get(TargetSSAO).View},
			{Binding: 5, TextureView: p.env.BrdfView},
			{Binding: 6, TextureView: p.env.IrradianceView},
			{Binding: 7, TextureView: p.env.PrefilterView},
			{Binding: 8, Sampler: p.buffers.LinearSampler},
			{Binding: 9, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *IBLPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.Intensity))
	binary.LittleEndian.PutUint32(params[4:], math.Float32bits(float32(p.env.PrefilterMips-1)))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "IBLPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    p.pool.Get(TargetLight).View,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            p.pool.Depth().View,
			DepthReadOnly:   true,
			StencilReadOnly: true,
		},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetStencilReference(1)
	rp.Draw(3, 1, 0, 0)
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: IBL pass End failed: %v\n", err)
	}
}
