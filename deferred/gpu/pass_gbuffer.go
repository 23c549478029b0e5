package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/core"
	"github.com/murmur3d/murmur/deferred/shaders"
)

// defaultInstanceStride is the byte stride of one default-schema instance:
// current transform, previous transform, color, material.
const defaultInstanceStride = 4 * (16 + 16 + 4 + 4)

// GBufferPass rasterizes every batch into the geometry buffers and marks
// covered pixels with stencil reference 1 for the IBL pass.
type GBufferPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
}

func NewGBufferPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*GBufferPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GBufferShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.GBufferWGSL},
	})
	if err != nil {
		return nil, err
	}

	matCol := func(location uint32, offset uint64) wgpu.VertexAttribute {
		return wgpu.VertexAttribute{
			Format:         wgpu.VertexFormatFloat32x4,
			Offset:         offset,
			ShaderLocation: location,
		}
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "GBufferPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(core.Vertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
					},
				},
				{
					ArrayStride: defaultInstanceStride,
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						matCol(3, 0), matCol(4, 16), matCol(5, 32), matCol(6, 48),
						matCol(7, 64), matCol(8, 80), matCol(9, 96), matCol(10, 112),
						{Format: wgpu.VertexFormatFloat32x4, Offset: 128, ShaderLocation: 11},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 144, ShaderLocation: 12},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: wgpu.TextureFormatRGBA8Unorm, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: wgpu.TextureFormatRGBA16Float, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: wgpu.TextureFormatRGBA16Float, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: wgpu.TextureFormatRGBA16Float, WriteMask: wgpu.ColorWriteMaskAll},
				{Format: wgpu.TextureFormatRG16Float, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare:     wgpu.CompareFunctionAlways,
				FailOp:      wgpu.StencilOperationKeep,
				DepthFailOp: wgpu.StencilOperationKeep,
				PassOp:      wgpu.StencilOperationReplace,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare:     wgpu.CompareFunctionAlways,
				FailOp:      wgpu.StencilOperationKeep,
				DepthFailOp: wgpu.StencilOperationKeep,
				PassOp:      wgpu.StencilOperationReplace,
			},
			StencilReadMask:  0xFF,
			StencilWriteMask: 0xFF,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	p := &GBufferPass{
		device:   device,
		pool:     pool,
		buffers:  buffers,
		pipeline: pipeline,
	}
	p.Rebind()
	return p, nil
}

func (p *GBufferPass) Name() string { return "gbuffer" }

func (p *GBufferPass) Reads() []string { return nil }

func (p *GBufferPass) Writes() []string {
	return []string{TargetAlbedo, TargetNormal, TargetPosition, TargetEmission, TargetMotion, TargetDepth}
}

func (p *GBufferPass) Rebind() {
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *GBufferPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	clear := func(name string) wgpu.RenderPassColorAttachment {
		return wgpu.RenderPassColorAttachment{
			View:       p.pool.Get(name).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}
	}

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "GBufferPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			clear(TargetAlbedo),
			clear(TargetNormal),
			clear(TargetPosition),
			clear(TargetEmission),
			clear(TargetMotion),
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              p.pool.Depth().View,
			DepthLoadOp:       wgpu.LoadOpClear,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1.0,
			StencilLoadOp:     wgpu.LoadOpClear,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: 0,
		},
	})

	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetStencilReference(1)

	for _, batch := range frame.Scene.Batches {
		mb := p.buffers.Batch(batch)
		if mb == nil || mb.InstanceCount == 0 {
			continue
		}
		rp.SetVertexBuffer(0, mb.VertexBuf, 0, mb.VertexBuf.GetSize())
		rp.SetVertexBuffer(1, mb.InstanceBuf, 0, mb.InstanceBuf.GetSize())
		rp.SetIndexBuffer(mb.IndexBuf, wgpu.IndexFormatUint32, 0, mb.IndexBuf.GetSize())
		rp.DrawIndexed(mb.IndexCount, mb.InstanceCount, 0, 0, 0)
	}

	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: G-buffer pass End failed: %v\n", err)
	}
}
