package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/core"
	"github.com/murmur3d/murmur/deferred/shaders"
)

// UIPass rasterizes the scene's text items into the dedicated UI target,
// cleared to transparent each frame. The composite pass reads the result.
type UIPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager
	text    *core.TextRenderer

	pipeline  *wgpu.RenderPipeline
	bindGroup *wgpu.BindGroup
	atlasTex  *wgpu.Texture
	atlasView *wgpu.TextureView

	vertexBuf   *wgpu.Buffer
	vertexCount int
}

func NewUIPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager, text *core.TextRenderer) (*UIPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "UITextShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.UITextWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "UITextPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(core.TextVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{ShaderLocation: 0, Offset: 0, Format: wgpu.VertexFormatFloat32x2},
					{ShaderLocation: 1, Offset: 8, Format: wgpu.VertexFormatFloat32x2},
					{ShaderLocation: 2, Offset: 16, Format: wgpu.VertexFormatFloat32x4},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: wgpu.TextureFormatRGBA8Unorm,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					// Alpha accumulates as coverage so the composite
					// pass can blur it into a darkening mask.
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
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

	atlas := text.AtlasImage
	atlasTex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "UIFontAtlas",
		Size: wgpu.Extent3D{
			Width:              uint32(atlas.Rect.Dx()),
			Height:             uint32(atlas.Rect.Dy()),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	device.GetQueue().WriteTexture(
		atlasTex.AsImageCopy(),
		atlas.Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(atlas.Stride),
			RowsPerImage: uint32(atlas.Rect.Dy()),
		},
		&wgpu.Extent3D{
			Width:              uint32(atlas.Rect.Dx()),
			Height:             uint32(atlas.Rect.Dy()),
			DepthOrArrayLayers: 1,
		},
	)

	atlasView, err := atlasTex.CreateView(nil)
	if err != nil {
		panic(err)
	}

	p := &UIPass{
		device:    device,
		pool:      pool,
		buffers:   buffers,
		text:      text,
		pipeline:  pipeline,
		atlasTex:  atlasTex,
		atlasView: atlasView,
	}
	p.Rebind()
	return p, nil
}

func (p *UIPass) Name() string { return "ui" }

func (p *UIPass) Reads() []string { return nil }

func (p *UIPass) Writes() []string { return []string{TargetUI} }

func (p *UIPass) Rebind() {
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: p.atlasView},
			{Binding: 1, Sampler: p.buffers.LinearSampler},
		},
	})
	if err != nil {
		panic(err)
	}
	p.bindGroup = bg
}

func (p *UIPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	var verts []core.TextVertex
	if frame.Scene != nil {
		verts = p.text.BuildVertices(frame.Scene.Text, int(frame.Width), int(frame.Height))
	}
	p.vertexCount = len(verts)
	if p.vertexCount > 0 {
		size := p.vertexCount * int(unsafe.Sizeof(core.TextVertex{}))
		data := unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), size)
		p.buffers.ensureBuffer("UITextVB", &p.vertexBuf, data, wgpu.BufferUsageVertex, 256*int(unsafe.Sizeof(core.TextVertex{})))
	}

	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "UIPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.pool.Get(TargetUI).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	if p.vertexCount > 0 {
		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, p.bindGroup, nil)
		rp.SetVertexBuffer(0, p.vertexBuf, 0, wgpu.WholeSize)
		rp.Draw(uint32(p.vertexCount), 1, 0, 0)
	}
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: UIPass End failed: %v\n", err)
	}
}
