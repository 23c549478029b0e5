package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// UICompositePass lays the UI buffer over the scene color. Instead of a
// straight alpha blend it darkens the scene under a 3x3 box blur of the UI
// alpha, which gives text a soft dark halo, then adds the UI color on top.
type UICompositePass struct {
	PassToggle
	device *wgpu.Device
	pool   *TargetPool

	pipeline  *wgpu.RenderPipeline
	srcGroups map[*RenderTarget]*wgpu.BindGroup
}

func NewUICompositePass(device *wgpu.Device, pool *TargetPool) (*UICompositePass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "UICompositeShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.UICompositeWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "UICompositePipeline",
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

	p := &UICompositePass{
		device:   device,
		pool:     pool,
		pipeline: pipeline,
	}
	p.Rebind()
	return p, nil
}

func (p *UICompositePass) Name() string { return "uiComposite" }

func (p *UICompositePass) Reads() []string { return []string{TargetColor, TargetUI} }

func (p *UICompositePass) Writes() []string { return []string{TargetColor} }

func (p *UICompositePass) Rebind() {
	p.srcGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)
	for _, src := range p.pool.ColorPair() {
		bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: src.View},
				{Binding: 1, TextureView: p.pool.Get(TargetUI).View},
			},
		})
		if err != nil {
			panic(err)
		}
		p.srcGroups[src] = bg
	}
}

func (p *UICompositePass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "UICompositePass",
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
		fmt.Printf("ERROR: UICompositePass End failed: %v\n", err)
	}
}
