package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/shaders"
)

// BloomPass extracts pixels above Threshold into a half-resolution target,
// runs a separable Gaussian over them, and composites the result back over
// the scene color.
type BloomPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	Threshold float32
	Knee      float32
	Intensity float32

	brightPipeline    *wgpu.RenderPipeline
	blurPipeline      *wgpu.RenderPipeline
	compositePipeline *wgpu.RenderPipeline

	brightGroups    map[*RenderTarget]*wgpu.BindGroup
	compositeGroups map[*RenderTarget]*wgpu.BindGroup
	blurHGroup      *wgpu.BindGroup
	blurVGroup      *wgpu.BindGroup

	paramsBuf *wgpu.Buffer
	dirHBuf   *wgpu.Buffer
	dirVBuf   *wgpu.Buffer
}

func NewBloomPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*BloomPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BloomShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BloomWGSL},
	})
	if err != nil {
		return nil, err
	}

	pipeline := func(label, entry string) (*wgpu.RenderPipeline, error) {
		return device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: label,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: "vs_main",
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: entry,
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
	}

	p := &BloomPass{
		device:    device,
		pool:      pool,
		buffers:   buffers,
		Threshold: 1.0,
		Knee:      0.5,
		Intensity: 0.7,
	}

	if p.brightPipeline, err = pipeline("BloomBrightPipeline", "fs_bright"); err != nil {
		return nil, err
	}
	if p.blurPipeline, err = pipeline("BloomBlurPipeline", "fs_blur"); err != nil {
		return nil, err
	}
	if p.compositePipeline, err = pipeline("BloomCompositePipeline", "fs_composite"); err != nil {
		return nil, err
	}

	makeUB := func(label string) *wgpu.Buffer {
		buf, bufErr := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  16,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if bufErr != nil {
			panic(bufErr)
		}
		return buf
	}
	p.paramsBuf = makeUB("BloomParams")
	p.dirHBuf = makeUB("BloomDirH")
	p.dirVBuf = makeUB("BloomDirV")

	writeDir := func(buf *wgpu.Buffer, x, y float32) {
		data := make([]byte, 16)
		binary.LittleEndian.PutUint32(data[0:], math.Float32bits(x))
		binary.LittleEndian.PutUint32(data[4:], math.Float32bits(y))
		device.GetQueue().WriteBuffer(buf, 0, data)
	}
	writeDir(p.dirHBuf, 1, 0)
	writeDir(p.dirVBuf, 0, 1)

	p.Rebind()
	return p, nil
}

func (p *BloomPass) Name() string { return "bloom" }

func (p *BloomPass) Reads() []string { return []string{TargetColor} }

func (p *BloomPass) Writes() []string { return []string{TargetBloomA, TargetBloomB, TargetColor} }

func (p *BloomPass) Rebind() {
	p.brightGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)
	p.compositeGroups = make(map[*RenderTarget]*wgpu.BindGroup, 2)

	for _, src := range p.pool.ColorPair() {
		bright, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.brightPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
				{Binding: 1, Sampler: p.buffers.LinearSampler},
				{Binding: 2, TextureView: src.View},
			},
		})
		if err != nil {
			panic(err)
		}
		p.brightGroups[src] = bright

		composite, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.compositePipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
				{Binding: 1, Sampler: p.buffers.LinearSampler},
				{Binding: 2, TextureView: src.View},
				{Binding: 5, TextureView: p.pool.Get(TargetBloomA).View},
			},
		})
		if err != nil {
			panic(err)
		}
		p.compositeGroups[src] = composite
	}

	blurGroup := func(srcName string, dirBuf *wgpu.Buffer) *wgpu.BindGroup {
		bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: p.blurPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 1, Sampler: p.buffers.LinearSampler},
				{Binding: 3, TextureView: p.pool.Get(srcName).View},
				{Binding: 4, Buffer: dirBuf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			panic(err)
		}
		return bg
	}
	p.blurHGroup = blurGroup(TargetBloomA, p.dirHBuf)
	p.blurVGroup = blurGroup(TargetBloomB, p.dirVBuf)
}

func (p *BloomPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.Threshold))
	binary.LittleEndian.PutUint32(params[4:], math.Float32bits(p.Knee))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(p.Intensity))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	run := func(label string, pipeline *wgpu.RenderPipeline, bg *wgpu.BindGroup, dst *RenderTarget) {
		rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: label,
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       dst.View,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			}},
		})
		rp.SetPipeline(pipeline)
		rp.SetBindGroup(0, bg, nil)
		rp.Draw(3, 1, 0, 0)
		if err := rp.End(); err != nil {
			fmt.Printf("ERROR: %s End failed: %v\n", label, err)
		}
	}

	run("BloomBrightPass", p.brightPipeline, p.brightGroups[frame.ColorSrc], p.pool.Get(TargetBloomA))
	run("BloomBlurHPass", p.blurPipeline, p.blurHGroup, p.pool.Get(TargetBloomB))
	run("BloomBlurVPass", p.blurPipeline, p.blurVGroup, p.pool.Get(TargetBloomA))
	run("BloomCompositePass", p.compositePipeline, p.compositeGroups[frame.ColorSrc], frame.ColorDst)
}
