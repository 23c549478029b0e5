package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred/shaders"
)

const ssaoKernelSize = 32

// SSAOPass computes screen-space ambient occlusion from the position and
// normal buffers, then box-blurs the raw result to hide the noise pattern.
type SSAOPass struct {
	PassToggle
	device  *wgpu.Device
	pool    *TargetPool
	buffers *BufferManager

	Radius    float32
	Bias      float32
	Intensity float32
	Power     float32

	rawPipeline  *wgpu.RenderPipeline
	blurPipeline *wgpu.RenderPipeline
	rawBindGroup *wgpu.BindGroup
	blurBindGrp  *wgpu.BindGroup

	kernelBuf *wgpu.Buffer
	paramsBuf *wgpu.Buffer
	noiseTex  *wgpu.Texture
	noiseView *wgpu.TextureView
}

func NewSSAOPass(device *wgpu.Device, pool *TargetPool, buffers *BufferManager) (*SSAOPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SSAOShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SSAOWGSL},
	})
	if err != nil {
		return nil, err
	}

	fullscreen := func(label, entry string, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
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
					Format:    format,
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

	p := &SSAOPass{
		device:    device,
		pool:      pool,
		buffers:   buffers,
		Radius:    0.8,
		Bias:      0.025,
		Intensity: 1.0,
		Power:     1.5,
	}

	if p.rawPipeline, err = fullscreen("SSAORawPipeline", "fs_ssao", wgpu.TextureFormatR8Unorm); err != nil {
		return nil, err
	}
	if p.blurPipeline, err = fullscreen("SSAOBlurPipeline", "fs_blur", wgpu.TextureFormatR8Unorm); err != nil {
		return nil, err
	}

	p.createKernel()
	p.createNoise()

	p.paramsBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SSAOParams",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	p.Rebind()
	return p, nil
}

// createKernel fills the hemisphere sample kernel. The sequence is seeded
// so the occlusion pattern is identical across runs.
func (p *SSAOPass) createKernel() {
	rng := rand.New(rand.NewSource(7))

	data := make([]byte, ssaoKernelSize*16)
	for i := 0; i < ssaoKernelSize; i++ {
		v := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		if v.Len() < 1e-6 {
			v = mgl32.Vec3{0, 0, 1}
		}
		v = v.Normalize().Mul(rng.Float32())

		// Cluster samples toward the center of the hemisphere.
		t := float32(i) / ssaoKernelSize
		scale := 0.1 + 0.9*t*t
		v = v.Mul(scale)

		binary.LittleEndian.PutUint32(data[i*16:], math.Float32bits(v.X()))
		binary.LittleEndian.PutUint32(data[i*16+4:], math.Float32bits(v.Y()))
		binary.LittleEndian.PutUint32(data[i*16+8:], math.Float32bits(v.Z()))
	}

	var err error
	p.kernelBuf, err = p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SSAOKernel",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	p.device.GetQueue().WriteBuffer(p.kernelBuf, 0, data)
}

// createNoise builds the 4x4 tiling rotation texture.
func (p *SSAOPass) createNoise() {
	rng := rand.New(rand.NewSource(13))

	pixels := make([]byte, 4*4*4)
	for i := 0; i < 16; i++ {
		x := rng.Float32()*2 - 1
		y := rng.Float32()*2 - 1
		pixels[i*4] = byte((x*0.5 + 0.5) * 255)
		pixels[i*4+1] = byte((y*0.5 + 0.5) * 255)
		pixels[i*4+2] = 0
		pixels[i*4+3] = 255
	}

	var err error
	p.noiseTex, err = p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SSAONoise",
		Size:          wgpu.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}
	p.device.GetQueue().WriteTexture(p.noiseTex.AsImageCopy(), pixels, &wgpu.TextureDataLayout{
		BytesPerRow:  16,
		RowsPerImage: 4,
	}, &wgpu.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 1})

	p.noiseView, err = p.noiseTex.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (p *SSAOPass) Name() string { return "ssao" }

func (p *SSAOPass) Reads() []string { return []string{TargetPosition, TargetNormal} }

func (p *SSAOPass) Writes() []string { return []string{TargetSSAORaw, TargetSSAO} }

// SetEnabled repaints the occlusion target white when the pass turns off.
// Lighting and IBL keep sampling it unconditionally, so without this they
// would modulate by whatever frame was computed last.
func (p *SSAOPass) SetEnabled(enabled bool) {
	wasEnabled := p.Enabled()
	p.PassToggle.SetEnabled(enabled)
	if wasEnabled && !enabled {
		p.clearOcclusion()
	}
}

func (p *SSAOPass) clearOcclusion() {
	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		fmt.Printf("ERROR: SSAO clear encoder failed: %v\n", err)
		return
	}
	rp := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "SSAOClearPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.pool.Get(TargetSSAO).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	if err := rp.End(); err != nil {
		fmt.Printf("ERROR: SSAO clear pass End failed: %v\n", err)
		return
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		fmt.Printf("ERROR: SSAO clear encoder Finish failed: %v\n", err)
		return
	}
	p.device.GetQueue().Submit(cmd)
}

func (p *SSAOPass) Rebind() {
	var err error
	p.rawBindGroup, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.rawPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.buffers.FrameBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: p.pool.Get(TargetPosition).View},
			{Binding: 2, TextureView: p.pool.Get(TargetNormal).View},
			{Binding: 3, TextureView: p.noiseView},
			{Binding: 4, Buffer: p.kernelBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: p.paramsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(err)
	}

	p.blurBindGrp, err = p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: p.blurPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 6, TextureView: p.pool.Get(TargetSSAORaw).View},
		},
	})
	if err != nil {
		panic(err)
	}

	// Resized targets come back zeroed; repaint if the pass is off.
	if !p.Enabled() {
		p.clearOcclusion()
	}
}

func (p *SSAOPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], math.Float32bits(p.Radius))
	binary.LittleEndian.PutUint32(params[4:], math.Float32bits(p.Bias))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(p.Intensity))
	binary.LittleEndian.PutUint32(params[12:], math.Float32bits(p.Power))
	p.device.GetQueue().WriteBuffer(p.paramsBuf, 0, params)

	raw := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "SSAORawPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.pool.Get(TargetSSAORaw).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	raw.SetPipeline(p.rawPipeline)
	raw.SetBindGroup(0, p.rawBindGroup, nil)
	raw.Draw(3, 1, 0, 0)
	if err := raw.End(); err != nil {
		fmt.Printf("ERROR: SSAO raw pass End failed: %v\n", err)
	}

	blur := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "SSAOBlurPass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       p.pool.Get(TargetSSAO).View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 1, G: 1, B: 1, A: 1},
		}},
	})
	blur.SetPipeline(p.blurPipeline)
	blur.SetBindGroup(0, p.blurBindGrp, nil)
	blur.Draw(3, 1, 0, 0)
	if err := blur.End(); err != nil {
		fmt.Printf("ERROR: SSAO blur pass End failed: %v\n", err)
	}
}
