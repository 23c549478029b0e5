package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Target names used by pass read/write declarations. Color is the virtual
// name of the ping-pong pair; Surface is the swapchain texture and can only
// be written.
const (
	TargetAlbedo    = "albedo"
	TargetNormal    = "normal"
	TargetPosition  = "position"
	TargetEmission  = "emission"
	TargetMotion    = "motion"
	TargetDepth     = "depth"
	TargetSSAORaw   = "ssaoRaw"
	TargetSSAO      = "ssao"
	TargetLight     = "light"
	TargetColor     = "color"
	TargetPrevColor = "prevColor"
	TargetBloomA    = "bloomA"
	TargetBloomB    = "bloomB"
	TargetUI        = "ui"
	TargetSurface   = "surface"
)

// RenderTarget is one named offscreen texture. Pointers handed out by the
// pool stay valid across Resize; only Texture and View are swapped out.
type RenderTarget struct {
	Name   string
	Format wgpu.TextureFormat
	Width  uint32
	Height uint32

	Texture *wgpu.Texture
	View    *wgpu.TextureView

	// divisor scales the frame size down, 2 for the half-res bloom pair.
	divisor uint32
}

func (t *RenderTarget) recreate(device *wgpu.Device, width, height uint32) {
	if t.Texture != nil {
		t.Texture.Release()
	}

	usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	switch t.Name {
	case TargetLight:
		usage |= wgpu.TextureUsageCopySrc
	case TargetPrevColor:
		usage |= wgpu.TextureUsageCopyDst
	case colorPingName, colorPongName:
		usage |= wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	case TargetDepth:
		usage = wgpu.TextureUsageRenderAttachment
	}

	tex, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.Name,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        t.Format,
		Usage:         usage,
		SampleCount:   1,
	})
	if err != nil {
		panic(fmt.Sprintf("create render target %q: %v", t.Name, err))
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(fmt.Sprintf("create render target view %q: %v", t.Name, err))
	}

	t.Texture = tex
	t.View = view
	t.Width = width
	t.Height = height
}

// Internal names of the two halves of the color ping-pong pair.
const (
	colorPingName = "colorPing"
	colorPongName = "colorPong"
)

// TargetPool owns every persistent offscreen target of the pass chain plus
// the HDR ping-pong pair resolved behind the virtual "color" name.
type TargetPool struct {
	device *wgpu.Device
	width  uint32
	height uint32

	targets map[string]*RenderTarget

	colorRead  *RenderTarget
	colorWrite *RenderTarget
}

func NewTargetPool(device *wgpu.Device, width, height uint32) *TargetPool {
	p := &TargetPool{
		device:  device,
		targets: make(map[string]*RenderTarget),
	}

	specs := []struct {
		name    string
		format  wgpu.TextureFormat
		divisor uint32
	}{
		{TargetAlbedo, wgpu.TextureFormatRGBA8Unorm, 1},
		{TargetNormal, wgpu.TextureFormatRGBA16Float, 1},
		{TargetPosition, wgpu.TextureFormatRGBA16Float, 1},
		{TargetEmission, wgpu.TextureFormatRGBA16Float, 1},
		{TargetMotion, wgpu.TextureFormatRG16Float, 1},
		{TargetDepth, wgpu.TextureFormatDepth24PlusStencil8, 1},
		{TargetSSAORaw, wgpu.TextureFormatR8Unorm, 1},
		{TargetSSAO, wgpu.TextureFormatR8Unorm, 1},
		{TargetLight, wgpu.TextureFormatRGBA16Float, 1},
		{TargetPrevColor, wgpu.TextureFormatRGBA16Float, 1},
		{TargetBloomA, wgpu.TextureFormatRGBA16Float, 2},
		{TargetBloomB, wgpu.TextureFormatRGBA16Float, 2},
		{TargetUI, wgpu.TextureFormatRGBA8Unorm, 1},
		{colorPingName, wgpu.TextureFormatRGBA16Float, 1},
		{colorPongName, wgpu.TextureFormatRGBA16Float, 1},
	}
	for _, s := range specs {
		p.targets[s.name] = &RenderTarget{Name: s.name, Format: s.format, divisor: s.divisor}
	}

	p.colorRead = p.targets[colorPingName]
	p.colorWrite = p.targets[colorPongName]

	p.Resize(width, height)
	return p
}

// Get resolves a named target. The virtual "color" name resolves to the
// current read half of the ping-pong pair.
func (p *TargetPool) Get(name string) *RenderTarget {
	if name == TargetColor {
		return p.colorRead
	}
	t, ok := p.targets[name]
	if !ok {
		panic(fmt.Sprintf("unknown render target %q", name))
	}
	return t
}

func (p *TargetPool) ColorRead() *RenderTarget  { return p.colorRead }
func (p *TargetPool) ColorWrite() *RenderTarget { return p.colorWrite }

// ColorPair returns both halves of the ping-pong pair, for passes that
// prebuild one bind group per possible color source.
func (p *TargetPool) ColorPair() [2]*RenderTarget {
	return [2]*RenderTarget{p.targets[colorPingName], p.targets[colorPongName]}
}

func (p *TargetPool) SwapColor() {
	p.colorRead, p.colorWrite = p.colorWrite, p.colorRead
}

func (p *TargetPool) Depth() *RenderTarget { return p.targets[TargetDepth] }

func (p *TargetPool) Width() uint32  { return p.width }
func (p *TargetPool) Height() uint32 { return p.height }

// Resize recreates every target in place so held pointers stay valid.
// Bind groups referencing the old views must be rebuilt by the caller.
func (p *TargetPool) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	p.width = width
	p.height = height

	for _, t := range p.targets {
		w := max(width/t.divisor, 1)
		h := max(height/t.divisor, 1)
		t.recreate(p.device, w, h)
	}
}

func (p *TargetPool) Release() {
	for _, t := range p.targets {
		if t.Texture != nil {
			t.Texture.Release()
			t.Texture = nil
			t.View = nil
		}
	}
}
