package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ResolvePass moves the accumulated lighting into the color ping-pong pair,
// where the post-processing passes pick it up. Keeping it separate from the
// lighting passes means any of those can be toggled without starving the
// color chain.
type ResolvePass struct {
	PassToggle
	pool *TargetPool
}

func NewResolvePass(pool *TargetPool) *ResolvePass {
	return &ResolvePass{pool: pool}
}

func (p *ResolvePass) Name() string { return "resolve" }

func (p *ResolvePass) Reads() []string { return []string{TargetLight} }

func (p *ResolvePass) Writes() []string { return []string{TargetColor} }

func (p *ResolvePass) Rebind() {}

func (p *ResolvePass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	light := p.pool.Get(TargetLight)
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  light.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  frame.ColorDst.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              p.pool.Width(),
			Height:             p.pool.Height(),
			DepthOrArrayLayers: 1,
		},
	)
}
