package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// CopyPrevPass snapshots the current color buffer into the previous-frame
// color target. SSR reads that snapshot next frame, so this must run after
// every pass whose output should show up in reflections.
type CopyPrevPass struct {
	PassToggle
	pool *TargetPool
}

func NewCopyPrevPass(pool *TargetPool) *CopyPrevPass {
	return &CopyPrevPass{pool: pool}
}

func (p *CopyPrevPass) Name() string { return "copyPrev" }

func (p *CopyPrevPass) Reads() []string { return []string{TargetColor} }

func (p *CopyPrevPass) Writes() []string { return []string{TargetPrevColor} }

func (p *CopyPrevPass) Rebind() {}

func (p *CopyPrevPass) Encode(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	prev := p.pool.Get(TargetPrevColor)
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  frame.ColorSrc.Texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  prev.Texture,
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
