package gpu

import (
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/core"
)

// EnvMaps holds the precomputed environment textures: the BRDF integration
// LUT, the diffuse irradiance cube and the roughness-prefiltered specular
// cube chain.
type EnvMaps struct {
	BrdfTex  *wgpu.Texture
	BrdfView *wgpu.TextureView

	IrradianceTex  *wgpu.Texture
	IrradianceView *wgpu.TextureView

	PrefilterTex  *wgpu.Texture
	PrefilterView *wgpu.TextureView
	PrefilterMips uint32
}

// CreateEnvMaps uploads the CPU-side precompute results.
func (m *BufferManager) CreateEnvMaps(lut []byte, lutSize int, irradiance *core.CubeFloatMap, prefiltered []*core.CubeFloatMap) *EnvMaps {
	env := &EnvMaps{}

	var err error
	env.BrdfTex, err = m.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "BrdfLUT",
		Size:          wgpu.Extent3D{Width: uint32(lutSize), Height: uint32(lutSize), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}
	m.Device.GetQueue().WriteTexture(env.BrdfTex.AsImageCopy(), lut, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(lutSize) * 4,
		RowsPerImage: uint32(lutSize),
	}, &wgpu.Extent3D{Width: uint32(lutSize), Height: uint32(lutSize), DepthOrArrayLayers: 1})
	env.BrdfView, err = env.BrdfTex.CreateView(nil)
	if err != nil {
		panic(err)
	}

	env.IrradianceTex, env.IrradianceView = m.uploadCubeChain("IrradianceCube", []*core.CubeFloatMap{irradiance})
	env.PrefilterTex, env.PrefilterView = m.uploadCubeChain("PrefilterCube", prefiltered)
	env.PrefilterMips = uint32(len(prefiltered))

	return env
}

// uploadCubeChain uploads a mip chain of cube maps as one RGBA16Float cube
// texture, converting texels to half floats.
func (m *BufferManager) uploadCubeChain(label string, chain []*core.CubeFloatMap) (*wgpu.Texture, *wgpu.TextureView) {
	base := chain[0]

	tex, err := m.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(base.Size), Height: uint32(base.Size), DepthOrArrayLayers: 6},
		MipLevelCount: uint32(len(chain)),
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA16Float,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}

	for mip, cm := range chain {
		size := uint32(cm.Size)
		for face := 0; face < 6; face++ {
			halves := packHalf(cm.Faces[face])
			m.Device.GetQueue().WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture:  tex,
					MipLevel: uint32(mip),
					Origin:   wgpu.Origin3D{Z: uint32(face)},
					Aspect:   wgpu.TextureAspectAll,
				},
				halves,
				&wgpu.TextureDataLayout{
					BytesPerRow:  size * 8,
					RowsPerImage: size,
				},
				&wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
			)
		}
	}

	view, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           label + "View",
		Format:          wgpu.TextureFormatRGBA16Float,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   uint32(len(chain)),
		BaseArrayLayer:  0,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		panic(err)
	}

	return tex, view
}

func packHalf(floats []float32) []byte {
	out := make([]byte, len(floats)*2)
	for i, f := range floats {
		h := float16Bits(f)
		out[i*2] = byte(h)
		out[i*2+1] = byte(h >> 8)
	}
	return out
}

// float16Bits truncates a float32 to IEEE 754 half precision. Values out
// of half range clamp to infinity, denormals flush to zero.
func float16Bits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16((b >> 16) & 0x8000)
	exp := int32((b>>23)&0xFF) - 127 + 15
	mant := b & 0x7FFFFF

	if exp <= 0 {
		return sign
	}
	if exp >= 0x1F {
		return sign | 0x7C00
	}
	return sign | uint16(exp<<10) | uint16(mant>>13)
}
