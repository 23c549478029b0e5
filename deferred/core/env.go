package core

import (
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
)

// SkyParams drives the procedural environment used for the lighting
// background and as the source for irradiance/prefiltered map generation.
// SunDirection points from the scene toward the sun.
type SkyParams struct {
	ZenithColor  mgl32.Vec3
	HorizonColor mgl32.Vec3
	GroundColor  mgl32.Vec3
	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3
	SunIntensity float32
}

func DefaultSky() SkyParams {
	return SkyParams{
		ZenithColor:  mgl32.Vec3{0.05, 0.07, 0.20},
		HorizonColor: mgl32.Vec3{0.85, 0.38, 0.30},
		GroundColor:  mgl32.Vec3{0.04, 0.03, 0.05},
		SunDirection: mgl32.Vec3{0.35, 0.40, 0.25}.Normalize(),
		SunColor:     mgl32.Vec3{1.0, 0.85, 0.65},
		SunIntensity: 4.0,
	}
}

// Sample evaluates the sky radiance for a world direction.
func (s SkyParams) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	if dir.Len() < 1e-8 {
		return s.HorizonColor
	}
	d := dir.Normalize()
	y := d.Y()

	var base mgl32.Vec3
	if y >= 0 {
		// Quadratic falloff keeps the horizon band wide.
		t := (1 - y) * (1 - y)
		base = lerpVec3(s.ZenithColor, s.HorizonColor, t)
	} else {
		t := -y * 3
		if t > 1 {
			t = 1
		}
		base = lerpVec3(s.HorizonColor, s.GroundColor, t)
	}

	sunDot := d.Dot(s.SunDirection)
	if sunDot > 0 {
		disc := pow32(sunDot, 384) * s.SunIntensity
		halo := pow32(sunDot, 8) * 0.25
		base = base.Add(s.SunColor.Mul(disc + halo))
	}
	return base
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func pow32(v, e float32) float32 {
	return float32(math.Pow(float64(v), float64(e)))
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func sincos32(v float32) (float32, float32) {
	s, c := math.Sincos(float64(v))
	return float32(s), float32(c)
}

// ---------------------------------------------------------------------------
// BRDF integration LUT

// BrdfLUTVersion bumps the cache key when the integration changes.
const BrdfLUTVersion = 1

// BrdfSampleCount is fixed; the LUT must be byte-identical across runs.
const BrdfSampleCount = 1024

func BrdfLUTKey(size int) string {
	return fmt.Sprintf("brdfLUT_v%d_%d", BrdfLUTVersion, size)
}

// ComputeBrdfLUT integrates the split-sum GGX environment BRDF into an
// RGBA8 image of size*size texels: scale in R, bias in G. The sampling is
// a Hammersley sequence with no random seed, so output is deterministic.
func ComputeBrdfLUT(size int) []byte {
	out := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		roughness := (float32(y) + 0.5) / float32(size)
		for x := 0; x < size; x++ {
			nDotV := (float32(x) + 0.5) / float32(size)
			a, b := integrateBrdf(nDotV, roughness)

			idx := (y*size + x) * 4
			out[idx] = quantizeUnit(a)
			out[idx+1] = quantizeUnit(b)
			out[idx+2] = 0
			out[idx+3] = 255
		}
	}
	return out
}

func quantizeUnit(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

func integrateBrdf(nDotV, roughness float32) (float32, float32) {
	v := mgl32.Vec3{sqrt32(1 - nDotV*nDotV), 0, nDotV}
	n := mgl32.Vec3{0, 0, 1}

	var a, b float32
	for i := uint32(0); i < BrdfSampleCount; i++ {
		x1, x2 := hammersley(i, BrdfSampleCount)
		h := importanceSampleGGX(x1, x2, roughness, n)
		l := h.Mul(2 * v.Dot(h)).Sub(v)

		nDotL := l.Z()
		if nDotL <= 0 {
			continue
		}
		nDotH := h.Z()
		if nDotH < 0 {
			nDotH = 0
		}
		vDotH := v.Dot(h)
		if vDotH < 0 {
			vDotH = 0
		}

		g := geometrySmithIBL(nDotV, nDotL, roughness)
		if nDotH*nDotV <= 0 {
			continue
		}
		gVis := g * vDotH / (nDotH * nDotV)
		fc := pow32(1-vDotH, 5)

		a += (1 - fc) * gVis
		b += fc * gVis
	}
	return a / BrdfSampleCount, b / BrdfSampleCount
}

func radicalInverseVdC(bits uint32) float32 {
	bits = (bits << 16) | (bits >> 16)
	bits = ((bits & 0x55555555) << 1) | ((bits & 0xAAAAAAAA) >> 1)
	bits = ((bits & 0x33333333) << 2) | ((bits & 0xCCCCCCCC) >> 2)
	bits = ((bits & 0x0F0F0F0F) << 4) | ((bits & 0xF0F0F0F0) >> 4)
	bits = ((bits & 0x00FF00FF) << 8) | ((bits & 0xFF00FF00) >> 8)
	return float32(bits) * 2.3283064365386963e-10
}

func hammersley(i, n uint32) (float32, float32) {
	return float32(i) / float32(n), radicalInverseVdC(i)
}

func importanceSampleGGX(x1, x2, roughness float32, n mgl32.Vec3) mgl32.Vec3 {
	a := roughness * roughness

	phi := 2 * float32(math.Pi) * x1
	cosTheta := sqrt32((1 - x2) / (1 + (a*a-1)*x2))
	sinTheta := sqrt32(1 - cosTheta*cosTheta)

	sinPhi, cosPhi := sincos32(phi)
	h := mgl32.Vec3{sinTheta * cosPhi, sinTheta * sinPhi, cosTheta}

	// Tangent space around n.
	up := mgl32.Vec3{0, 0, 1}
	if n.Z() > 0.999 || n.Z() < -0.999 {
		up = mgl32.Vec3{1, 0, 0}
	}
	tangent := up.Cross(n).Normalize()
	bitangent := n.Cross(tangent)

	return tangent.Mul(h.X()).Add(bitangent.Mul(h.Y())).Add(n.Mul(h.Z())).Normalize()
}

// geometrySmithIBL uses k = roughness²/2, the IBL remapping.
func geometrySmithIBL(nDotV, nDotL, roughness float32) float32 {
	a := roughness * roughness
	k := a / 2
	gv := nDotV / (nDotV*(1-k) + k)
	gl := nDotL / (nDotL*(1-k) + k)
	return gv * gl
}

// ---------------------------------------------------------------------------
// LUT cache

// BrdfCache persists the LUT between runs: one file per key holding the
// base64-encoded raw RGBA bytes. A payload whose decoded length is not
// exactly size*size*4 is treated as absent.
type BrdfCache struct {
	Dir string
}

// DefaultCacheDir places entries under the user cache directory.
func DefaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "murmur"), nil
}

// Load returns the cached LUT bytes, or ok=false for any absence, decode
// failure, or length mismatch. Never an error: corruption means recompute.
func (c BrdfCache) Load(size int) ([]byte, bool) {
	if c.Dir == "" {
		return nil, false
	}
	raw, err := os.ReadFile(filepath.Join(c.Dir, BrdfLUTKey(size)))
	if err != nil {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return nil, false
	}
	if len(data) != size*size*4 {
		return nil, false
	}
	return data, true
}

// Store (re)writes the entry. Callers treat a failed store as a warning;
// the computed LUT is still usable this run.
func (c BrdfCache) Store(size int, data []byte) error {
	if c.Dir == "" {
		return fmt.Errorf("brdf cache: no directory configured")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return os.WriteFile(filepath.Join(c.Dir, BrdfLUTKey(size)), []byte(encoded), 0o644)
}

// LUT returns the cached table when valid, otherwise computes and re-stores
// it. computed reports which path ran; storeErr is nil unless a fresh result
// could not be persisted.
func (c BrdfCache) LUT(size int) (data []byte, computed bool, storeErr error) {
	if cached, ok := c.Load(size); ok {
		return cached, false, nil
	}
	data = ComputeBrdfLUT(size)
	return data, true, c.Store(size, data)
}

// ---------------------------------------------------------------------------
// Irradiance and prefiltered environment

// CubeFloatMap is a CPU-side cube map: six faces of RGBA float32 texels in
// +X, -X, +Y, -Y, +Z, -Z order.
type CubeFloatMap struct {
	Size  int
	Faces [6][]float32
}

func newCubeFloatMap(size int) *CubeFloatMap {
	cm := &CubeFloatMap{Size: size}
	for f := range cm.Faces {
		cm.Faces[f] = make([]float32, size*size*4)
	}
	return cm
}

// cubeDirection maps a face texel to its world direction, wgpu face order.
func cubeDirection(face, x, y, size int) mgl32.Vec3 {
	u := (float32(x)+0.5)/float32(size)*2 - 1
	v := (float32(y)+0.5)/float32(size)*2 - 1

	var dir mgl32.Vec3
	switch face {
	case 0:
		dir = mgl32.Vec3{1, -v, -u}
	case 1:
		dir = mgl32.Vec3{-1, -v, u}
	case 2:
		dir = mgl32.Vec3{u, 1, v}
	case 3:
		dir = mgl32.Vec3{u, -1, -v}
	case 4:
		dir = mgl32.Vec3{u, -v, 1}
	case 5:
		dir = mgl32.Vec3{-u, -v, -1}
	}
	return dir.Normalize()
}

// irradianceSampleDelta is the fixed angular step of the cosine-weighted
// hemisphere integration.
const irradianceSampleDelta = 0.125

// ComputeIrradianceMap convolves the sky into a diffuse irradiance cube.
func ComputeIrradianceMap(sky SkyParams, size int) *CubeFloatMap {
	cm := newCubeFloatMap(size)
	for face := 0; face < 6; face++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				n := cubeDirection(face, x, y, size)

				up := mgl32.Vec3{0, 1, 0}
				if n.Y() > 0.999 || n.Y() < -0.999 {
					up = mgl32.Vec3{1, 0, 0}
				}
				right := up.Cross(n).Normalize()
				up = n.Cross(right)

				var irradiance mgl32.Vec3
				samples := 0
				for phi := float32(0); phi < 2*math.Pi; phi += irradianceSampleDelta {
					for theta := float32(0); theta < math.Pi/2; theta += irradianceSampleDelta {
						sinT, cosT := sincos32(theta)
						sinP, cosP := sincos32(phi)

						tangentDir := mgl32.Vec3{sinT * cosP, sinT * sinP, cosT}
						worldDir := right.Mul(tangentDir.X()).
							Add(up.Mul(tangentDir.Y())).
							Add(n.Mul(tangentDir.Z()))

						irradiance = irradiance.Add(sky.Sample(worldDir).Mul(cosT * sinT))
						samples++
					}
				}
				irradiance = irradiance.Mul(float32(math.Pi) / float32(samples))

				idx := (y*size + x) * 4
				cm.Faces[face][idx] = irradiance.X()
				cm.Faces[face][idx+1] = irradiance.Y()
				cm.Faces[face][idx+2] = irradiance.Z()
				cm.Faces[face][idx+3] = 1
			}
		}
	}
	return cm
}

const prefilterSampleCount = 128

// ComputePrefilteredEnv builds the roughness mip chain of the specular
// environment: mip m has roughness m/(mips-1). Mip 0 samples the sky
// directly since roughness 0 degenerates to a mirror.
func ComputePrefilteredEnv(sky SkyParams, baseSize, mips int) []*CubeFloatMap {
	chain := make([]*CubeFloatMap, mips)
	for mip := 0; mip < mips; mip++ {
		size := baseSize >> mip
		if size < 1 {
			size = 1
		}
		roughness := float32(mip) / float32(mips-1)
		cm := newCubeFloatMap(size)

		for face := 0; face < 6; face++ {
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					n := cubeDirection(face, x, y, size)
					var color mgl32.Vec3

					if mip == 0 {
						color = sky.Sample(n)
					} else {
						var weight float32
						for i := uint32(0); i < prefilterSampleCount; i++ {
							x1, x2 := hammersley(i, prefilterSampleCount)
							h := importanceSampleGGX(x1, x2, roughness, n)
							l := h.Mul(2 * n.Dot(h)).Sub(n)
							nDotL := n.Dot(l)
							if nDotL <= 0 {
								continue
							}
							color = color.Add(sky.Sample(l).Mul(nDotL))
							weight += nDotL
						}
						if weight > 0 {
							color = color.Mul(1 / weight)
						}
					}

					idx := (y*size + x) * 4
					cm.Faces[face][idx] = color.X()
					cm.Faces[face][idx+1] = color.Y()
					cm.Faces[face][idx+2] = color.Z()
					cm.Faces[face][idx+3] = 1
				}
			}
		}
		chain[mip] = cm
	}
	return chain
}
