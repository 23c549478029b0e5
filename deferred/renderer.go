// Package deferred is the multi-pass renderer: G-buffer, SSAO, direct and
// image-based lighting, reflections, and the post stack, chained over a
// ping-pong color pair and presented through a glfw surface.
package deferred

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/murmur3d/murmur/deferred/core"
	"github.com/murmur3d/murmur/deferred/gpu"
)

const (
	brdfLUTSize        = 512
	irradianceMapSize  = 32
	prefilterBaseSize  = 64
	prefilterMipLevels = 5
	uiFontSize         = 22
)

type Renderer struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Targets *gpu.TargetPool
	Buffers *gpu.BufferManager
	Env     *gpu.EnvMaps
	Chain   *gpu.PassChain
	Text    *core.TextRenderer

	// CacheDir overrides where the BRDF LUT cache lives. Empty means the
	// user cache directory.
	CacheDir string

	// Sky feeds both the analytic sky in the lighting pass and the
	// environment maps precomputed at Init. Set it before Init.
	Sky core.SkyParams
}

func NewRenderer(window *glfw.Window) *Renderer {
	return &Renderer{
		Window: window,
		Sky:    core.DefaultSky(),
	}
}

func (r *Renderer) Init() error {
	// WebGPU Init
	r.Instance = wgpu.CreateInstance(nil)
	r.Surface = r.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(r.Window))

	adapter, err := r.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	r.Adapter = adapter

	r.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	r.Queue = r.Device.GetQueue()

	// Config
	width, height := r.Window.GetFramebufferSize()
	caps := r.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	r.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.Surface.Configure(adapter, r.Device, r.Config)

	r.Text, err = core.NewTextRenderer(uiFontSize)
	if err != nil {
		return err
	}

	r.Targets = gpu.NewTargetPool(r.Device, uint32(width), uint32(height))
	r.Buffers = gpu.NewBufferManager(r.Device)

	// The frame and light buffers must exist before any pass binds them.
	r.Buffers.UpdateFrame(core.FrameParams{}, uint32(width), uint32(height), 0)
	r.Buffers.UpdateLights(nil)

	if err := r.setupEnvMaps(); err != nil {
		return err
	}

	passes, err := r.buildPasses(format)
	if err != nil {
		return err
	}
	r.Chain = gpu.NewPassChain([]string{
		gpu.TargetPrevColor,
		gpu.ResourceBrdf,
		gpu.ResourceIrradiance,
		gpu.ResourcePrefilter,
	}, passes...)

	return nil
}

// setupEnvMaps runs the one-time precompute: BRDF LUT through the on-disk
// cache, irradiance and prefiltered specular straight from the sky params.
// A broken cache degrades to recomputation, never to a startup failure.
func (r *Renderer) setupEnvMaps() error {
	cacheDir := r.CacheDir
	if cacheDir == "" {
		dir, err := core.DefaultCacheDir()
		if err != nil {
			fmt.Printf("WARN: no cache directory, BRDF LUT will recompute every run: %v\n", err)
		} else {
			cacheDir = dir
		}
	}

	cache := core.BrdfCache{Dir: cacheDir}
	lut, computed, storeErr := cache.LUT(brdfLUTSize)
	if computed {
		fmt.Printf("INFO: computed BRDF LUT %dx%d\n", brdfLUTSize, brdfLUTSize)
	}
	if storeErr != nil {
		fmt.Printf("WARN: BRDF LUT cache store failed: %v\n", storeErr)
	}

	irradiance := core.ComputeIrradianceMap(r.Sky, irradianceMapSize)
	prefiltered := core.ComputePrefilteredEnv(r.Sky, prefilterBaseSize, prefilterMipLevels)
	r.Env = r.Buffers.CreateEnvMaps(lut, brdfLUTSize, irradiance, prefiltered)
	return nil
}

func (r *Renderer) buildPasses(surfaceFormat wgpu.TextureFormat) ([]gpu.Pass, error) {
	gbuffer, err := gpu.NewGBufferPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	ssao, err := gpu.NewSSAOPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	lighting, err := gpu.NewLightingPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	ibl, err := gpu.NewIBLPass(r.Device, r.Targets, r.Buffers, r.Env)
	if err != nil {
		return nil, err
	}
	ssr, err := gpu.NewSSRPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	dof, err := gpu.NewDoFPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	bloom, err := gpu.NewBloomPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	glitch, err := gpu.NewGlitchPass(r.Device, r.Targets, r.Buffers)
	if err != nil {
		return nil, err
	}
	ui, err := gpu.NewUIPass(r.Device, r.Targets, r.Buffers, r.Text)
	if err != nil {
		return nil, err
	}
	uiComposite, err := gpu.NewUICompositePass(r.Device, r.Targets)
	if err != nil {
		return nil, err
	}
	tonemap, err := gpu.NewTonemapPass(r.Device, r.Targets, surfaceFormat)
	if err != nil {
		return nil, err
	}

	return []gpu.Pass{
		gbuffer,
		ssao,
		lighting,
		ibl,
		gpu.NewResolvePass(r.Targets),
		ssr,
		dof,
		bloom,
		glitch,
		gpu.NewCopyPrevPass(r.Targets),
		ui,
		uiComposite,
		tonemap,
	}, nil
}

// RenderFrame uploads the frame's scene state and runs the full chain. The
// simulation tick for this frame must be complete before calling.
func (r *Renderer) RenderFrame(scene *core.Scene, params core.FrameParams) {
	// The renderer owns the sky; the scene just carries it to the
	// lighting pass so it matches the precomputed environment maps.
	scene.Sky = r.Sky
	lightCount := r.Buffers.SyncScene(scene)
	r.Buffers.UpdateFrame(params, r.Config.Width, r.Config.Height, lightCount)

	nextTexture, err := r.Surface.GetCurrentTexture()
	if err != nil {
		fmt.Printf("ERROR: GetCurrentTexture failed: %v\n", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		fmt.Printf("ERROR: CreateView failed: %v\n", err)
		return
	}
	defer view.Release()

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		fmt.Printf("ERROR: CreateCommandEncoder failed: %v\n", err)
		return
	}

	r.Chain.Run(encoder, &gpu.FrameResources{
		Targets:     r.Targets,
		Scene:       scene,
		SurfaceView: view,
		Width:       r.Config.Width,
		Height:      r.Config.Height,
	})

	cmd, err := encoder.Finish(nil)
	if err != nil {
		fmt.Printf("ERROR: Encoder Finish failed: %v\n", err)
		return
	}
	r.Queue.Submit(cmd)
	r.Surface.Present()
}

func (r *Renderer) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	r.Config.Width = uint32(w)
	r.Config.Height = uint32(h)
	r.Surface.Configure(r.Adapter, r.Device, r.Config)
	r.Targets.Resize(uint32(w), uint32(h))
	r.Chain.Rebind()
}

// SetPassEnabled toggles a pass by name, false when no such pass exists.
func (r *Renderer) SetPassEnabled(name string, enabled bool) bool {
	p := r.Chain.Pass(name)
	if p == nil {
		return false
	}
	p.SetEnabled(enabled)
	return true
}
