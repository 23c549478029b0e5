package murmur

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/murmur3d/murmur/deferred"
	"github.com/murmur3d/murmur/deferred/core"
	"github.com/murmur3d/murmur/deferred/gpu"
)

// RenderState owns the deferred renderer plus the one piece of cross-frame
// bookkeeping the passes need from the app side: last frame's
// view-projection, fed back in for reprojection.
type RenderState struct {
	Renderer *deferred.Renderer

	// ShowHUD overlays frame stats as screen text.
	ShowHUD bool

	prevViewProj mgl32.Mat4
	hasPrev      bool
}

// DeferredModule wires the renderer into the frame loop. It requires
// WindowModule and SceneModule; followed camera, audio and timeline hook in
// automatically when their modules are present.
type DeferredModule struct {
	// CacheDir overrides the BRDF LUT cache location, mostly for tests.
	CacheDir string
	ShowHUD  bool

	// Sky replaces the default sky before the environment maps are
	// precomputed. Nil keeps core.DefaultSky.
	Sky *core.SkyParams
}

// UseDeferred installs the window and the deferred renderer together, the
// common case for demos and tools. Install order follows call order, so
// register the modules that feed the renderer before calling this.
func (app *App) UseDeferred(width, height int, title string) *App {
	return app.UseModules(
		WindowModule{Width: width, Height: height, Title: title},
		DeferredModule{},
	)
}

func (m DeferredModule) Install(app *App, cmd *Commands) {
	if resourceOf[RenderState](app) != nil {
		panic("deferred module: a renderer is already installed")
	}
	ws := resourceOf[WindowState](app)
	if ws == nil {
		panic("deferred module: WindowModule must be installed first")
	}

	renderer := deferred.NewRenderer(ws.Window())
	renderer.CacheDir = m.CacheDir
	if m.Sky != nil {
		renderer.Sky = *m.Sky
	}
	if err := renderer.Init(); err != nil {
		panic(fmt.Errorf("deferred module: renderer init: %w", err))
	}

	state := &RenderState{
		Renderer: renderer,
		ShowHUD:  m.ShowHUD,
	}
	cmd.AddResources(state)
	cmd.UseSystem(
		System(renderSystem).
			InStage(Render),
	)

	if timeline := resourceOf[TimelineState](app); timeline != nil {
		bindRenderTunables(renderer, timeline)
	}
	if input := resourceOf[Input](app); input != nil {
		cmd.UseSystem(
			System(renderHotkeysSystem).
				InStage(PreUpdate),
		)
	}
}

// passToggleKeys maps debug keys to pass names, digits in chain order.
var passToggleKeys = map[int]string{
	Key1: "ssao",
	Key2: "ssr",
	Key3: "dof",
	Key4: "bloom",
	Key5: "glitch",
}

func renderHotkeysSystem(input *Input, rs *RenderState, cmd *Commands) {
	if input.JustPressed[KeyEscape] {
		cmd.Quit()
	}
	if input.JustPressed[KeyH] {
		rs.ShowHUD = !rs.ShowHUD
	}
	for key, name := range passToggleKeys {
		if input.JustPressed[key] {
			if p := rs.Renderer.Chain.Pass(name); p != nil {
				p.SetEnabled(!p.Enabled())
			}
		}
	}
}

// bindRenderTunables exposes every pass toggle and the hot post-processing
// knobs under stable timeline names, e.g. "pass.bloom.enabled" or
// "post.exposure". Each refresh reads the current value as its own default,
// so keys absent from the file leave the pass untouched.
func bindRenderTunables(renderer *deferred.Renderer, timeline *TimelineState) {
	timeline.OnValuesChange(func(t *TimelineState) {
		for _, p := range renderer.Chain.Passes() {
			p.SetEnabled(t.Bool("pass."+p.Name()+".enabled", p.Enabled()))
		}

		if tonemap, ok := renderer.Chain.Pass("tonemap").(*gpu.TonemapPass); ok {
			tonemap.Exposure = t.Scalar("post.exposure", tonemap.Exposure)
		}
		if bloom, ok := renderer.Chain.Pass("bloom").(*gpu.BloomPass); ok {
			bloom.Threshold = t.Scalar("post.bloomThreshold", bloom.Threshold)
			bloom.Intensity = t.Scalar("post.bloomIntensity", bloom.Intensity)
		}
		if dof, ok := renderer.Chain.Pass("dof").(*gpu.DoFPass); ok {
			dof.FocusDistance = t.Scalar("post.focusDistance", dof.FocusDistance)
			dof.FocusRange = t.Scalar("post.focusRange", dof.FocusRange)
		}
		if glitch, ok := renderer.Chain.Pass("glitch").(*gpu.GlitchPass); ok {
			glitch.Strength = t.Scalar("post.glitchStrength", glitch.Strength)
		}
	})
}

func renderSystem(
	t *Time,
	ws *WindowState,
	rs *RenderState,
	sceneState *SceneState,
	camera *core.CameraState,
	audio *AudioState,
) {
	// Minimized windows report a zero framebuffer; skip the frame rather
	// than feed a degenerate aspect into the projection.
	if ws.Width <= 0 || ws.Height <= 0 {
		return
	}
	if ws.Resized {
		rs.Renderer.Resize(ws.Width, ws.Height)
	}

	scene := sceneState.Scene
	aspect := float32(ws.Width) / float32(ws.Height)
	view := camera.View()
	proj := camera.Projection(aspect)
	viewProj := proj.Mul4(view)

	// First frame has no history; reprojecting against the current matrix
	// yields zero motion instead of garbage.
	if !rs.hasPrev {
		rs.prevViewProj = viewProj
		rs.hasPrev = true
	}

	params := core.FrameParams{
		Time:         t.ElapsedSeconds(),
		Dt:           t.DtSeconds(),
		Loudness:     audio.Loudness,
		Bands:        audio.Bands,
		View:         view,
		Proj:         proj,
		PrevViewProj: rs.prevViewProj,
		CamPos:       camera.Position,
	}

	scene.ClearText()
	if rs.ShowHUD {
		drawHUD(scene, t, audio)
	}

	rs.Renderer.RenderFrame(scene, params)
	rs.prevViewProj = viewProj
}

func drawHUD(scene *core.Scene, t *Time, audio *AudioState) {
	fps := float32(0)
	if dt := t.DtSeconds(); dt > 0 {
		fps = 1 / dt
	}

	agents := 0
	for _, batch := range scene.Batches {
		agents += batch.Count()
	}

	white := [4]float32{0.92, 0.95, 1, 0.9}
	scene.DrawText(fmt.Sprintf("%.0f fps", fps), 16, 16, 1, white)
	scene.DrawText(fmt.Sprintf("%d instances  %d lights", agents, len(scene.Lights)), 16, 42, 1, white)
	scene.DrawText(fmt.Sprintf("loudness %.2f", audio.Loudness), 16, 68, 1, white)
}
