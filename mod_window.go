package murmur

import (
	"reflect"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState is the single shared GLFW window resource. Renderers and input
// consumers read it; only the window module mutates it.
type WindowState struct {
	windowGlfw  *glfw.Window
	windowTitle string

	// Framebuffer size in pixels, tracked every frame.
	Width  int
	Height int

	// Resized is set for exactly one frame after the framebuffer size changes.
	Resized bool
}

func (ws *WindowState) Window() *glfw.Window {
	return ws.windowGlfw
}

// WindowModule creates the shared window. Install is idempotent: if a
// WindowState resource already exists it is reused, preserving the
// single-window invariant.
type WindowModule struct {
	Width  int
	Height int
	Title  string
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	t := reflect.TypeOf((*WindowState)(nil)).Elem()
	if _, ok := app.resources[t]; ok {
		return
	}

	if m.Width <= 0 {
		m.Width = 1280
	}
	if m.Height <= 0 {
		m.Height = 720
	}
	if m.Title == "" {
		m.Title = "Murmur"
	}

	ws := createWindowState(m.Width, m.Height, m.Title)
	cmd.AddResources(ws)

	app.UseSystem(
		System(windowEventsSystem).
			InStage(PreUpdate),
	)
}

func createWindowState(windowWidth int, windowHeight int, windowTitle string) *WindowState {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Important: tell GLFW we don't want OpenGL
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(windowWidth, windowHeight, windowTitle, nil, nil)
	if err != nil {
		panic(err)
	}

	fbWidth, fbHeight := win.GetFramebufferSize()

	return &WindowState{
		windowGlfw:  win,
		windowTitle: windowTitle,
		Width:       fbWidth,
		Height:      fbHeight,
	}
}

func windowEventsSystem(state *WindowState, cmd *Commands) {
	glfw.PollEvents()

	if state.windowGlfw.ShouldClose() {
		cmd.Quit()
		return
	}

	w, h := state.windowGlfw.GetFramebufferSize()
	state.Resized = w != state.Width || h != state.Height
	if state.Resized {
		state.Width = w
		state.Height = h
	}
}
