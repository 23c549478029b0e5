package murmur

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	KeyA int = iota
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeySpace
	KeyEnter
	KeyEscape
	KeyTab
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyMinus
	KeyEqual
	KeyShift
	KeyControl
	KeyLeftAlt
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

// Input is the polled keyboard and mouse state for the current frame.
// JustPressed/JustReleased are edges relative to the previous frame.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64

	// MouseCaptured hides the cursor and feeds deltas; consumers toggle it.
	MouseCaptured bool
}

func (in *Input) applyEdge(key int, pressed bool) {
	in.JustPressed[key] = pressed && !in.Pressed[key]
	in.JustReleased[key] = !pressed && in.Pressed[key]
	in.Pressed[key] = pressed
}

// InputModule polls input state once per frame. It must be installed after
// WindowModule; the window events system polls glfw, this one only samples.
type InputModule struct{}

func (InputModule) Install(app *App, cmd *Commands) {
	if resourceOf[WindowState](app) == nil {
		panic("input module: WindowModule must be installed first")
	}
	cmd.AddResources(&Input{})
	cmd.UseSystem(
		System(inputSystem).
			InStage(PreUpdate),
	)
}

func inputSystem(s *WindowState, input *Input) {
	win := s.Window()

	for key, glfwKey := range keyToGlfw {
		input.applyEdge(key, win.GetKey(glfwKey) == glfw.Press)
	}
	for btn, glfwBtn := range mouseToGlfw {
		input.applyEdge(btn, win.GetMouseButton(glfwBtn) == glfw.Press)
	}

	mx, my := win.GetCursorPos()
	if input.MouseCaptured {
		input.MouseDeltaX = mx - input.MouseX
		input.MouseDeltaY = my - input.MouseY
	} else {
		input.MouseDeltaX = 0
		input.MouseDeltaY = 0
	}
	input.MouseX = mx
	input.MouseY = my

	if input.MouseCaptured {
		win.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

var keyToGlfw = map[int]glfw.Key{
	KeyA:       glfw.KeyA,
	KeyB:       glfw.KeyB,
	KeyC:       glfw.KeyC,
	KeyD:       glfw.KeyD,
	KeyE:       glfw.KeyE,
	KeyF:       glfw.KeyF,
	KeyG:       glfw.KeyG,
	KeyH:       glfw.KeyH,
	KeyI:       glfw.KeyI,
	KeyJ:       glfw.KeyJ,
	KeyK:       glfw.KeyK,
	KeyL:       glfw.KeyL,
	KeyM:       glfw.KeyM,
	KeyN:       glfw.KeyN,
	KeyO:       glfw.KeyO,
	KeyP:       glfw.KeyP,
	KeyQ:       glfw.KeyQ,
	KeyR:       glfw.KeyR,
	KeyS:       glfw.KeyS,
	KeyT:       glfw.KeyT,
	KeyU:       glfw.KeyU,
	KeyV:       glfw.KeyV,
	KeyW:       glfw.KeyW,
	KeyX:       glfw.KeyX,
	KeyY:       glfw.KeyY,
	KeyZ:       glfw.KeyZ,
	Key0:       glfw.Key0,
	Key1:       glfw.Key1,
	Key2:       glfw.Key2,
	Key3:       glfw.Key3,
	Key4:       glfw.Key4,
	Key5:       glfw.Key5,
	Key6:       glfw.Key6,
	Key7:       glfw.Key7,
	Key8:       glfw.Key8,
	Key9:       glfw.Key9,
	KeySpace:   glfw.KeySpace,
	KeyEnter:   glfw.KeyEnter,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyLeft:    glfw.KeyLeft,
	KeyRight:   glfw.KeyRight,
	KeyUp:      glfw.KeyUp,
	KeyDown:    glfw.KeyDown,
	KeyMinus:   glfw.KeyMinus,
	KeyEqual:   glfw.KeyEqual,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
	KeyLeftAlt: glfw.KeyLeftAlt,
}

var mouseToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}
