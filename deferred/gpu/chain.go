package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/murmur3d/murmur/deferred/core"
)

// Pass is one stage of the frame. Reads and Writes declare target names so
// the chain can reject broken orderings up front; Encode records the actual
// GPU work. A disabled pass is skipped entirely, which with the ping-pong
// pair means downstream passes see its input unchanged.
type Pass interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)

	Reads() []string
	Writes() []string

	// Rebind recreates bind groups after the target pool was resized.
	Rebind()

	Encode(encoder *wgpu.CommandEncoder, frame *FrameResources)
}

// PassToggle is the common enabled flag. The zero value is enabled.
type PassToggle struct {
	disabled bool
}

func (t *PassToggle) Enabled() bool { return !t.disabled }

func (t *PassToggle) SetEnabled(enabled bool) { t.disabled = !enabled }

// FrameResources is what a pass gets to work with for one frame. ColorSrc
// and ColorDst are the resolved halves of the ping-pong pair for this pass;
// everything else is reached through Targets by name.
type FrameResources struct {
	Targets  *TargetPool
	ColorSrc *RenderTarget
	ColorDst *RenderTarget

	Scene       *core.Scene
	SurfaceView *wgpu.TextureView

	Width  uint32
	Height uint32
}

// PassChain runs passes in construction order. The prewritten set names
// targets that exist before the chain runs at all: environment textures
// uploaded at startup and cross-frame history like the previous color.
type PassChain struct {
	passes []Pass
}

func NewPassChain(prewritten []string, passes ...Pass) *PassChain {
	validateChain(prewritten, passes)
	return &PassChain{passes: passes}
}

// validateChain walks the declared dependencies in order. Enabled state is
// ignored here: a pass that may be toggled on at runtime must still be fed
// by what precedes it.
func validateChain(prewritten []string, passes []Pass) {
	written := make(map[string]bool, len(prewritten))
	for _, name := range prewritten {
		written[name] = true
	}

	seen := make(map[string]bool, len(passes))
	for _, p := range passes {
		if seen[p.Name()] {
			panic(fmt.Sprintf("render pass chain: duplicate pass %q", p.Name()))
		}
		seen[p.Name()] = true

		for _, r := range p.Reads() {
			if r == TargetSurface {
				panic(fmt.Sprintf("render pass chain: pass %q reads the surface target", p.Name()))
			}
			if !written[r] {
				panic(fmt.Sprintf("render pass chain: pass %q reads %q before any pass writes it", p.Name(), r))
			}
		}
		for _, w := range p.Writes() {
			written[w] = true
		}
	}
}

// Run encodes every enabled pass. A pass that declares a write to the
// color target flips the ping-pong pair afterwards so the next reader
// sees its output.
func (c *PassChain) Run(encoder *wgpu.CommandEncoder, frame *FrameResources) {
	for _, p := range c.passes {
		if !p.Enabled() {
			continue
		}

		frame.ColorSrc = frame.Targets.ColorRead()
		frame.ColorDst = frame.Targets.ColorWrite()

		p.Encode(encoder, frame)

		if writesTarget(p, TargetColor) {
			frame.Targets.SwapColor()
		}
	}
}

// Rebind propagates a resize to every pass.
func (c *PassChain) Rebind() {
	for _, p := range c.passes {
		p.Rebind()
	}
}

// Pass finds a pass by name, nil when absent.
func (c *PassChain) Pass(name string) Pass {
	for _, p := range c.passes {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (c *PassChain) Passes() []Pass { return c.passes }

func writesTarget(p Pass, name string) bool {
	for _, w := range p.Writes() {
		if w == name {
			return true
		}
	}
	return false
}
