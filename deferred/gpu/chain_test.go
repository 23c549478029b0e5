package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPass struct {
	PassToggle
	name   string
	reads  []string
	writes []string

	srcSeen []*RenderTarget
	dstSeen []*RenderTarget
}

func (s *stubPass) Name() string     { return s.name }
func (s *stubPass) Reads() []string  { return s.reads }
func (s *stubPass) Writes() []string { return s.writes }
func (s *stubPass) Rebind()          {}

func (s *stubPass) Encode(_ *wgpu.CommandEncoder, frame *FrameResources) {
	s.srcSeen = append(s.srcSeen, frame.ColorSrc)
	s.dstSeen = append(s.dstSeen, frame.ColorDst)
}

func testPool() *TargetPool {
	ping := &RenderTarget{Name: colorPingName}
	pong := &RenderTarget{Name: colorPongName}
	return &TargetPool{
		targets: map[string]*RenderTarget{
			colorPingName: ping,
			colorPongName: pong,
		},
		colorRead:  ping,
		colorWrite: pong,
	}
}

func TestNewPassChain_ValidOrdering(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPassChain(nil,
			&stubPass{name: "geometry", writes: []string{TargetAlbedo, TargetNormal}},
			&stubPass{name: "shade", reads: []string{TargetAlbedo, TargetNormal}, writes: []string{TargetColor}},
			&stubPass{name: "present", reads: []string{TargetColor}, writes: []string{TargetSurface}},
		)
	})
}

func TestNewPassChain_ReadBeforeWritePanics(t *testing.T) {
	assert.PanicsWithValue(t,
		`render pass chain: pass "shade" reads "ssao" before any pass writes it`,
		func() {
			NewPassChain(nil,
				&stubPass{name: "geometry", writes: []string{TargetAlbedo}},
				&stubPass{name: "shade", reads: []string{TargetAlbedo, TargetSSAO}, writes: []string{TargetColor}},
			)
		})
}

func TestNewPassChain_PrewrittenSatisfiesReads(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPassChain([]string{TargetPrevColor},
			&stubPass{name: "reflect", reads: []string{TargetPrevColor}, writes: []string{TargetColor}},
		)
	})
}

func TestNewPassChain_DisabledPassStillValidated(t *testing.T) {
	broken := &stubPass{name: "shade", reads: []string{TargetSSAO}, writes: []string{TargetColor}}
	broken.SetEnabled(false)

	assert.Panics(t, func() {
		NewPassChain(nil, broken)
	})
}

func TestNewPassChain_DuplicateNamePanics(t *testing.T) {
	assert.PanicsWithValue(t,
		`render pass chain: duplicate pass "blur"`,
		func() {
			NewPassChain(nil,
				&stubPass{name: "blur", writes: []string{TargetSSAO}},
				&stubPass{name: "blur", reads: []string{TargetSSAO}, writes: []string{TargetColor}},
			)
		})
}

func TestNewPassChain_SurfaceReadPanics(t *testing.T) {
	assert.PanicsWithValue(t,
		`render pass chain: pass "feedback" reads the surface target`,
		func() {
			NewPassChain(nil,
				&stubPass{name: "feedback", reads: []string{TargetSurface}, writes: []string{TargetColor}},
			)
		})
}

func TestPassChain_PingPongHandsOutputDownstream(t *testing.T) {
	pool := testPool()
	ping := pool.colorRead
	pong := pool.colorWrite

	a := &stubPass{name: "a", writes: []string{TargetColor}}
	b := &stubPass{name: "b", reads: []string{TargetColor}, writes: []string{TargetColor}}
	c := &stubPass{name: "c", reads: []string{TargetColor}, writes: []string{TargetSurface}}
	chain := NewPassChain(nil, a, b, c)

	chain.Run(nil, &FrameResources{Targets: pool})

	require.Len(t, a.dstSeen, 1)
	assert.Same(t, pong, a.dstSeen[0])
	assert.Same(t, pong, b.srcSeen[0], "b must read what a wrote")
	assert.Same(t, ping, b.dstSeen[0])
	assert.Same(t, ping, c.srcSeen[0], "c must read what b wrote")
}

func TestPassChain_DisabledPassIsPassThrough(t *testing.T) {
	pool := testPool()
	pong := pool.colorWrite

	a := &stubPass{name: "a", writes: []string{TargetColor}}
	b := &stubPass{name: "b", reads: []string{TargetColor}, writes: []string{TargetColor}}
	c := &stubPass{name: "c", reads: []string{TargetColor}, writes: []string{TargetSurface}}
	chain := NewPassChain(nil, a, b, c)

	b.SetEnabled(false)
	chain.Run(nil, &FrameResources{Targets: pool})

	assert.Empty(t, b.srcSeen, "disabled pass must not encode")
	require.Len(t, c.srcSeen, 1)
	assert.Same(t, pong, c.srcSeen[0], "downstream must see the upstream output unchanged")
}

func TestPassChain_NonColorWriterDoesNotSwap(t *testing.T) {
	pool := testPool()
	ping := pool.colorRead

	occ := &stubPass{name: "occlusion", writes: []string{TargetSSAO}}
	shade := &stubPass{name: "shade", reads: []string{TargetSSAO}, writes: []string{TargetColor}}
	chain := NewPassChain(nil, occ, shade)

	chain.Run(nil, &FrameResources{Targets: pool})

	require.Len(t, shade.srcSeen, 1)
	assert.Same(t, ping, shade.srcSeen[0])
}

func TestPassChain_PassLookupAndToggle(t *testing.T) {
	a := &stubPass{name: "a", writes: []string{TargetColor}}
	chain := NewPassChain(nil, a)

	require.NotNil(t, chain.Pass("a"))
	assert.Nil(t, chain.Pass("missing"))

	chain.Pass("a").SetEnabled(false)
	assert.False(t, a.Enabled())
	chain.Pass("a").SetEnabled(true)
	assert.True(t, a.Enabled())
}
