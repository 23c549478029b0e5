package murmur

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTimeline() *TimelineState {
	return &TimelineState{
		values: make(map[string]any),
		logger: NewNopLogger(),
	}
}

func writeTimelineFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timeline.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTimelineLoadAndTypedGetters(t *testing.T) {
	state := newTestTimeline()
	path := writeTimelineFile(t, `{
		"flock.alignment": 1.5,
		"flock.center": [10, 20, 30],
		"pass.bloom.enabled": false
	}`)

	require.True(t, state.load(path))

	assert.Equal(t, float32(1.5), state.Scalar("flock.alignment", 0))
	assert.Equal(t, mgl32.Vec3{10, 20, 30}, state.Vec3("flock.center", mgl32.Vec3{}))
	assert.False(t, state.Bool("pass.bloom.enabled", true))
}

func TestTimelineGettersFallBackToDefaults(t *testing.T) {
	state := newTestTimeline()
	path := writeTimelineFile(t, `{
		"mistyped.scalar": "not a number",
		"short.vec": [1, 2],
		"mixed.vec": [1, "x", 3]
	}`)
	require.True(t, state.load(path))

	assert.Equal(t, float32(7), state.Scalar("absent", 7))
	assert.Equal(t, float32(7), state.Scalar("mistyped.scalar", 7))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, state.Vec3("short.vec", mgl32.Vec3{1, 1, 1}))
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, state.Vec3("mixed.vec", mgl32.Vec3{1, 1, 1}))
	assert.True(t, state.Bool("absent", true))
}

func TestTimelineBrokenFileKeepsOldValues(t *testing.T) {
	state := newTestTimeline()
	path := writeTimelineFile(t, `{"knob": 2}`)
	require.True(t, state.load(path))
	require.Equal(t, float32(2), state.Scalar("knob", 0))

	require.NoError(t, os.WriteFile(path, []byte(`{"knob": broken`), 0o644))
	assert.False(t, state.load(path), "truncated JSON must be rejected")
	assert.Equal(t, float32(2), state.Scalar("knob", 0), "previous values survive a bad reload")

	assert.False(t, state.load(filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, float32(2), state.Scalar("knob", 0))
}

func TestTimelineListenersFireOnFrameLoopAfterReload(t *testing.T) {
	state := newTestTimeline()
	path := writeTimelineFile(t, `{"knob": 1}`)

	var seen []float32
	state.OnValuesChange(func(ts *TimelineState) {
		seen = append(seen, ts.Scalar("knob", -1))
	})
	assert.Equal(t, []float32{-1}, seen, "registration fires immediately with current values")

	require.True(t, state.load(path))
	timelineSystem(state)
	assert.Equal(t, []float32{-1, 1}, seen)

	// No reload since, so the system must not re-fire.
	timelineSystem(state)
	assert.Equal(t, []float32{-1, 1}, seen)

	require.NoError(t, os.WriteFile(path, []byte(`{"knob": 3}`), 0o644))
	require.True(t, state.load(path))
	timelineSystem(state)
	assert.Equal(t, []float32{-1, 1, 3}, seen)
}

func TestTimelineModuleWithoutPathServesDefaults(t *testing.T) {
	app := NewApp()
	app.UseModules(TimelineModule{})
	app.build()

	state := resourceOf[TimelineState](app)
	require.NotNil(t, state)
	assert.Equal(t, float32(4), state.Scalar("anything", 4))
}
