package murmur

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeAttackAndDecayAsymmetry(t *testing.T) {
	// Rising levels follow the attack rate.
	assert.InDelta(t, 0.5, envelope(0, 1, 0.5, 0.1), 1e-6)
	// Falling levels follow the slower decay rate.
	assert.InDelta(t, 0.9, envelope(1, 0, 0.5, 0.1), 1e-6)
	// At the target the envelope is a fixed point.
	assert.Equal(t, float32(0.4), envelope(0.4, 0.4, 0.5, 0.1))
}

func TestNullAudioIsSilent(t *testing.T) {
	var in AudioInput = NullAudio{}
	assert.Zero(t, in.Energy())
	assert.Equal(t, [6]float32{}, in.Bands())
}

func TestScriptedAudioStepAndLoop(t *testing.T) {
	script := &ScriptedAudio{
		Frames: []AudioFrame{
			{Energy: 0.1},
			{Energy: 0.2},
			{Energy: 0.3},
		},
		Loop: true,
	}

	var got []float32
	for i := 0; i < 6; i++ {
		got = append(got, script.Energy())
		script.Step()
	}
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.1, 0.2, 0.3}, got)
}

func TestScriptedAudioDrainsWhenNotLooping(t *testing.T) {
	script := &ScriptedAudio{
		Frames: []AudioFrame{{Energy: 0.8, Bands: [6]float32{1, 1, 1, 1, 1, 1}}},
	}

	assert.Equal(t, float32(0.8), script.Energy())
	script.Step()
	assert.Zero(t, script.Energy(), "drained script goes silent")
	assert.Equal(t, [6]float32{}, script.Bands())
	script.Step() // stepping past the end stays silent
	assert.Zero(t, script.Energy())
}

func TestAudioSystemSmoothsAndClamps(t *testing.T) {
	state := &AudioState{
		// Energy far out of range must clamp before smoothing.
		Input:  &ScriptedAudio{Frames: []AudioFrame{{}, {Energy: 5, Bands: [6]float32{2, 0, 0, 0, 0, 0}}}, Loop: true},
		Attack: 0.5,
		Decay:  0.1,
	}

	audioSystem(state)
	assert.InDelta(t, 0.5, state.Loudness, 1e-6, "attack toward the clamped target 1")
	assert.InDelta(t, 0.5, state.Bands[0], 1e-6)

	audioSystem(state) // scripted input loops back to silence
	assert.InDelta(t, 0.45, state.Loudness, 1e-6, "decay back down at the slower rate")

	for i := 0; i < 200; i++ {
		audioSystem(state)
	}
	assert.LessOrEqual(t, state.Loudness, float32(1))
	assert.GreaterOrEqual(t, state.Loudness, float32(0))
}

func TestAudioModuleDefaultsToNullInput(t *testing.T) {
	app := NewApp()
	app.UseModules(AudioModule{})
	app.build()

	state := resourceOf[AudioState](app)
	require.NotNil(t, state)
	assert.IsType(t, NullAudio{}, state.Input)

	app.runFrame()
	assert.Zero(t, state.Loudness)
}
