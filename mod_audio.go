package murmur

// AudioInput is the playback collaborator. The app only ever samples levels;
// decoding and device output live behind this interface, and a source that
// fails to load is replaced by NullAudio so the visuals keep running muted.
type AudioInput interface {
	// Energy is the overall loudness in [0,1].
	Energy() float32
	// Bands are six frequency band levels in [0,1], low to high.
	Bands() [6]float32
}

// NullAudio is the muted fallback.
type NullAudio struct{}

func (NullAudio) Energy() float32   { return 0 }
func (NullAudio) Bands() [6]float32 { return [6]float32{} }

// AudioFrame is one precomputed sample for scripted playback.
type AudioFrame struct {
	Energy float32
	Bands  [6]float32
}

// ScriptedAudio replays a fixed envelope, one frame per tick. Used by tests
// and offline captures; a drained non-looping script goes silent.
type ScriptedAudio struct {
	Frames []AudioFrame
	Loop   bool

	cursor int
}

func (s *ScriptedAudio) current() AudioFrame {
	if len(s.Frames) == 0 || s.cursor >= len(s.Frames) {
		return AudioFrame{}
	}
	return s.Frames[s.cursor]
}

func (s *ScriptedAudio) Energy() float32   { return s.current().Energy }
func (s *ScriptedAudio) Bands() [6]float32 { return s.current().Bands }

// Step advances to the next frame; the audio system calls it once per tick.
func (s *ScriptedAudio) Step() {
	if len(s.Frames) == 0 {
		return
	}
	s.cursor++
	if s.cursor >= len(s.Frames) && s.Loop {
		s.cursor = 0
	}
}

// AudioState holds the attack/decay smoothed levels the rest of the app
// reads. Raw input levels jump per tick; the envelope keeps the shader
// parameters from strobing.
type AudioState struct {
	Input AudioInput

	Loudness float32
	Bands    [6]float32

	Attack float32
	Decay  float32
}

type AudioModule struct {
	Input  AudioInput
	Attack float32
	Decay  float32
}

func (m AudioModule) Install(app *App, cmd *Commands) {
	if m.Input == nil {
		m.Input = NullAudio{}
	}
	if m.Attack <= 0 {
		m.Attack = 0.55
	}
	if m.Decay <= 0 {
		m.Decay = 0.12
	}

	cmd.AddResources(&AudioState{
		Input:  m.Input,
		Attack: m.Attack,
		Decay:  m.Decay,
	})
	cmd.UseSystem(
		System(audioSystem).
			InStage(PreUpdate),
	)
}

func audioSystem(audio *AudioState) {
	if stepper, ok := audio.Input.(interface{ Step() }); ok {
		stepper.Step()
	}

	audio.Loudness = envelope(audio.Loudness, clampf(audio.Input.Energy(), 0, 1), audio.Attack, audio.Decay)
	bands := audio.Input.Bands()
	for i := range bands {
		audio.Bands[i] = envelope(audio.Bands[i], clampf(bands[i], 0, 1), audio.Attack, audio.Decay)
	}
}

func envelope(current, target, attack, decay float32) float32 {
	if target > current {
		return current + (target-current)*attack
	}
	return current + (target-current)*decay
}
