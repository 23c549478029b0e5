package murmur

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl32"
)

// TimelineState is the live tuning registry: named properties decoded from a
// JSON file and re-read whenever the file changes on disk. Flow is strictly
// one-way, file to app; listeners fire on the frame loop, never on the
// watcher goroutine.
type TimelineState struct {
	mu     sync.Mutex
	values map[string]any
	dirty  bool

	listeners []func(*TimelineState)
	logger    Logger
}

// OnValuesChange registers a listener fired after every successful reload
// (and immediately on registration so consumers start from file state).
func (t *TimelineState) OnValuesChange(fn func(*TimelineState)) {
	t.listeners = append(t.listeners, fn)
	fn(t)
}

// Scalar returns a numeric property, or def when absent or not a number.
func (t *TimelineState) Scalar(name string, def float32) float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.values[name].(float64); ok {
		return float32(v)
	}
	return def
}

// Vec3 returns a three-element numeric array property.
func (t *TimelineState) Vec3(name string, def mgl32.Vec3) mgl32.Vec3 {
	t.mu.Lock()
	defer t.mu.Unlock()
	arr, ok := t.values[name].([]any)
	if !ok || len(arr) != 3 {
		return def
	}
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, ok := arr[i].(float64)
		if !ok {
			return def
		}
		out[i] = float32(f)
	}
	return out
}

// Bool returns a boolean property, or def when absent or mistyped.
func (t *TimelineState) Bool(name string, def bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.values[name].(bool); ok {
		return v
	}
	return def
}

// load replaces the registry from the file. A broken or missing file keeps
// the previous values; tuning mistakes must never take the app down.
func (t *TimelineState) load(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		t.logger.Warnf("timeline: read %s: %v", path, err)
		return false
	}
	decoded := make(map[string]any)
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.logger.Warnf("timeline: decode %s: %v", path, err)
		return false
	}

	t.mu.Lock()
	t.values = decoded
	t.dirty = true
	t.mu.Unlock()
	return true
}

func (t *TimelineState) consumeDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.dirty
	t.dirty = false
	return d
}

// TimelineModule wires the registry and its file watcher. An empty Path
// yields a registry that only ever serves defaults.
type TimelineModule struct {
	Path string
}

func (m TimelineModule) Install(app *App, cmd *Commands) {
	state := &TimelineState{
		values: make(map[string]any),
		logger: app.Logger(),
	}
	cmd.AddResources(state)
	cmd.UseSystem(
		System(timelineSystem).
			InStage(PreUpdate),
	)

	if m.Path == "" {
		return
	}

	state.load(m.Path)
	go watchTimeline(state, m.Path)
}

// watchTimeline watches the file's directory rather than the file itself;
// editors that save by rename would otherwise detach the watch.
func watchTimeline(state *TimelineState, path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		state.logger.Warnf("timeline: watcher init: %v", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		state.logger.Warnf("timeline: watch %s: %v", dir, err)
		return
	}
	target := filepath.Clean(path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if state.load(path) {
					state.logger.Infof("timeline: reloaded %s", path)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			state.logger.Warnf("timeline: watcher: %v", err)
		}
	}
}

// timelineSystem fires change listeners on the frame loop after a reload.
func timelineSystem(timeline *TimelineState) {
	if !timeline.consumeDirty() {
		return
	}
	for _, fn := range timeline.listeners {
		fn(timeline)
	}
}
