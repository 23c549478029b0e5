package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/murmur3d/murmur"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	preset := flag.String("preset", "dusk",
		fmt.Sprintf("Builtin look (%s) or path to a preset JSON", strings.Join(murmur.BuiltinPresets(), ", ")))
	agents := flag.Int("agents", 0, "Override the preset's agent count")
	timeline := flag.String("timeline", "", "JSON timeline file watched for live tuning")
	hud := flag.Bool("hud", true, "Show the stats overlay")
	flag.Parse()

	look, err := murmur.ResolvePreset(*preset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preset: %v\n", err)
		os.Exit(1)
	}
	if *agents > 0 {
		look.Flock.Count = *agents
	}

	defer glfw.Terminate()

	murmur.NewApp().
		UseModules(
			murmur.LoggingModule{},
			murmur.TimeModule{},
			murmur.WindowModule{Title: "Murmur"},
			murmur.InputModule{},
			murmur.TimelineModule{Path: *timeline},
			murmur.AudioModule{Input: demoBeat()},
			murmur.AssetServerModule{},
			look.Scene,
			murmur.FlockModule{Params: &look.Flock, LightStride: look.LightStride},
			murmur.FollowCamModule{},
			murmur.FlyCamModule{},
			murmur.DeferredModule{ShowHUD: *hud, Sky: &look.Sky},
		).
		Run()
}

// demoBeat is a canned 8 second loop standing in for a live audio feed: a
// decaying kick every half second on the low bands, a slow swell in the
// mids, shimmer up top.
func demoBeat() *murmur.ScriptedAudio {
	const frames = 480
	const kickEvery = 30

	script := &murmur.ScriptedAudio{
		Frames: make([]murmur.AudioFrame, frames),
		Loop:   true,
	}
	for i := range script.Frames {
		t := float64(i) / 60.0
		kick := math.Exp(-float64(i%kickEvery) * 0.18)
		swell := 0.35 + 0.25*math.Sin(t*0.8)
		shimmer := 0.15 + 0.15*math.Sin(t*5.1+1.3)

		script.Frames[i] = murmur.AudioFrame{
			Energy: float32(0.25 + 0.6*kick),
			Bands: [6]float32{
				float32(kick),
				float32(kick * 0.7),
				float32(swell),
				float32(swell * 0.8),
				float32(shimmer),
				float32(shimmer * 0.6),
			},
		}
	}
	return script
}
