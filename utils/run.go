package utils

import (
	"log"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/input"
)

// App is one example program.
type App interface {
	// Init loads the example's resources into s and returns the pipeline
	// every frame binds.
	Init(s *Session) (gpu.GraphicsPipeline, error)
	// HandleEvent reports whether ev should end the program.
	HandleEvent(ev input.Event) bool
	Update()
	Draw(f *Frame)
}

// Run opens a session, initializes app and renders frames until a quit
// event arrives or app asks to stop. The session is closed before Run
// returns.
func Run(cfg Config, ws WindowSystem, app App) error {
	s, err := OpenSession(cfg, ws)
	if err != nil {
		return err
	}
	defer s.Close()

	pipeline, err := app.Init(s)
	if err != nil {
		return errors.Wrap(err, "failed to initialize example")
	}

	loop := NewFrameLoop(s, pipeline)
	defer loop.LogStats()

	for {
		quit := false
		for ev := ws.PollEvent(); ev != nil; ev = ws.PollEvent() {
			if _, ok := ev.(input.QuitEvent); ok {
				quit = true
				continue
			}
			logResize(ev)
			if app.HandleEvent(ev) {
				quit = true
			}
		}
		if quit {
			return nil
		}

		app.Update()
		result, err := loop.Iterate(app.Draw)
		if err != nil {
			return errors.Wrapf(err, "frame %s", result)
		}
	}
}

// BaseApp gives an App no-op event handling and updates.
type BaseApp struct{}

func (BaseApp) HandleEvent(ev input.Event) bool { return false }

func (BaseApp) Update() {}

func logResize(ev input.Event) {
	if e, ok := ev.(input.WindowResizedEvent); ok {
		log.Printf("window resized to %dx%d", e.Width, e.Height)
	}
}
