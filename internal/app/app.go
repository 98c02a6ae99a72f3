package app

import (
	"fmt"
	"log"
	"time"

	"mini-rt/internal/frame"
	"mini-rt/internal/gpu"
	"mini-rt/internal/profiling"
)

const slowFrame = 16 * time.Millisecond

type App struct {
	window      Window
	frames      Frames
	renderables []Renderable
	updaters    []Updater

	// Background supplies the clear values of each frame, before Camera
	// shades them.
	Background func() gpu.ClearValues
	Camera     *Camera

	viewport   gpu.Extent
	fpsLimiter *FPSLimiter
	lastTime   time.Time
	frameCount int
}

// New initializes every renderable in order. If one fails, those already
// initialized are disposed.
func New(window Window, frames Frames, renderables ...Renderable) (*App, error) {
	for i, r := range renderables {
		if err := r.Init(); err != nil {
			for j := i - 1; j >= 0; j-- {
				renderables[j].Dispose()
			}
			return nil, fmt.Errorf("app: init renderable %d: %w", i, err)
		}
	}
	return &App{
		window:      window,
		frames:      frames,
		renderables: renderables,
		Background:  func() gpu.ClearValues { return frame.DefaultClear },
		Camera:      NewCamera(),
		fpsLimiter:  NewFPSLimiter(),
		lastTime:    time.Now(),
	}, nil
}

// AddUpdater registers u to run every tick
func (a *App) AddUpdater(u Updater) {
	a.updaters = append(a.updaters, u)
}

// Run ticks until the window asks to close or a frame fails.
func (a *App) Run() error {
	return a.RunUntil(nil)
}

// RunUntil is Run that also returns, between frames, once stop is closed.
// stop may be closed from any goroutine.
func (a *App) RunUntil(stop <-chan struct{}) error {
	for !a.window.ShouldClose() {
		select {
		case <-stop:
			log.Printf("app: stopped after %d frames", a.frameCount)
			return nil
		default:
		}
		if err := a.Tick(); err != nil {
			return err
		}
	}
	log.Printf("app: window closed after %d frames", a.frameCount)
	return nil
}

// Tick polls events, updates and records one frame. A frame dropped because
// the drawable chain had to be rebuilt is not an error.
func (a *App) Tick() error {
	profiling.ResetFrame()
	start := time.Now()
	dt := start.Sub(a.lastTime).Seconds()
	a.lastTime = start

	a.window.PollEvents()
	for _, u := range a.updaters {
		u.Update(dt)
	}

	drawn, err := a.draw(dt)
	if err != nil {
		return err
	}
	if drawn {
		a.frameCount++
	}

	if took := time.Since(start); took > slowFrame {
		log.Printf("app: slow frame %v, top: %s", took, profiling.TopN(5))
	}
	a.fpsLimiter.Wait()
	return nil
}

func (a *App) draw(dt float64) (bool, error) {
	cmd, err := a.frames.BeginFrame()
	if err != nil {
		return false, err
	}
	if cmd == nil {
		return false, nil
	}

	ext := a.frames.Extent()
	if ext != a.viewport {
		a.viewport = ext
		for _, r := range a.renderables {
			r.SetViewport(int(ext.Width), int(ext.Height))
		}
	}

	ctx := RenderContext{
		Commands: cmd,
		Frame:    a.frames.CurrentFrameIndex(),
		Extent:   ext,
		DT:       dt,
		View:     a.Camera.ViewMatrix(),
		Proj:     a.Camera.ProjectionMatrix(a.frames.AspectRatio()),
	}

	stop := profiling.Track("app.Record")
	a.frames.BeginRenderPass(cmd, a.Camera.Shade(a.Background()))
	for _, r := range a.renderables {
		r.Render(ctx)
	}
	a.frames.EndRenderPass(cmd)
	stop()

	if err := a.frames.EndFrame(); err != nil {
		return false, err
	}
	return true, nil
}

// FrameCount returns how many frames were submitted
func (a *App) FrameCount() int { return a.frameCount }

// Close disposes renderables in reverse order of initialization
func (a *App) Close() {
	for i := len(a.renderables) - 1; i >= 0; i-- {
		a.renderables[i].Dispose()
	}
	a.renderables = nil
}
