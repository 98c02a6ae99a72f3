package main

import (
	"log"
	"runtime"
	"sync"

	"mini-rt/internal/app"
	"mini-rt/internal/config"
	"mini-rt/internal/entity"
	"mini-rt/internal/event"
	"mini-rt/internal/frame"
	"mini-rt/internal/gpu"
	"mini-rt/internal/gpu/vkdevice"
	"mini-rt/internal/profiling"
	"mini-rt/internal/window"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"
)

// scrollSpin is how much one scroll step changes the spin, in radians per second
const scrollSpin = 0.25

func init() {
	runtime.LockOSThread()
}

func main() {
	// closer calls bound funcs on its own goroutine on a signal or on
	// Close/Fatalln. It only asks the loop to stop; glfw and Vulkan objects
	// are torn down here on the main thread, after which done is closed.
	stop := make(chan struct{})
	done := make(chan struct{})
	var stopOnce sync.Once
	closer.Bind(func() {
		stopOnce.Do(func() { close(stop) })
		<-done
	})

	var teardown []func()
	var teardownOnce sync.Once
	shutdown := func() {
		teardownOnce.Do(func() {
			for i := len(teardown) - 1; i >= 0; i-- {
				teardown[i]()
			}
			close(done)
		})
	}
	fatal := func(v ...interface{}) {
		shutdown()
		closer.Fatalln(v...)
	}

	if err := glfw.Init(); err != nil {
		fatal("glfw init:", err)
	}
	teardown = append(teardown, glfw.Terminate)
	if !glfw.VulkanSupported() {
		fatal("vulkan loader not found")
	}

	events := event.NewDispatcher()
	width, height := config.GetWindowSize()
	win, err := window.New(width, height, config.GetWindowTitle(), events)
	if err != nil {
		fatal("window:", err)
	}
	teardown = append(teardown, win.Destroy)

	dev, err := vkdevice.Open(win, vkdevice.Config{
		AppName:    config.GetWindowTitle(),
		Validation: config.GetValidation(),
	})
	if err != nil {
		fatal(err)
	}
	teardown = append(teardown, dev.Close)

	frames, err := frame.New(dev, win, frame.DefaultOptions())
	if err != nil {
		fatal(err)
	}
	teardown = append(teardown, frames.Close)

	scene := app.NewScene(entity.NewFactory())
	spawnScene(scene)

	a, err := app.New(win, frames)
	if err != nil {
		fatal(err)
	}
	teardown = append(teardown, a.Close)
	a.AddUpdater(scene)
	a.Background = scene.Background

	setupInput(events, win, frames, scene, a.Camera)

	if err := a.RunUntil(stop); err != nil {
		fatal(err)
	}
	log.Printf("main: %d frames, %d chain builds, %d dropped", a.FrameCount(), frames.Recreations(), profiling.Counter("frame.dropped"))
	shutdown()
	closer.Close()
}

func spawnScene(scene *app.Scene) {
	colors := []mgl32.Vec3{{1, 0.4, 0.2}, {0.2, 0.8, 0.4}, {0.3, 0.4, 1}}
	for i, c := range colors {
		e := scene.Spawn()
		e.Color = c
		e.Spin = 0.5 * float32(i+1)
		e.Transform.Translation = mgl32.Vec2{float32(i) - 1, 0}
	}
}

func setupInput(events *event.Dispatcher, win *window.Window, frames *frame.Pipeline, scene *app.Scene, cam *app.Camera) {
	bindings := event.NewBindings()
	bindings.BindKey(int(glfw.KeyEscape), event.ActionQuit)
	bindings.BindKey(int(glfw.KeyV), event.ActionToggleVSync)
	bindings.BindKey(int(glfw.KeyP), event.ActionToggleProfiling)
	bindings.BindKey(int(glfw.KeyR), event.ActionResetView)

	bindings.On(event.ActionQuit, func() { win.SetShouldClose(true) })
	bindings.On(event.ActionToggleVSync, func() {
		on := !config.GetVSync()
		config.SetVSync(on)
		mode := gpu.PresentModeMailbox
		if on {
			mode = gpu.PresentModeFifo
		}
		frames.SetPresentMode(mode)
		log.Printf("main: vsync %v", on)
	})
	bindings.On(event.ActionToggleProfiling, func() {
		log.Printf("main: last frame %s; builds=%d dropped=%d image waits=%d",
			profiling.TopN(8), profiling.Counter("frame.recreate"),
			profiling.Counter("frame.dropped"), profiling.Counter("frame.image_fence_wait"))
	})
	bindings.On(event.ActionResetView, func() {
		scene.Each(func(e *entity.Entity) { e.Transform.Rotation = 0 })
		cam.Reset()
	})
	events.Subscribe(event.KindKey, bindings.HandleKey)

	events.Subscribe(event.KindScroll, func(e event.Event) {
		scene.Each(func(ent *entity.Entity) { ent.Spin += float32(e.Y) * scrollSpin })
	})
	events.Subscribe(event.KindCursor, func(e event.Event) { cam.Look(e.X, e.Y) })
	events.Subscribe(event.KindResize, func(e event.Event) {
		log.Printf("main: framebuffer resized to %dx%d", e.Width, e.Height)
	})
}
