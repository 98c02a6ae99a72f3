// Package window owns the glfw window the renderer presents to. It turns
// glfw callbacks into event.Dispatcher events and tracks pending resizes
// for the frame pipeline.
package window

import (
	"unsafe"

	"mini-rt/internal/event"
	"mini-rt/internal/gpu"

	"github.com/go-gl/glfw/v3.3/glfw"
)

type Window struct {
	win    *glfw.Window
	events *event.Dispatcher

	resized bool

	firstCursor bool
	lastX       float64
	lastY       float64
}

// New creates a window without a client API. glfw.Init must have been
// called on the main thread.
func New(width, height int, title string, events *event.Dispatcher) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}

	w := &Window{win: win, events: events, firstCursor: true}
	win.SetFramebufferSizeCallback(w.onFramebufferSize)
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		w.events.Dispatch(event.NewScroll(xoff, yoff))
	})
	win.SetCursorPosCallback(w.onCursorPos)
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		w.events.Dispatch(event.NewKey(int(key), keyAction(action)))
	})
	return w, nil
}

func (w *Window) onFramebufferSize(_ *glfw.Window, width, height int) {
	w.resized = true
	w.events.Dispatch(event.NewResize(width, height))
}

func (w *Window) onCursorPos(_ *glfw.Window, x, y float64) {
	if w.firstCursor {
		w.lastX, w.lastY = x, y
		w.firstCursor = false
		return
	}
	dx, dy := x-w.lastX, y-w.lastY
	w.lastX, w.lastY = x, y
	w.events.Dispatch(event.NewCursor(dx, dy))
}

func keyAction(a glfw.Action) event.KeyAction {
	switch a {
	case glfw.Press:
		return event.Press
	case glfw.Repeat:
		return event.Repeat
	}
	return event.Release
}

// Extent returns the framebuffer size in pixels; zero while minimized.
func (w *Window) Extent() gpu.Extent {
	width, height := w.win.GetFramebufferSize()
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return gpu.Extent{Width: uint32(width), Height: uint32(height)}
}

func (w *Window) ResizePending() bool { return w.resized }
func (w *Window) ClearResizePending() { w.resized = false }

func (w *Window) WaitEvents() { glfw.WaitEvents() }
func (w *Window) PollEvents() { glfw.PollEvents() }

func (w *Window) ShouldClose() bool     { return w.win.ShouldClose() }
func (w *Window) SetShouldClose(v bool) { w.win.SetShouldClose(v) }

func (w *Window) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (w *Window) RequiredInstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

func (w *Window) CreateWindowSurface(instance interface{}) (uintptr, error) {
	return w.win.CreateWindowSurface(instance, nil)
}

func (w *Window) Destroy() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
}
