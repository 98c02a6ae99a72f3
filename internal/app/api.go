package app

import (
	"mini-rt/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext provides shared per-frame context for all renderables
type RenderContext struct {
	Commands gpu.CommandBuffer
	Frame    int // frame slot being recorded
	Extent   gpu.Extent
	DT       float64
	View     mgl32.Mat4
	Proj     mgl32.Mat4
}

// Renderable interface defines the lifecycle for recorded features. Render
// is called inside the frame's render pass.
type Renderable interface {
	Init() error
	Render(ctx RenderContext)
	Dispose()
	SetViewport(width, height int)
}

// Updater advances simulation state once per tick, before recording
type Updater interface {
	Update(dt float64)
}

// Window is the event source the loop runs against
type Window interface {
	PollEvents()
	ShouldClose() bool
}

// Frames is the frame pipeline the loop records into
type Frames interface {
	BeginFrame() (gpu.CommandBuffer, error)
	EndFrame() error
	BeginRenderPass(cmd gpu.CommandBuffer, clear gpu.ClearValues)
	EndRenderPass(cmd gpu.CommandBuffer)
	AspectRatio() float32
	Extent() gpu.Extent
	CurrentFrameIndex() int
}
