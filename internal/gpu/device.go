package gpu

import "time"

// Destroyer is implemented by every device resource.
// Destroying a resource twice has no effect.
type Destroyer interface {
	Destroy()
}

// Image is a device image. Images owned by a Swapchain are released with
// it and their Destroy method does nothing.
type Image interface {
	Destroyer
}

// ImageView exposes one aspect of an Image to a render pass.
type ImageView interface {
	Destroyer
}

// RenderPass is the attachment format contract that framebuffers and
// pipeline state are built against.
type RenderPass interface {
	Destroyer
}

// Framebuffer binds concrete image views to a RenderPass.
type Framebuffer interface {
	Destroyer
}

// Semaphore orders work between device queues; the host never observes it.
type Semaphore interface {
	Destroyer
}

// Fence is a host-observable completion signal.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled or timeout elapses.
	// It returns an error wrapping ErrTimeout in the latter case.
	Wait(timeout time.Duration) error

	// Reset returns the fence to the unsignaled state.
	// It must not be called while a submission that signals it is pending.
	Reset() error
}

// ClearValues are the values attachments are cleared to when a render pass begins.
type ClearValues struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// Viewport maps normalized device coordinates onto a framebuffer region.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// CommandBuffer records device work for later submission.
type CommandBuffer interface {
	Destroyer

	Reset() error
	Begin() error
	End() error

	BeginRenderPass(pass RenderPass, fb Framebuffer, area Extent, clear ClearValues)
	EndRenderPass()
	SetViewport(vp Viewport)
	SetScissor(area Extent)
}

// Swapchain is the presentation engine's set of drawable images for one surface.
type Swapchain interface {
	Destroyer

	// Images returns the presentable images in index order.
	Images() []Image

	// AcquireNext returns the index of the next writable image and arranges
	// for signal to be signaled once the image can be written.
	// HardInvalid results carry an index of -1.
	AcquireNext(timeout time.Duration, signal Semaphore) (int, Result, error)
}

// SwapchainDesc describes a swapchain to create.
type SwapchainDesc struct {
	MinImageCount uint32
	Format        SurfaceFormat
	Extent        Extent
	PresentMode   PresentMode
}

// Dependency orders a render pass's first subpass after work outside it.
type Dependency struct {
	SrcStages Stage
	DstStages Stage
	SrcAccess Access
	DstAccess Access
}

// RenderPassDesc describes a single-subpass render pass with one color and
// one depth attachment. The color attachment ends in the presentable layout.
type RenderPassDesc struct {
	ColorFormat Format
	DepthFormat Format
	Dependency  Dependency
}

// Submission is one batch sent to the graphics queue.
type Submission struct {
	Buffer CommandBuffer
	// Wait, if not nil, is waited on at WaitStage before the batch writes attachments.
	Wait      Semaphore
	WaitStage Stage
	// Signal, if not nil, is signaled when the batch completes.
	Signal Semaphore
	// Fence, if not nil, is signaled when the batch completes.
	Fence Fence
}

// SurfaceQuerier reports what the device's surface supports.
type SurfaceQuerier interface {
	SurfaceSupport() (SurfaceSupport, error)

	// DepthFormatSupported reports whether f can back an optimally tiled
	// depth/stencil attachment.
	DepthFormatSupported(f Format) bool
}

// ResourceAllocator creates the resources a drawable chain is made of.
type ResourceAllocator interface {
	// NewSwapchain creates a swapchain. If previous is not nil it is handed
	// to the presentation engine as the swapchain being replaced; it stays
	// valid and must still be destroyed by its owner.
	NewSwapchain(desc SwapchainDesc, previous Swapchain) (Swapchain, error)
	NewImageView(img Image, f Format, aspect Aspect) (ImageView, error)
	NewDepthImage(extent Extent, f Format) (Image, error)
	NewRenderPass(desc RenderPassDesc) (RenderPass, error)
	NewFramebuffer(pass RenderPass, attachments []ImageView, extent Extent) (Framebuffer, error)
}

// SyncAllocator creates per-frame command and synchronization objects.
type SyncAllocator interface {
	NewCommandBuffer() (CommandBuffer, error)
	NewSemaphore() (Semaphore, error)
	NewFence(signaled bool) (Fence, error)
}

// SubmitQueue accepts command buffer submissions.
type SubmitQueue interface {
	Submit(s Submission) error
}

// PresentQueue hands finished images back to the presentation engine.
type PresentQueue interface {
	Present(sc Swapchain, index int, wait Semaphore) (Result, error)
}

// Device is the full set of capabilities the frame pipeline consumes.
type Device interface {
	SurfaceQuerier
	ResourceAllocator
	SyncAllocator

	GraphicsQueue() SubmitQueue
	PresentQueue() PresentQueue

	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
}
