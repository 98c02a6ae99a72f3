// Package frame drives the per-frame loop between the host and an
// asynchronous graphics device: a ring of frame slots, the drawable chain
// they render into, and rebuilding that chain when the surface changes.
//
// A Pipeline is Idle or Recording. BeginFrame moves Idle to Recording and
// EndFrame moves back; calling either out of turn panics.
package frame

import (
	"errors"
	"fmt"
	"log"

	"mini-rt/internal/config"
	"mini-rt/internal/gpu"
	"mini-rt/internal/profiling"
	"mini-rt/internal/swapchain"
)

// ErrFormatChanged is returned by Recreate when the rebuilt chain's color or
// depth format differs from the old one. Pipeline state compiled against the
// render pass would be invalid, so it is fatal.
var ErrFormatChanged = errors.New("frame: drawable format changed across rebuild")

// DefaultClear is the clear color and depth used by the render loop.
var DefaultClear = gpu.ClearValues{
	Color: [4]float32{0.01, 0.01, 0.01, 1},
	Depth: 1,
}

// Surface is the output surface a Pipeline presents to.
type Surface interface {
	// Extent is the current drawable size; zero while minimized.
	Extent() gpu.Extent
	ResizePending() bool
	ClearResizePending()
	// WaitEvents blocks until the surface has processed new events.
	WaitEvents()
}

// Options are fixed for the lifetime of a Pipeline.
type Options struct {
	FramesInFlight int
	Chain          swapchain.Options
}

// DefaultOptions reads the render settings from config.
func DefaultOptions() Options {
	chain := swapchain.DefaultOptions()
	if config.GetVSync() {
		chain.PreferredPresentMode = gpu.PresentModeFifo
	}
	chain.FenceTimeout = config.GetFenceTimeout()
	return Options{
		FramesInFlight: config.GetFramesInFlight(),
		Chain:          chain,
	}
}

type slot struct {
	cmd            gpu.CommandBuffer
	imageAcquired  gpu.Semaphore
	renderComplete gpu.Semaphore
	// inFlight is created signaled so the first wait on it returns at once.
	inFlight gpu.Fence
}

func newSlot(dev gpu.SyncAllocator) (slot, error) {
	var s slot
	var err error
	if s.cmd, err = dev.NewCommandBuffer(); err != nil {
		return s, fmt.Errorf("frame: command buffer: %w", err)
	}
	if s.imageAcquired, err = dev.NewSemaphore(); err != nil {
		return s, fmt.Errorf("frame: semaphore: %w", err)
	}
	if s.renderComplete, err = dev.NewSemaphore(); err != nil {
		return s, fmt.Errorf("frame: semaphore: %w", err)
	}
	if s.inFlight, err = dev.NewFence(true); err != nil {
		return s, fmt.Errorf("frame: fence: %w", err)
	}
	return s, nil
}

func (s *slot) destroy() {
	for _, r := range []gpu.Destroyer{s.inFlight, s.renderComplete, s.imageAcquired, s.cmd} {
		if r != nil {
			r.Destroy()
		}
	}
	*s = slot{}
}

// Pipeline owns the frame slots and the current drawable chain.
type Pipeline struct {
	dev     gpu.Device
	surface Surface
	opts    Options

	slots   []slot
	current int
	chain   *swapchain.Chain
	fences  fenceTable

	recording   bool
	image       int
	recreations int
	// rebuild asks EndFrame to rebuild the chain with changed options
	rebuild bool
	closed  bool
}

// New creates the frame slots and builds the first drawable chain.
func New(dev gpu.Device, surface Surface, opts Options) (*Pipeline, error) {
	if opts.FramesInFlight < 1 {
		return nil, fmt.Errorf("frame: %d frames in flight: %w", opts.FramesInFlight, gpu.ErrUnsupported)
	}
	p := &Pipeline{
		dev:     dev,
		surface: surface,
		opts:    opts,
		image:   -1,
	}
	for i := 0; i < opts.FramesInFlight; i++ {
		s, err := newSlot(dev)
		p.slots = append(p.slots, s)
		if err != nil {
			p.Close()
			return nil, err
		}
	}
	if err := p.Recreate(); err != nil {
		p.Close()
		return nil, err
	}
	log.Printf("frame: pipeline ready, %d frames in flight over %d images", len(p.slots), p.chain.ImageCount())
	return p, nil
}

// BeginFrame waits until the current slot is free, acquires a drawable
// image and opens the slot's command buffer for recording.
//
// If the surface can no longer use the chain, the chain is rebuilt and
// BeginFrame returns a nil command buffer and nil error: there is no frame
// this time and EndFrame must not be called.
func (p *Pipeline) BeginFrame() (gpu.CommandBuffer, error) {
	if p.recording {
		panic("frame: BeginFrame called while a frame is in progress")
	}
	defer profiling.Track("frame.BeginFrame")()

	s := &p.slots[p.current]
	idx, res, err := p.chain.AcquireNext(s.inFlight, s.imageAcquired)
	if err != nil {
		return nil, fmt.Errorf("frame: begin: %w", err)
	}
	if res == gpu.HardInvalid {
		profiling.Count("frame.dropped")
		return nil, p.Recreate()
	}

	if err := s.cmd.Reset(); err != nil {
		return nil, fmt.Errorf("frame: reset command buffer: %w", err)
	}
	if err := s.cmd.Begin(); err != nil {
		return nil, fmt.Errorf("frame: begin command buffer: %w", err)
	}
	p.image = idx
	p.recording = true
	return s.cmd, nil
}

// EndFrame finishes recording, submits the frame and presents it. The chain
// is rebuilt when presentation reports it out of date or suboptimal, or when
// the surface was resized.
func (p *Pipeline) EndFrame() error {
	if !p.recording {
		panic("frame: EndFrame called with no frame in progress")
	}
	defer profiling.Track("frame.EndFrame")()

	s := &p.slots[p.current]
	p.recording = false
	if err := s.cmd.End(); err != nil {
		return fmt.Errorf("frame: end command buffer: %w", err)
	}

	waited, err := p.fences.claim(p.image, s.inFlight, p.opts.Chain.FenceTimeout)
	if err != nil {
		return err
	}
	if waited {
		profiling.Count("frame.image_fence_wait")
	}

	// Reset only now: an error before this point leaves the fence signaled
	// and the next wait on it cannot hang.
	if err := s.inFlight.Reset(); err != nil {
		return fmt.Errorf("frame: reset fence: %w", err)
	}
	res, err := p.chain.SubmitAndPresent(s.cmd, s.imageAcquired, s.renderComplete, s.inFlight, p.image)
	if err != nil {
		return fmt.Errorf("frame: end: %w", err)
	}
	p.image = -1

	if res != gpu.Success || p.surface.ResizePending() || p.rebuild {
		if err := p.Recreate(); err != nil {
			return err
		}
	}
	p.current = (p.current + 1) % len(p.slots)
	return nil
}

// Recreate rebuilds the drawable chain for the surface's current extent,
// blocking while the surface is minimized. The new chain must keep the old
// color and depth formats; otherwise an error wrapping ErrFormatChanged is
// returned and the old chain is kept.
func (p *Pipeline) Recreate() error {
	if p.recording {
		panic("frame: Recreate called while a frame is in progress")
	}
	defer profiling.Track("frame.Recreate")()

	if err := p.dev.WaitIdle(); err != nil {
		return gpu.Lost("frame: wait idle", err)
	}

	var next *swapchain.Chain
	for {
		extent := p.surface.Extent()
		for extent.Degenerate() {
			p.surface.WaitEvents()
			extent = p.surface.Extent()
		}

		var err error
		next, err = swapchain.New(p.dev, extent, p.opts.Chain, p.chain)
		if err == nil {
			break
		}
		// The window can be minimized again between the poll and the
		// surface query.
		if !errors.Is(err, swapchain.ErrZeroExtent) {
			return fmt.Errorf("frame: recreate: %w", err)
		}
		p.surface.WaitEvents()
	}
	if p.chain != nil {
		if !p.chain.CompareFormat(next) {
			err := fmt.Errorf("%w: %v/%v to %v/%v", ErrFormatChanged,
				p.chain.ColorFormat().Format, p.chain.DepthFormat(),
				next.ColorFormat().Format, next.DepthFormat())
			next.Destroy()
			return err
		}
		p.chain.Destroy()
	}
	p.chain = next
	p.fences.reset(next.ImageCount())
	p.surface.ClearResizePending()
	p.rebuild = false

	p.recreations++
	profiling.Count("frame.recreate")
	return nil
}

// BeginRenderPass begins the chain's render pass on the acquired image and
// sets a full-extent viewport and scissor.
func (p *Pipeline) BeginRenderPass(cmd gpu.CommandBuffer, clear gpu.ClearValues) {
	p.mustRecord(cmd, "BeginRenderPass")
	ext := p.chain.Extent()
	cmd.BeginRenderPass(p.chain.RenderPass(), p.chain.Image(p.image).Framebuffer, ext, clear)
	cmd.SetViewport(gpu.Viewport{
		Width:    float32(ext.Width),
		Height:   float32(ext.Height),
		MaxDepth: 1,
	})
	cmd.SetScissor(ext)
}

func (p *Pipeline) EndRenderPass(cmd gpu.CommandBuffer) {
	p.mustRecord(cmd, "EndRenderPass")
	cmd.EndRenderPass()
}

func (p *Pipeline) mustRecord(cmd gpu.CommandBuffer, op string) {
	if !p.recording {
		panic("frame: " + op + " called with no frame in progress")
	}
	if cmd != p.slots[p.current].cmd {
		panic("frame: " + op + " called with a command buffer of another frame")
	}
}

// CommandBuffer returns the command buffer of the frame in progress.
func (p *Pipeline) CommandBuffer() gpu.CommandBuffer {
	if !p.recording {
		panic("frame: CommandBuffer called with no frame in progress")
	}
	return p.slots[p.current].cmd
}

func (p *Pipeline) FrameInProgress() bool { return p.recording }

// CurrentFrameIndex returns the slot the next or current frame uses.
func (p *Pipeline) CurrentFrameIndex() int { return p.current }

// AspectRatio returns width/height of the current chain.
func (p *Pipeline) AspectRatio() float32 { return p.chain.AspectRatio() }

func (p *Pipeline) Extent() gpu.Extent { return p.chain.Extent() }

// RenderPass is the render pass pipeline state must be built against. It
// changes on every rebuild but stays format compatible.
func (p *Pipeline) RenderPass() gpu.RenderPass { return p.chain.RenderPass() }

// SetPresentMode changes the preferred present mode. The chain is rebuilt
// at the end of the next frame; the surface may not support m, in which
// case FIFO is used.
func (p *Pipeline) SetPresentMode(m gpu.PresentMode) {
	if p.opts.Chain.PreferredPresentMode == m {
		return
	}
	p.opts.Chain.PreferredPresentMode = m
	p.rebuild = true
}

func (p *Pipeline) PresentMode() gpu.PresentMode { return p.chain.PresentMode() }

// Recreations counts chain builds, including the first.
func (p *Pipeline) Recreations() int { return p.recreations }

// Close waits for the device and releases the chain and every slot.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if err := p.dev.WaitIdle(); err != nil {
		log.Printf("frame: close: %v", err)
	}
	if p.chain != nil {
		p.chain.Destroy()
		p.chain = nil
	}
	for i := range p.slots {
		p.slots[i].destroy()
	}
	p.slots = nil
	p.recording = false
}
