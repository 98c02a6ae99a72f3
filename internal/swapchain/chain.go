// Package swapchain negotiates and owns the ring of drawable images a
// surface is presented from, along with the depth buffers, framebuffers and
// render pass built against them.
package swapchain

import (
	"errors"
	"fmt"
	"log"
	"time"

	"mini-rt/internal/gpu"
)

// Device is what a Chain needs from the graphics device.
type Device interface {
	gpu.SurfaceQuerier
	gpu.ResourceAllocator
	GraphicsQueue() gpu.SubmitQueue
	PresentQueue() gpu.PresentQueue
}

// ErrZeroExtent is returned by New when the surface reports a zero current
// extent, as some platforms do while the window is minimized. Nothing is
// created; the caller waits for events and tries again.
var ErrZeroExtent = errors.New("swapchain: surface extent is zero")

// Options are the construction-time preferences for a Chain.
type Options struct {
	PreferredFormat      gpu.SurfaceFormat
	PreferredPresentMode gpu.PresentMode
	// DepthFormats are probed in order; the first supported one is used.
	DepthFormats []gpu.Format
	// FenceTimeout bounds every wait on a fence. Expiry counts as device loss.
	FenceTimeout time.Duration
}

// DefaultOptions prefers B8G8R8A8_SRGB with non-linear sRGB and mailbox
// presentation.
func DefaultOptions() Options {
	return Options{
		PreferredFormat: gpu.SurfaceFormat{
			Format:     gpu.FormatB8G8R8A8Srgb,
			ColorSpace: gpu.ColorSpaceSrgbNonlinear,
		},
		PreferredPresentMode: gpu.PresentModeMailbox,
		DepthFormats: []gpu.Format{
			gpu.FormatD32Sfloat,
			gpu.FormatD32SfloatS8Uint,
			gpu.FormatD24UnormS8Uint,
		},
		FenceTimeout: 10 * time.Second,
	}
}

// DrawableImage is one presentable image with everything needed to render into it.
type DrawableImage struct {
	Index       int
	Image       gpu.Image
	View        gpu.ImageView
	Depth       gpu.Image
	DepthView   gpu.ImageView
	Framebuffer gpu.Framebuffer
}

func (d *DrawableImage) destroy() {
	for _, r := range []gpu.Destroyer{d.Framebuffer, d.DepthView, d.Depth, d.View} {
		if r != nil {
			r.Destroy()
		}
	}
	*d = DrawableImage{Index: d.Index}
}

// Chain is a negotiated set of drawable images for one surface.
type Chain struct {
	dev  Device
	opts Options

	swapchain   gpu.Swapchain
	images      []DrawableImage
	renderPass  gpu.RenderPass
	format      gpu.SurfaceFormat
	depthFormat gpu.Format
	presentMode gpu.PresentMode
	extent      gpu.Extent

	// previous is the chain being replaced, only set while building.
	previous  *Chain
	destroyed bool
}

// New builds a chain for the device's surface. desired is used only when the
// surface leaves the size to the chain. previous, when not nil, is handed to
// the presentation engine as the chain being replaced; the caller still owns
// it and destroys it once New has returned.
//
// On error everything already built is released and nil is returned.
func New(dev Device, desired gpu.Extent, opts Options, previous *Chain) (*Chain, error) {
	support, err := dev.SurfaceSupport()
	if err != nil {
		return nil, fmt.Errorf("swapchain: query surface: %w", err)
	}
	if len(support.Formats) == 0 {
		return nil, fmt.Errorf("swapchain: surface reports no formats: %w", gpu.ErrUnsupported)
	}
	depth, err := chooseDepthFormat(dev, opts.DepthFormats)
	if err != nil {
		return nil, err
	}

	extent := chooseExtent(support.Capabilities, desired)
	if extent.Degenerate() {
		return nil, fmt.Errorf("%w (%dx%d)", ErrZeroExtent, extent.Width, extent.Height)
	}

	c := &Chain{
		dev:         dev,
		opts:        opts,
		format:      chooseSurfaceFormat(support.Formats, opts.PreferredFormat),
		depthFormat: depth,
		presentMode: choosePresentMode(support.PresentModes, opts.PreferredPresentMode),
		extent:      extent,
		previous:    previous,
	}
	if err := c.build(chooseImageCount(support.Capabilities)); err != nil {
		c.previous = nil
		c.Destroy()
		return nil, err
	}
	c.previous = nil

	log.Printf("swapchain: %d images %dx%d format=%v depth=%v present=%v",
		len(c.images), c.extent.Width, c.extent.Height, c.format.Format, c.depthFormat, c.presentMode)
	return c, nil
}

func (c *Chain) build(imageCount uint32) error {
	var old gpu.Swapchain
	if c.previous != nil {
		old = c.previous.swapchain
	}
	sc, err := c.dev.NewSwapchain(gpu.SwapchainDesc{
		MinImageCount: imageCount,
		Format:        c.format,
		Extent:        c.extent,
		PresentMode:   c.presentMode,
	}, old)
	if err != nil {
		return fmt.Errorf("swapchain: create: %w", err)
	}
	c.swapchain = sc

	c.renderPass, err = c.dev.NewRenderPass(gpu.RenderPassDesc{
		ColorFormat: c.format.Format,
		DepthFormat: c.depthFormat,
		Dependency: gpu.Dependency{
			SrcStages: gpu.StageColorAttachmentOutput | gpu.StageEarlyFragmentTests,
			DstStages: gpu.StageColorAttachmentOutput | gpu.StageEarlyFragmentTests,
			DstAccess: gpu.AccessColorAttachmentWrite | gpu.AccessDepthStencilAttachmentWrite,
		},
	})
	if err != nil {
		return fmt.Errorf("swapchain: render pass: %w", err)
	}

	images := sc.Images()
	c.images = make([]DrawableImage, 0, len(images))
	for i, img := range images {
		d := DrawableImage{Index: i, Image: img}
		if err := c.buildImage(&d); err != nil {
			d.destroy()
			return fmt.Errorf("swapchain: image %d: %w", i, err)
		}
		c.images = append(c.images, d)
	}
	return nil
}

func (c *Chain) buildImage(d *DrawableImage) error {
	var err error
	if d.View, err = c.dev.NewImageView(d.Image, c.format.Format, gpu.AspectColor); err != nil {
		return fmt.Errorf("color view: %w", err)
	}
	if d.Depth, err = c.dev.NewDepthImage(c.extent, c.depthFormat); err != nil {
		return fmt.Errorf("depth image: %w", err)
	}
	if d.DepthView, err = c.dev.NewImageView(d.Depth, c.depthFormat, gpu.AspectDepth); err != nil {
		return fmt.Errorf("depth view: %w", err)
	}
	d.Framebuffer, err = c.dev.NewFramebuffer(c.renderPass, []gpu.ImageView{d.View, d.DepthView}, c.extent)
	if err != nil {
		return fmt.Errorf("framebuffer: %w", err)
	}
	return nil
}

// AcquireNext waits for fence, then acquires the next drawable image and
// arranges for signal to be signaled when it is writable. A fence that does
// not signal within the configured timeout is reported as device loss.
// On gpu.HardInvalid the index is -1.
func (c *Chain) AcquireNext(fence gpu.Fence, signal gpu.Semaphore) (int, gpu.Result, error) {
	if fence != nil {
		if err := fence.Wait(c.opts.FenceTimeout); err != nil {
			return -1, 0, gpu.Lost("swapchain: wait frame fence", err)
		}
	}
	idx, res, err := c.swapchain.AcquireNext(c.opts.FenceTimeout, signal)
	if err != nil {
		return -1, 0, gpu.Lost("swapchain: acquire", err)
	}
	if res == gpu.HardInvalid {
		return -1, res, nil
	}
	return idx, res, nil
}

// SubmitAndPresent submits cmd to the graphics queue, waiting on wait before
// color output and signaling signal and fence on completion, then presents
// image index once signal fires.
func (c *Chain) SubmitAndPresent(cmd gpu.CommandBuffer, wait, signal gpu.Semaphore, fence gpu.Fence, index int) (gpu.Result, error) {
	err := c.dev.GraphicsQueue().Submit(gpu.Submission{
		Buffer:    cmd,
		Wait:      wait,
		WaitStage: gpu.StageColorAttachmentOutput,
		Signal:    signal,
		Fence:     fence,
	})
	if err != nil {
		return 0, fmt.Errorf("swapchain: submit: %w", err)
	}
	res, err := c.dev.PresentQueue().Present(c.swapchain, index, signal)
	if err != nil {
		return 0, fmt.Errorf("swapchain: present: %w", err)
	}
	return res, nil
}

// CompareFormat reports whether other uses the same color and depth formats,
// so pipeline state built for c stays valid for other.
func (c *Chain) CompareFormat(other *Chain) bool {
	if other == nil {
		return false
	}
	return c.format.Format == other.format.Format && c.depthFormat == other.depthFormat
}

// Destroy releases every resource of the chain. It is safe to call twice.
func (c *Chain) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	for i := range c.images {
		c.images[i].destroy()
	}
	c.images = nil
	if c.renderPass != nil {
		c.renderPass.Destroy()
		c.renderPass = nil
	}
	if c.swapchain != nil {
		c.swapchain.Destroy()
		c.swapchain = nil
	}
}

func (c *Chain) Extent() gpu.Extent { return c.extent }

// AspectRatio returns width/height of the chain's extent.
func (c *Chain) AspectRatio() float32 { return c.extent.AspectRatio() }

func (c *Chain) ImageCount() int { return len(c.images) }

// Image returns drawable image i. It panics if i is out of range.
func (c *Chain) Image(i int) *DrawableImage { return &c.images[i] }

func (c *Chain) RenderPass() gpu.RenderPass { return c.renderPass }

func (c *Chain) ColorFormat() gpu.SurfaceFormat { return c.format }

func (c *Chain) DepthFormat() gpu.Format { return c.depthFormat }

func (c *Chain) PresentMode() gpu.PresentMode { return c.presentMode }
