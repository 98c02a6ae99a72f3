// Package gputest provides an in-memory gpu.Device and frame surface for
// tests. The fake queue executes asynchronously: a submission stays pending
// until the host waits on its fence, idles the device or calls Complete,
// which lets tests observe exactly when the host would race the device.
//
// None of the types are safe for concurrent use.
package gputest

import (
	"fmt"
	"time"

	"mini-rt/internal/gpu"
)

// Resource kinds tracked by Device.Live.
const (
	KindSwapchain   = "swapchain"
	KindDepthImage  = "depth-image"
	KindView        = "view"
	KindRenderPass  = "render-pass"
	KindFramebuffer = "framebuffer"
	KindCommand     = "command-buffer"
	KindSemaphore   = "semaphore"
	KindFence       = "fence"
	KindSubmit      = "submit"
)

// Device is a scriptable fake gpu.Device.
type Device struct {
	Support      gpu.SurfaceSupport
	DepthFormats map[gpu.Format]bool

	// CurrentExtents scripts the current extent reported by successive
	// SurfaceSupport calls. Once drained, Support is reported unchanged.
	CurrentExtents []gpu.Extent

	// AcquireOrder scripts the image indices returned by successive
	// acquires (modulo the image count). Once drained, acquires cycle
	// round-robin per swapchain.
	AcquireOrder []int
	// AcquireResults and PresentResults script operation results.
	// An empty script yields gpu.Success.
	AcquireResults []gpu.Result
	PresentResults []gpu.Result

	// Hang stops the fake queue: pending submissions never complete, so
	// fence waits time out and WaitIdle reports device loss.
	Hang bool

	// FailOn names a resource kind whose next allocation fails with
	// gpu.ErrNoDeviceMemory. KindSubmit fails the next submission.
	FailOn string

	SwapchainsCreated int
	WaitIdleCalls     int
	Submissions       int
	// Presented lists presented image indices in order.
	Presented []int
	// RenderPasses records every render pass description created.
	RenderPasses []gpu.RenderPassDesc
	// Violations records every synchronization rule the host broke.
	Violations []string
	// Trace is an ordered log of queue and fence activity.
	Trace []string

	nextID   int
	live     map[string]int
	pending  []*submission
	acquired map[*Semaphore]int
	graphics *queue
}

type submission struct {
	buffer *CommandBuffer
	fence  *Fence
	image  int
}

// NewDevice returns a device whose surface yields chains of imageCount
// images (min image count imageCount-1, no maximum), reports an undefined
// current extent and supports the D32_SFLOAT depth format.
func NewDevice(imageCount int) *Device {
	minCount := uint32(0)
	if imageCount > 0 {
		minCount = uint32(imageCount - 1)
	}
	d := &Device{
		Support: gpu.SurfaceSupport{
			Capabilities: gpu.SurfaceCapabilities{
				MinImageCount: minCount,
				CurrentExtent: gpu.Extent{Width: gpu.UndefinedExtent, Height: gpu.UndefinedExtent},
				MinExtent:     gpu.Extent{Width: 1, Height: 1},
				MaxExtent:     gpu.Extent{Width: 16384, Height: 16384},
			},
			Formats: []gpu.SurfaceFormat{
				{Format: gpu.FormatB8G8R8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
				{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox},
		},
		DepthFormats: map[gpu.Format]bool{gpu.FormatD32Sfloat: true},
		live:         make(map[string]int),
		acquired:     make(map[*Semaphore]int),
	}
	d.graphics = &queue{dev: d}
	return d
}

// Live returns how many resources of the given kind exist and are not destroyed.
func (d *Device) Live(kind string) int {
	return d.live[kind]
}

// Pending returns the number of submissions the fake queue has not completed.
func (d *Device) Pending() int {
	return len(d.pending)
}

// Complete finishes every pending submission, as if the device caught up.
func (d *Device) Complete() {
	d.completeUpTo(len(d.pending) - 1)
}

func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	s := d.Support
	if len(d.CurrentExtents) > 0 {
		s.Capabilities.CurrentExtent = d.CurrentExtents[0]
		d.CurrentExtents = d.CurrentExtents[1:]
	}
	return s, nil
}

func (d *Device) DepthFormatSupported(f gpu.Format) bool {
	return d.DepthFormats[f]
}

func (d *Device) NewSwapchain(desc gpu.SwapchainDesc, previous gpu.Swapchain) (gpu.Swapchain, error) {
	if err := d.alloc(KindSwapchain); err != nil {
		return nil, err
	}
	sc := &Swapchain{Desc: desc}
	sc.resource = d.newResource(KindSwapchain)
	if previous != nil {
		sc.Previous = previous.(*Swapchain)
	}
	sc.images = make([]gpu.Image, desc.MinImageCount)
	for i := range sc.images {
		sc.images[i] = &Image{Index: i, Format: desc.Format.Format, Extent: desc.Extent}
	}
	d.SwapchainsCreated++
	return sc, nil
}

func (d *Device) NewImageView(img gpu.Image, f gpu.Format, aspect gpu.Aspect) (gpu.ImageView, error) {
	if err := d.alloc(KindView); err != nil {
		return nil, err
	}
	v := &ImageView{Image: img.(*Image), Format: f, Aspect: aspect}
	v.resource = d.newResource(KindView)
	return v, nil
}

func (d *Device) NewDepthImage(extent gpu.Extent, f gpu.Format) (gpu.Image, error) {
	if err := d.alloc(KindDepthImage); err != nil {
		return nil, err
	}
	if !f.IsDepth() {
		return nil, fmt.Errorf("gputest: %v is not a depth format: %w", f, gpu.ErrUnsupported)
	}
	img := &Image{Index: -1, Format: f, Extent: extent, owned: true}
	img.resource = d.newResource(KindDepthImage)
	return img, nil
}

func (d *Device) NewRenderPass(desc gpu.RenderPassDesc) (gpu.RenderPass, error) {
	if err := d.alloc(KindRenderPass); err != nil {
		return nil, err
	}
	d.RenderPasses = append(d.RenderPasses, desc)
	rp := &RenderPass{Desc: desc}
	rp.resource = d.newResource(KindRenderPass)
	return rp, nil
}

func (d *Device) NewFramebuffer(pass gpu.RenderPass, attachments []gpu.ImageView, extent gpu.Extent) (gpu.Framebuffer, error) {
	if err := d.alloc(KindFramebuffer); err != nil {
		return nil, err
	}
	fb := &Framebuffer{Pass: pass.(*RenderPass), Extent: extent}
	for _, a := range attachments {
		fb.Attachments = append(fb.Attachments, a.(*ImageView))
	}
	fb.resource = d.newResource(KindFramebuffer)
	return fb, nil
}

func (d *Device) NewCommandBuffer() (gpu.CommandBuffer, error) {
	if err := d.alloc(KindCommand); err != nil {
		return nil, err
	}
	cb := &CommandBuffer{}
	cb.resource = d.newResource(KindCommand)
	return cb, nil
}

func (d *Device) NewSemaphore() (gpu.Semaphore, error) {
	if err := d.alloc(KindSemaphore); err != nil {
		return nil, err
	}
	s := &Semaphore{}
	s.resource = d.newResource(KindSemaphore)
	return s, nil
}

func (d *Device) NewFence(signaled bool) (gpu.Fence, error) {
	if err := d.alloc(KindFence); err != nil {
		return nil, err
	}
	f := &Fence{signaled: signaled}
	f.resource = d.newResource(KindFence)
	return f, nil
}

func (d *Device) GraphicsQueue() gpu.SubmitQueue { return d.graphics }
func (d *Device) PresentQueue() gpu.PresentQueue { return d.graphics }

func (d *Device) WaitIdle() error {
	d.WaitIdleCalls++
	d.trace("wait-idle")
	if d.Hang && len(d.pending) > 0 {
		return fmt.Errorf("gputest: wait idle: %w", gpu.ErrDeviceLost)
	}
	d.Complete()
	return nil
}

func (d *Device) alloc(kind string) error {
	if d.FailOn == kind {
		d.FailOn = ""
		return fmt.Errorf("gputest: allocate %s: %w", kind, gpu.ErrNoDeviceMemory)
	}
	return nil
}

func (d *Device) newResource(kind string) resource {
	d.nextID++
	d.live[kind]++
	return resource{dev: d, kind: kind, id: d.nextID}
}

func (d *Device) violate(format string, args ...any) {
	d.Violations = append(d.Violations, fmt.Sprintf(format, args...))
}

func (d *Device) trace(format string, args ...any) {
	d.Trace = append(d.Trace, fmt.Sprintf(format, args...))
}

// completeUpTo finishes pending submissions [0, i] in submission order.
func (d *Device) completeUpTo(i int) {
	for j := 0; j <= i && j < len(d.pending); j++ {
		s := d.pending[j]
		if s.fence != nil {
			s.fence.signaled = true
		}
		d.trace("complete submit image=%d", s.image)
	}
	if i >= 0 {
		d.pending = append(d.pending[:0], d.pending[i+1:]...)
	}
}

func (d *Device) pendingIndex(match func(*submission) bool) int {
	idx := -1
	for i, s := range d.pending {
		if match(s) {
			idx = i
		}
	}
	return idx
}

func (d *Device) popResult(script *[]gpu.Result) gpu.Result {
	if len(*script) == 0 {
		return gpu.Success
	}
	r := (*script)[0]
	*script = (*script)[1:]
	return r
}

type queue struct {
	dev *Device
}

func (q *queue) Submit(s gpu.Submission) error {
	d := q.dev
	if err := d.alloc(KindSubmit); err != nil {
		return err
	}
	cb := s.Buffer.(*CommandBuffer)
	if cb.recording {
		d.violate("command buffer %d submitted while still recording", cb.id)
	}
	image := -1
	if sem, ok := s.Wait.(*Semaphore); ok && sem != nil {
		if idx, ok := d.acquired[sem]; ok {
			image = idx
			delete(d.acquired, sem)
		}
	}
	var fence *Fence
	if f, ok := s.Fence.(*Fence); ok && f != nil {
		fence = f
		if fence.signaled {
			d.violate("fence %d submitted while still signaled", fence.id)
		}
	}
	for _, p := range d.pending {
		if image >= 0 && p.image == image {
			d.violate("image %d submitted while an earlier submission on it is in flight", image)
		}
		if p.buffer == cb {
			d.violate("command buffer %d submitted twice while in flight", cb.id)
		}
	}
	d.pending = append(d.pending, &submission{buffer: cb, fence: fence, image: image})
	d.Submissions++
	d.trace("submit image=%d", image)
	return nil
}

func (q *queue) Present(sc gpu.Swapchain, index int, wait gpu.Semaphore) (gpu.Result, error) {
	d := q.dev
	if index < 0 || index >= len(sc.Images()) {
		return 0, fmt.Errorf("gputest: present index %d out of range: %w", index, gpu.ErrFatal)
	}
	d.Presented = append(d.Presented, index)
	r := d.popResult(&d.PresentResults)
	d.trace("present image=%d result=%v", index, r)
	return r, nil
}

type resource struct {
	dev       *Device
	kind      string
	id        int
	destroyed bool
}

// ID returns a device-unique identifier for the resource.
func (r *resource) ID() int { return r.id }

// Destroyed reports whether Destroy was called.
func (r *resource) Destroyed() bool { return r.destroyed }

func (r *resource) Destroy() {
	if r.destroyed || r.dev == nil {
		return
	}
	r.destroyed = true
	r.dev.live[r.kind]--
}

// Swapchain is a fake gpu.Swapchain.
type Swapchain struct {
	resource
	Desc     gpu.SwapchainDesc
	Previous *Swapchain

	images []gpu.Image
	next   int
}

func (s *Swapchain) Images() []gpu.Image { return s.images }

func (s *Swapchain) AcquireNext(timeout time.Duration, signal gpu.Semaphore) (int, gpu.Result, error) {
	d := s.dev
	if s.destroyed {
		return -1, 0, fmt.Errorf("gputest: acquire from destroyed swapchain: %w", gpu.ErrFatal)
	}
	r := d.popResult(&d.AcquireResults)
	if r == gpu.HardInvalid {
		d.trace("acquire result=%v", r)
		return -1, r, nil
	}
	var idx int
	if len(d.AcquireOrder) > 0 {
		idx = d.AcquireOrder[0] % len(s.images)
		d.AcquireOrder = d.AcquireOrder[1:]
	} else {
		idx = s.next % len(s.images)
		s.next++
	}
	if sem, ok := signal.(*Semaphore); ok && sem != nil {
		d.acquired[sem] = idx
	}
	d.trace("acquire image=%d result=%v", idx, r)
	return idx, r, nil
}

// Image is a fake gpu.Image. Swapchain images are not owned and ignore Destroy.
type Image struct {
	resource
	Index  int
	Format gpu.Format
	Extent gpu.Extent

	owned bool
}

func (i *Image) Destroy() {
	if i.owned {
		i.resource.Destroy()
	}
}

// ImageView is a fake gpu.ImageView.
type ImageView struct {
	resource
	Image  *Image
	Format gpu.Format
	Aspect gpu.Aspect
}

// RenderPass is a fake gpu.RenderPass.
type RenderPass struct {
	resource
	Desc gpu.RenderPassDesc
}

// Framebuffer is a fake gpu.Framebuffer.
type Framebuffer struct {
	resource
	Pass        *RenderPass
	Attachments []*ImageView
	Extent      gpu.Extent
}

// Semaphore is a fake gpu.Semaphore.
type Semaphore struct {
	resource
}

// Fence is a fake gpu.Fence.
type Fence struct {
	resource
	// Waits counts calls to Wait.
	Waits int

	signaled bool
}

// Signaled reports the fence state.
func (f *Fence) Signaled() bool { return f.signaled }

func (f *Fence) Wait(timeout time.Duration) error {
	d := f.dev
	f.Waits++
	d.trace("wait fence=%d", f.id)
	if f.signaled {
		return nil
	}
	i := d.pendingIndex(func(s *submission) bool { return s.fence == f })
	if i < 0 || d.Hang {
		return fmt.Errorf("gputest: fence %d after %v: %w", f.id, timeout, gpu.ErrTimeout)
	}
	d.completeUpTo(i)
	return nil
}

func (f *Fence) Reset() error {
	d := f.dev
	if d.pendingIndex(func(s *submission) bool { return s.fence == f }) >= 0 {
		d.violate("fence %d reset while a submission signaling it is pending", f.id)
	}
	f.signaled = false
	d.trace("reset fence=%d", f.id)
	return nil
}

// CommandBuffer is a fake gpu.CommandBuffer that records what was issued.
type CommandBuffer struct {
	resource
	// Commands lists recorded commands since the last reset.
	Commands []string
	// Framebuffer is the framebuffer of the last render pass begun.
	Framebuffer *Framebuffer
	Clear       gpu.ClearValues
	Viewport    gpu.Viewport
	Scissor     gpu.Extent

	recording bool
	inPass    bool
}

func (c *CommandBuffer) inFlight() bool {
	return c.dev.pendingIndex(func(s *submission) bool { return s.buffer == c }) >= 0
}

func (c *CommandBuffer) Reset() error {
	if c.inFlight() {
		c.dev.violate("command buffer %d reset while in flight", c.id)
	}
	c.Commands = c.Commands[:0]
	c.Framebuffer = nil
	c.recording = false
	return nil
}

func (c *CommandBuffer) Begin() error {
	if c.recording {
		c.dev.violate("command buffer %d begun twice", c.id)
	}
	if c.inFlight() {
		c.dev.violate("command buffer %d re-recorded while in flight", c.id)
	}
	c.recording = true
	c.Commands = append(c.Commands, "begin")
	return nil
}

func (c *CommandBuffer) End() error {
	if !c.recording {
		return fmt.Errorf("gputest: end on command buffer %d that is not recording: %w", c.id, gpu.ErrFatal)
	}
	if c.inPass {
		c.dev.violate("command buffer %d ended inside a render pass", c.id)
	}
	c.recording = false
	c.Commands = append(c.Commands, "end")
	return nil
}

func (c *CommandBuffer) BeginRenderPass(pass gpu.RenderPass, fb gpu.Framebuffer, area gpu.Extent, clear gpu.ClearValues) {
	c.inPass = true
	c.Framebuffer = fb.(*Framebuffer)
	c.Clear = clear
	c.Commands = append(c.Commands, "begin-pass")
}

func (c *CommandBuffer) EndRenderPass() {
	c.inPass = false
	c.Commands = append(c.Commands, "end-pass")
}

func (c *CommandBuffer) SetViewport(vp gpu.Viewport) {
	c.Viewport = vp
	c.Commands = append(c.Commands, "viewport")
}

func (c *CommandBuffer) SetScissor(area gpu.Extent) {
	c.Scissor = area
	c.Commands = append(c.Commands, "scissor")
}
