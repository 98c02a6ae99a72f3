package swapchain

import (
	"errors"
	"testing"

	"mini-rt/internal/gpu"
	"mini-rt/internal/gpu/gputest"
)

var desired = gpu.Extent{Width: 800, Height: 600}

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := gpu.SurfaceFormat{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceSrgbNonlinear}
	unorm := gpu.SurfaceFormat{Format: gpu.FormatR8G8B8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear}
	srgbOther := gpu.SurfaceFormat{Format: gpu.FormatB8G8R8A8Srgb, ColorSpace: gpu.ColorSpaceOther}

	tests := []struct {
		name    string
		formats []gpu.SurfaceFormat
		want    gpu.SurfaceFormat
	}{
		{"preferred present", []gpu.SurfaceFormat{unorm, srgb}, srgb},
		{"preferred missing", []gpu.SurfaceFormat{unorm, srgbOther}, unorm},
		{"color space must match", []gpu.SurfaceFormat{srgbOther}, srgbOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseSurfaceFormat(tt.formats, srgb); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestChoosePresentMode(t *testing.T) {
	modes := []gpu.PresentMode{gpu.PresentModeFifo, gpu.PresentModeMailbox}
	if got := choosePresentMode(modes, gpu.PresentModeMailbox); got != gpu.PresentModeMailbox {
		t.Errorf("Expected mailbox, got %v", got)
	}
	if got := choosePresentMode(modes, gpu.PresentModeImmediate); got != gpu.PresentModeFifo {
		t.Errorf("Expected fifo fallback, got %v", got)
	}
	if got := choosePresentMode(nil, gpu.PresentModeMailbox); got != gpu.PresentModeFifo {
		t.Errorf("Expected fifo with no reported modes, got %v", got)
	}
}

func TestChooseExtent(t *testing.T) {
	caps := gpu.SurfaceCapabilities{
		CurrentExtent: gpu.Extent{Width: gpu.UndefinedExtent, Height: gpu.UndefinedExtent},
		MinExtent:     gpu.Extent{Width: 64, Height: 64},
		MaxExtent:     gpu.Extent{Width: 1024, Height: 1024},
	}

	tests := []struct {
		name    string
		current gpu.Extent
		desired gpu.Extent
		want    gpu.Extent
	}{
		{"surface decides", gpu.Extent{Width: 300, Height: 200}, desired, gpu.Extent{Width: 300, Height: 200}},
		{"within limits", caps.CurrentExtent, desired, desired},
		{"clamped high", caps.CurrentExtent, gpu.Extent{Width: 4096, Height: 10}, gpu.Extent{Width: 1024, Height: 64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := caps
			c.CurrentExtent = tt.current
			if got := chooseExtent(c, tt.desired); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max uint32
		want     uint32
	}{
		{2, 0, 3},
		{2, 8, 3},
		{3, 3, 3},
		{1, 0, 2},
	}
	for _, tt := range tests {
		got := chooseImageCount(gpu.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max})
		if got != tt.want {
			t.Errorf("min=%d max=%d: expected %d, got %d", tt.min, tt.max, tt.want, got)
		}
	}
}

func TestDepthFormatProbeOrder(t *testing.T) {
	dev := gputest.NewDevice(3)
	dev.DepthFormats = map[gpu.Format]bool{
		gpu.FormatD24UnormS8Uint:  true,
		gpu.FormatD32SfloatS8Uint: true,
	}
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Destroy()
	if c.DepthFormat() != gpu.FormatD32SfloatS8Uint {
		t.Errorf("Expected D32_SFLOAT_S8_UINT, got %v", c.DepthFormat())
	}

	dev.DepthFormats = map[gpu.Format]bool{}
	if _, err := New(dev, desired, DefaultOptions(), nil); !errors.Is(err, gpu.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported without a depth format, got %v", err)
	}
}

func TestNewRejectsZeroCurrentExtent(t *testing.T) {
	dev := gputest.NewDevice(3)
	dev.Support.Capabilities.CurrentExtent = gpu.Extent{Width: 0, Height: 0}

	c, err := New(dev, desired, DefaultOptions(), nil)
	if !errors.Is(err, ErrZeroExtent) {
		t.Fatalf("Expected ErrZeroExtent, got %v", err)
	}
	if c != nil {
		t.Error("Expected nil chain")
	}
	if dev.SwapchainsCreated != 0 || dev.Live(gputest.KindSwapchain) != 0 {
		t.Errorf("Expected no swapchain created, got %d", dev.SwapchainsCreated)
	}
}

func TestNewBuildsPerImageResources(t *testing.T) {
	dev := gputest.NewDevice(3)
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if c.ImageCount() != 3 {
		t.Fatalf("Expected 3 images, got %d", c.ImageCount())
	}
	if c.Extent() != desired {
		t.Errorf("Expected extent %v, got %v", desired, c.Extent())
	}
	if c.ColorFormat().Format != gpu.FormatB8G8R8A8Srgb {
		t.Errorf("Expected preferred color format, got %v", c.ColorFormat().Format)
	}
	if c.PresentMode() != gpu.PresentModeMailbox {
		t.Errorf("Expected mailbox, got %v", c.PresentMode())
	}

	for kind, want := range map[string]int{
		gputest.KindSwapchain:   1,
		gputest.KindRenderPass:  1,
		gputest.KindView:        6,
		gputest.KindDepthImage:  3,
		gputest.KindFramebuffer: 3,
	} {
		if got := dev.Live(kind); got != want {
			t.Errorf("Expected %d live %s, got %d", want, kind, got)
		}
	}

	for i := 0; i < c.ImageCount(); i++ {
		fb := c.Image(i).Framebuffer.(*gputest.Framebuffer)
		if len(fb.Attachments) != 2 {
			t.Fatalf("image %d: expected color and depth attachments, got %d", i, len(fb.Attachments))
		}
		if fb.Attachments[0].Aspect != gpu.AspectColor || fb.Attachments[1].Aspect != gpu.AspectDepth {
			t.Errorf("image %d: unexpected attachment aspects", i)
		}
		if fb.Attachments[0].Image.Index != i {
			t.Errorf("image %d: framebuffer bound to swapchain image %d", i, fb.Attachments[0].Image.Index)
		}
	}

	dep := dev.RenderPasses[0].Dependency
	stages := gpu.StageColorAttachmentOutput | gpu.StageEarlyFragmentTests
	if dep.SrcStages != stages || dep.DstStages != stages {
		t.Errorf("Expected dependency on color output and early fragment tests, got %v -> %v", dep.SrcStages, dep.DstStages)
	}
	if dep.DstAccess != gpu.AccessColorAttachmentWrite|gpu.AccessDepthStencilAttachmentWrite {
		t.Errorf("Expected color and depth writes gated, got %v", dep.DstAccess)
	}

	c.Destroy()
	c.Destroy()
	for _, kind := range []string{gputest.KindSwapchain, gputest.KindRenderPass, gputest.KindView, gputest.KindDepthImage, gputest.KindFramebuffer} {
		if got := dev.Live(kind); got != 0 {
			t.Errorf("Expected no live %s after Destroy, got %d", kind, got)
		}
	}
}

func TestNewPartialFailureReleasesEverything(t *testing.T) {
	kinds := []string{
		gputest.KindSwapchain,
		gputest.KindRenderPass,
		gputest.KindView,
		gputest.KindDepthImage,
		gputest.KindFramebuffer,
	}
	for _, failing := range kinds {
		t.Run(failing, func(t *testing.T) {
			dev := gputest.NewDevice(3)
			dev.FailOn = failing
			c, err := New(dev, desired, DefaultOptions(), nil)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if c != nil {
				t.Error("Expected nil chain on failure")
			}
			if !errors.Is(err, gpu.ErrNoDeviceMemory) {
				t.Errorf("Expected ErrNoDeviceMemory, got %v", err)
			}
			for _, kind := range kinds {
				if got := dev.Live(kind); got != 0 {
					t.Errorf("Expected no live %s, got %d", kind, got)
				}
			}
		})
	}
}

func TestNewHandsPreviousToDevice(t *testing.T) {
	dev := gputest.NewDevice(3)
	old, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	next, err := New(dev, gpu.Extent{Width: 640, Height: 480}, DefaultOptions(), old)
	if err != nil {
		t.Fatalf("New with previous: %v", err)
	}
	defer next.Destroy()

	sc := next.swapchain.(*gputest.Swapchain)
	if sc.Previous != old.swapchain.(*gputest.Swapchain) {
		t.Error("Expected the old swapchain to be passed as previous")
	}
	if next.previous != nil {
		t.Error("Expected the previous link to be dropped after construction")
	}
	if got := dev.Live(gputest.KindSwapchain); got != 2 {
		t.Errorf("Expected old chain to stay alive until its owner destroys it, got %d live", got)
	}
	old.Destroy()
	if got := dev.Live(gputest.KindSwapchain); got != 1 {
		t.Errorf("Expected 1 live swapchain, got %d", got)
	}
}

func TestCompareFormat(t *testing.T) {
	a, err := New(gputest.NewDevice(3), desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(gputest.NewDevice(2), gpu.Extent{Width: 320, Height: 240}, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !a.CompareFormat(a) {
		t.Error("Expected CompareFormat to be reflexive")
	}
	if !a.CompareFormat(b) || !b.CompareFormat(a) {
		t.Error("Expected chains built from the same surface formats to match")
	}
	if a.CompareFormat(nil) {
		t.Error("Expected no match against nil")
	}

	dev := gputest.NewDevice(3)
	dev.Support.Formats = []gpu.SurfaceFormat{{Format: gpu.FormatR8G8B8A8Unorm, ColorSpace: gpu.ColorSpaceSrgbNonlinear}}
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.CompareFormat(c) {
		t.Error("Expected a different color format to mismatch")
	}
}

func TestAcquireTimeoutIsDeviceLost(t *testing.T) {
	dev := gputest.NewDevice(3)
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fence, _ := dev.NewFence(false)
	sem, _ := dev.NewSemaphore()

	idx, _, err := c.AcquireNext(fence, sem)
	if !errors.Is(err, gpu.ErrDeviceLost) || !errors.Is(err, gpu.ErrTimeout) {
		t.Fatalf("Expected device loss from a fence that never signals, got %v", err)
	}
	if idx != -1 {
		t.Errorf("Expected index -1, got %d", idx)
	}
}

func TestAcquireHardInvalid(t *testing.T) {
	dev := gputest.NewDevice(3)
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dev.AcquireResults = []gpu.Result{gpu.HardInvalid}
	fence, _ := dev.NewFence(true)
	sem, _ := dev.NewSemaphore()

	idx, res, err := c.AcquireNext(fence, sem)
	if err != nil {
		t.Fatalf("Expected hard invalidation as a result, got error %v", err)
	}
	if res != gpu.HardInvalid || idx != -1 {
		t.Errorf("Expected (-1, hard-invalid), got (%d, %v)", idx, res)
	}
}

func TestSubmitAndPresent(t *testing.T) {
	dev := gputest.NewDevice(3)
	c, err := New(dev, desired, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fence, _ := dev.NewFence(true)
	acquired, _ := dev.NewSemaphore()
	rendered, _ := dev.NewSemaphore()
	cmd, _ := dev.NewCommandBuffer()

	idx, res, err := c.AcquireNext(fence, acquired)
	if err != nil || res != gpu.Success {
		t.Fatalf("AcquireNext: %v %v", res, err)
	}
	_ = cmd.Begin()
	_ = cmd.End()
	_ = fence.Reset()

	dev.PresentResults = []gpu.Result{gpu.SoftInvalid}
	res, err = c.SubmitAndPresent(cmd, acquired, rendered, fence, idx)
	if err != nil {
		t.Fatalf("SubmitAndPresent: %v", err)
	}
	if res != gpu.SoftInvalid {
		t.Errorf("Expected the present result to be passed through, got %v", res)
	}
	if len(dev.Presented) != 1 || dev.Presented[0] != idx {
		t.Errorf("Expected image %d presented, got %v", idx, dev.Presented)
	}
	if dev.Pending() != 1 {
		t.Errorf("Expected the submission to be in flight, got %d pending", dev.Pending())
	}
	if len(dev.Violations) != 0 {
		t.Errorf("Unexpected violations: %v", dev.Violations)
	}

	dev.FailOn = gputest.KindSubmit
	if _, err := c.SubmitAndPresent(cmd, nil, rendered, nil, idx); !errors.Is(err, gpu.ErrNoDeviceMemory) {
		t.Errorf("Expected submit failure to propagate, got %v", err)
	}
}
