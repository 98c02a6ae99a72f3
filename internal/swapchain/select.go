package swapchain

import (
	"fmt"

	"mini-rt/internal/gpu"
)

// chooseSurfaceFormat returns preferred when the surface offers it exactly,
// otherwise the first reported format.
func chooseSurfaceFormat(formats []gpu.SurfaceFormat, preferred gpu.SurfaceFormat) gpu.SurfaceFormat {
	for _, f := range formats {
		if f == preferred {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode falls back to FIFO, which every surface supports.
func choosePresentMode(modes []gpu.PresentMode, preferred gpu.PresentMode) gpu.PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return gpu.PresentModeFifo
}

// chooseExtent uses the surface's current extent when it defines one and
// otherwise clamps the desired size to what the surface accepts.
func chooseExtent(caps gpu.SurfaceCapabilities, desired gpu.Extent) gpu.Extent {
	if caps.CurrentExtent.Defined() {
		return caps.CurrentExtent
	}
	return desired.Clamp(caps.MinExtent, caps.MaxExtent)
}

// chooseImageCount asks for one image more than the minimum so the host is
// never blocked on the presentation engine for the last image.
func chooseImageCount(caps gpu.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func chooseDepthFormat(q gpu.SurfaceQuerier, candidates []gpu.Format) (gpu.Format, error) {
	for _, f := range candidates {
		if q.DepthFormatSupported(f) {
			return f, nil
		}
	}
	return gpu.FormatUndefined, fmt.Errorf("swapchain: no depth format among %v: %w", candidates, gpu.ErrUnsupported)
}
