// Package gpu defines the device-agnostic vocabulary shared by the drawable
// chain, the frame pipeline and the device backends: formats, extents,
// presentation results and the small capability interfaces each consumer
// needs from a graphics device.
package gpu

import "math"

// Format identifies a pixel format
type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Srgb
	FormatB8G8R8A8Unorm
	FormatR8G8B8A8Srgb
	FormatR8G8B8A8Unorm
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatD24UnormS8Uint
)

var formatNames = [...]string{
	FormatUndefined:       "undefined",
	FormatB8G8R8A8Srgb:    "B8G8R8A8_SRGB",
	FormatB8G8R8A8Unorm:   "B8G8R8A8_UNORM",
	FormatR8G8B8A8Srgb:    "R8G8B8A8_SRGB",
	FormatR8G8B8A8Unorm:   "R8G8B8A8_UNORM",
	FormatD32Sfloat:       "D32_SFLOAT",
	FormatD32SfloatS8Uint: "D32_SFLOAT_S8_UINT",
	FormatD24UnormS8Uint:  "D24_UNORM_S8_UINT",
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// IsDepth reports whether f carries a depth component
func (f Format) IsDepth() bool {
	switch f {
	case FormatD32Sfloat, FormatD32SfloatS8Uint, FormatD24UnormS8Uint:
		return true
	}
	return false
}

// ColorSpace identifies how presented color values are interpreted
type ColorSpace int

const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
	ColorSpaceOther
)

// SurfaceFormat pairs a color format with the color space it is presented in.
type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

// PresentMode selects how presented images are queued for display
type PresentMode int

const (
	// PresentModeFifo is vsynced and the only mode every surface must support.
	PresentModeFifo PresentMode = iota
	// PresentModeMailbox replaces the queued image, low latency without tearing.
	PresentModeMailbox
	PresentModeImmediate
	PresentModeFifoRelaxed
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeMailbox:
		return "mailbox"
	case PresentModeImmediate:
		return "immediate"
	case PresentModeFifoRelaxed:
		return "fifo-relaxed"
	}
	return "unknown"
}

// UndefinedExtent is the width/height a surface reports as its current
// extent when the swapchain decides the size.
const UndefinedExtent = math.MaxUint32

// Extent is a two-dimensional size in pixels
type Extent struct {
	Width  uint32
	Height uint32
}

// Degenerate reports whether either dimension is zero, which happens while
// a window is minimized.
func (e Extent) Degenerate() bool {
	return e.Width == 0 || e.Height == 0
}

// Defined reports whether e is a real size rather than the UndefinedExtent marker.
func (e Extent) Defined() bool {
	return e.Width != UndefinedExtent
}

// Clamp limits each dimension of e to [lo, hi]
func (e Extent) Clamp(lo, hi Extent) Extent {
	return Extent{
		Width:  clampU32(e.Width, lo.Width, hi.Width),
		Height: clampU32(e.Height, lo.Height, hi.Height),
	}
}

// AspectRatio returns width divided by height, or 0 for a degenerate extent.
func (e Extent) AspectRatio() float32 {
	if e.Height == 0 {
		return 0
	}
	return float32(e.Width) / float32(e.Height)
}

func clampU32(v, lo, hi uint32) uint32 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// SurfaceCapabilities are the limits a surface places on drawable chains built against it.
type SurfaceCapabilities struct {
	MinImageCount uint32
	// MaxImageCount of 0 means there is no upper limit.
	MaxImageCount uint32
	CurrentExtent Extent
	MinExtent     Extent
	MaxExtent     Extent
}

// SurfaceSupport is everything a device reports about presenting to its surface.
type SurfaceSupport struct {
	Capabilities SurfaceCapabilities
	Formats      []SurfaceFormat
	PresentModes []PresentMode
}

// Result is the outcome of an acquire or present operation that did not fail.
type Result int

const (
	// Success means the chain is fully usable.
	Success Result = iota
	// SoftInvalid means an image was produced or presented but the chain
	// no longer matches the surface exactly and should be rebuilt soon.
	SoftInvalid
	// HardInvalid means the surface cannot use the chain at all until it is rebuilt.
	HardInvalid
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case SoftInvalid:
		return "soft-invalid"
	case HardInvalid:
		return "hard-invalid"
	}
	return "unknown"
}

// Stage is a set of pipeline stages used to scope synchronization
type Stage uint32

const (
	StageColorAttachmentOutput Stage = 1 << iota
	StageEarlyFragmentTests
)

// Access is a set of memory access types used to scope synchronization
type Access uint32

const (
	AccessColorAttachmentWrite Access = 1 << iota
	AccessDepthStencilAttachmentWrite
)

// Aspect selects which part of an image a view exposes
type Aspect int

const (
	AspectColor Aspect = iota
	AspectDepth
)
