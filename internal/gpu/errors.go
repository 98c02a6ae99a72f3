package gpu

import (
	"errors"
	"fmt"
)

// Errors returned by device implementations. Every one of them is fatal for
// the frame pipeline; surface invalidation is reported through Result, not
// through an error.
var (
	// ErrTimeout means a bounded wait expired.
	ErrTimeout = errors.New("gpu: wait timed out")

	// ErrDeviceLost means the device stopped executing work. Wait timeouts
	// on in-flight fences are reported as device loss as well.
	ErrDeviceLost = errors.New("gpu: device lost")

	ErrNoHostMemory   = errors.New("gpu: out of host memory")
	ErrNoDeviceMemory = errors.New("gpu: out of device memory")

	// ErrUnsupported means the device or surface lacks a required capability.
	ErrUnsupported = errors.New("gpu: capability not supported")

	// ErrSurfaceLost means the surface is gone and cannot be presented to again.
	ErrSurfaceLost = errors.New("gpu: surface lost")

	// ErrFatal covers every other unrecoverable device failure.
	ErrFatal = errors.New("gpu: fatal error")
)

// Lost annotates err with op. A timed out wait is additionally reported as
// ErrDeviceLost.
func Lost(op string, err error) error {
	if errors.Is(err, ErrTimeout) && !errors.Is(err, ErrDeviceLost) {
		return fmt.Errorf("%s: %w: %w", op, ErrDeviceLost, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
