package config

import (
	"sync"
	"time"
)

// RenderSettings holds presentation configuration read when the frame
// pipeline and the window are built.
type RenderSettings struct {
	mu             sync.RWMutex
	framesInFlight int
	vsync          bool
	fpsLimit       int
	fenceTimeout   time.Duration
	validation     bool
}

var globalRenderSettings = &RenderSettings{
	framesInFlight: 2,
	vsync:          false,
	fpsLimit:       0, // unlimited
	fenceTimeout:   10 * time.Second,
}

// GetFramesInFlight returns how many frames the host may record ahead of the device
func GetFramesInFlight() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.framesInFlight
}

// SetFramesInFlight sets how many frames the host may record ahead of the device
func SetFramesInFlight(n int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	// More than three only adds latency
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}

	globalRenderSettings.framesInFlight = n
}

// GetVSync reports whether presentation waits for vertical blank
func GetVSync() bool {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.vsync
}

func SetVSync(on bool) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.vsync = on
}

// GetFPSLimit returns the frame rate cap, 0 means unlimited
func GetFPSLimit() int {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.fpsLimit
}

// SetFPSLimit sets the frame rate cap
func SetFPSLimit(fps int) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if fps < 0 {
		fps = 0
	}
	if fps > 1000 {
		fps = 1000
	}

	globalRenderSettings.fpsLimit = fps
}

// GetFenceTimeout returns how long the host waits on a fence before
// treating the device as lost
func GetFenceTimeout() time.Duration {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.fenceTimeout
}

// SetFenceTimeout sets the fence timeout
func SetFenceTimeout(d time.Duration) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()

	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}

	globalRenderSettings.fenceTimeout = d
}

// GetValidation reports whether the device backend enables validation layers
func GetValidation() bool {
	globalRenderSettings.mu.RLock()
	defer globalRenderSettings.mu.RUnlock()
	return globalRenderSettings.validation
}

func SetValidation(on bool) {
	globalRenderSettings.mu.Lock()
	defer globalRenderSettings.mu.Unlock()
	globalRenderSettings.validation = on
}
