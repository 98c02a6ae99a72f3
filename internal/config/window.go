package config

import "sync"

// WindowSettings holds the initial window configuration
type WindowSettings struct {
	mu     sync.RWMutex
	width  int
	height int
	title  string
}

var globalWindowSettings = &WindowSettings{
	width:  1280,
	height: 720,
	title:  "mini-rt",
}

// GetWindowSize returns the initial window size in screen coordinates
func GetWindowSize() (int, int) {
	globalWindowSettings.mu.RLock()
	defer globalWindowSettings.mu.RUnlock()
	return globalWindowSettings.width, globalWindowSettings.height
}

// SetWindowSize sets the initial window size
func SetWindowSize(width, height int) {
	globalWindowSettings.mu.Lock()
	defer globalWindowSettings.mu.Unlock()

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	globalWindowSettings.width = width
	globalWindowSettings.height = height
}

func GetWindowTitle() string {
	globalWindowSettings.mu.RLock()
	defer globalWindowSettings.mu.RUnlock()
	return globalWindowSettings.title
}

func SetWindowTitle(title string) {
	globalWindowSettings.mu.Lock()
	defer globalWindowSettings.mu.Unlock()
	globalWindowSettings.title = title
}
