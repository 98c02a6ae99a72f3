package config

import (
	"testing"
	"time"
)

func TestSetFramesInFlightClamps(t *testing.T) {
	defer SetFramesInFlight(GetFramesInFlight())

	tests := []struct {
		in, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 3},
		{8, 3},
	}
	for _, tt := range tests {
		SetFramesInFlight(tt.in)
		if got := GetFramesInFlight(); got != tt.want {
			t.Errorf("SetFramesInFlight(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestSetFPSLimitClamps(t *testing.T) {
	defer SetFPSLimit(GetFPSLimit())

	SetFPSLimit(-5)
	if got := GetFPSLimit(); got != 0 {
		t.Errorf("Expected negative limit to mean unlimited, got %d", got)
	}
	SetFPSLimit(144)
	if got := GetFPSLimit(); got != 144 {
		t.Errorf("Expected 144, got %d", got)
	}
}

func TestSetFenceTimeoutFloor(t *testing.T) {
	defer SetFenceTimeout(GetFenceTimeout())

	SetFenceTimeout(time.Millisecond)
	if got := GetFenceTimeout(); got != 100*time.Millisecond {
		t.Errorf("Expected 100ms floor, got %v", got)
	}
}

func TestSetWindowSize(t *testing.T) {
	w, h := GetWindowSize()
	defer SetWindowSize(w, h)

	SetWindowSize(0, 480)
	if gw, gh := GetWindowSize(); gw != 1 || gh != 480 {
		t.Errorf("Expected 1x480, got %dx%d", gw, gh)
	}
}
