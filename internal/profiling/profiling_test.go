package profiling

import (
	"testing"
	"time"
)

func TestTopNOrdersByDuration(t *testing.T) {
	ResetFrame()
	mu.Lock()
	frameTotals["small"] = 500 * time.Microsecond
	frameTotals["large"] = 4200 * time.Microsecond
	frameTotals["medium"] = 2 * time.Millisecond
	mu.Unlock()

	tests := []struct {
		n    int
		want string
	}{
		{1, "large:4.2ms"},
		{2, "large:4.2ms, medium:2ms"},
		{10, "large:4.2ms, medium:2ms, small:0.5ms"},
	}
	for _, tt := range tests {
		if got := TopN(tt.n); got != tt.want {
			t.Errorf("TopN(%d): expected %q, got %q", tt.n, tt.want, got)
		}
	}

	ResetFrame()
	if got := TopN(3); got != "" {
		t.Errorf("Expected empty frame after reset, got %q", got)
	}
}

func TestCountSurvivesResetFrame(t *testing.T) {
	before := Counter("test.event")
	Count("test.event")
	Count("test.event")
	ResetFrame()
	if got := Counter("test.event") - before; got != 2 {
		t.Errorf("Expected 2 counted events, got %d", got)
	}
}

func TestTrackAccumulates(t *testing.T) {
	ResetFrame()
	Track("test.track")()
	Track("test.track")()
	if _, ok := Snapshot()["test.track"]; !ok {
		t.Error("Expected test.track in the frame snapshot")
	}
}
