package app

import (
	"testing"
	"time"
)

func TestFPSLimiterUnlimited(t *testing.T) {
	f := &FPSLimiter{limit: func() int { return 0 }}
	start := time.Now()
	for i := 0; i < 100; i++ {
		f.Wait()
	}
	if took := time.Since(start); took > 50*time.Millisecond {
		t.Errorf("Expected no pacing without a cap, took %v", took)
	}
	if !f.next.IsZero() {
		t.Error("Expected no deadline without a cap")
	}
}

func TestFPSLimiterPaces(t *testing.T) {
	f := &FPSLimiter{limit: func() int { return 200 }}
	start := time.Now()
	for i := 0; i < 4; i++ {
		f.Wait()
	}
	if took := time.Since(start); took < 19*time.Millisecond {
		t.Errorf("Expected 4 frames at 200 fps to take at least 20ms, took %v", took)
	}
}

func TestFPSLimiterResyncsAfterHitch(t *testing.T) {
	f := &FPSLimiter{limit: func() int { return 1000 }}
	f.Wait()
	time.Sleep(20 * time.Millisecond)
	before := time.Now()
	f.Wait()
	if !f.next.After(before) {
		t.Errorf("Expected the deadline to move past the hitch, it is %v behind", before.Sub(f.next))
	}
}
