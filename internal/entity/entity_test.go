package entity

import (
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFactoryIDs(t *testing.T) {
	a, b := NewFactory(), NewFactory()

	for want := ID(0); want < 3; want++ {
		if got := a.New().ID(); got != want {
			t.Errorf("Expected id %d, got %d", want, got)
		}
	}
	if got := b.New().ID(); got != 0 {
		t.Errorf("Expected an independent factory to start at 0, got %d", got)
	}
	if a.Issued() != 3 {
		t.Errorf("Expected 3 ids issued, got %d", a.Issued())
	}
}

func TestFactoryConcurrentIDsUnique(t *testing.T) {
	f := NewFactory()
	const n = 200
	ids := make(chan ID, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- f.New().ID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ID]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestTransform2D(t *testing.T) {
	tests := []struct {
		name string
		tr   Transform2D
		in   mgl32.Vec2
		want mgl32.Vec2
	}{
		{"identity", Identity(), mgl32.Vec2{3, 4}, mgl32.Vec2{3, 4}},
		{"scale then rotate", Transform2D{Scale: mgl32.Vec2{2, 1}, Rotation: math.Pi / 2}, mgl32.Vec2{1, 0}, mgl32.Vec2{0, 2}},
		{"translate last", Transform2D{Translation: mgl32.Vec2{5, -1}, Scale: mgl32.Vec2{1, 3}}, mgl32.Vec2{1, 1}, mgl32.Vec2{6, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.Apply(tt.in)
			if !got.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			h := tt.tr.Homogeneous().Mul3x1(tt.in.Vec3(1))
			if !h.Vec2().ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("Homogeneous: expected %v, got %v", tt.want, h.Vec2())
			}
		})
	}
}

func TestUpdateSpins(t *testing.T) {
	e := NewFactory().New()
	e.Spin = 2
	e.Update(0.25)
	if !mgl32.FloatEqual(e.Transform.Rotation, 0.5) {
		t.Errorf("Expected rotation 0.5, got %v", e.Transform.Rotation)
	}
}
