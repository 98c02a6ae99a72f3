package app

import (
	"errors"
	"testing"
	"time"

	"mini-rt/internal/entity"
	"mini-rt/internal/frame"
	"mini-rt/internal/gpu"
	"mini-rt/internal/gpu/gputest"
	"mini-rt/internal/swapchain"

	"github.com/go-gl/mathgl/mgl32"
)

type fakeWindow struct {
	polls      int
	closeAfter int
}

func (w *fakeWindow) PollEvents() { w.polls++ }
func (w *fakeWindow) ShouldClose() bool { return w.polls >= w.closeAfter }

type recorder struct {
	initErr   error
	inits     int
	disposed  int
	renders   []RenderContext
	viewports [][2]int
}

func (r *recorder) Init() error              { r.inits++; return r.initErr }
func (r *recorder) Render(ctx RenderContext) { r.renders = append(r.renders, ctx) }
func (r *recorder) Dispose()                 { r.disposed++ }
func (r *recorder) SetViewport(width, height int) {
	r.viewports = append(r.viewports, [2]int{width, height})
}

type dtRecorder struct{ dts []float64 }

func (d *dtRecorder) Update(dt float64) { d.dts = append(d.dts, dt) }

func newTestPipeline(t *testing.T, frames int) (*frame.Pipeline, *gputest.Device, *gputest.Surface) {
	t.Helper()
	dev := gputest.NewDevice(3)
	surf := gputest.NewSurface(800, 600)
	chain := swapchain.DefaultOptions()
	chain.FenceTimeout = time.Second
	p, err := frame.New(dev, surf, frame.Options{FramesInFlight: frames, Chain: chain})
	if err != nil {
		t.Fatalf("frame.New: %v", err)
	}
	t.Cleanup(p.Close)
	return p, dev, surf
}

func TestRunDrawsUntilClosed(t *testing.T) {
	p, dev, _ := newTestPipeline(t, 2)
	w := &fakeWindow{closeAfter: 5}
	rec := &recorder{}
	upd := &dtRecorder{}

	a, err := New(w, p, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.AddUpdater(upd)
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	a.Close()

	if a.FrameCount() != 5 || len(rec.renders) != 5 || len(dev.Presented) != 5 {
		t.Errorf("Expected 5 frames, got count=%d renders=%d presented=%d", a.FrameCount(), len(rec.renders), len(dev.Presented))
	}
	if len(upd.dts) != 5 {
		t.Errorf("Expected 5 updates, got %d", len(upd.dts))
	}
	if len(rec.viewports) != 1 || rec.viewports[0] != [2]int{800, 600} {
		t.Errorf("Expected a single 800x600 viewport, got %v", rec.viewports)
	}
	if rec.inits != 1 || rec.disposed != 1 {
		t.Errorf("Expected one init and one dispose, got %d and %d", rec.inits, rec.disposed)
	}

	wantProj := mgl32.Perspective(mgl32.DegToRad(fovY), 800.0/600.0, nearPlane, farPlane)
	for i, ctx := range rec.renders {
		if ctx.Frame != i%2 {
			t.Errorf("render %d: expected slot %d, got %d", i, i%2, ctx.Frame)
		}
		if ctx.Commands == nil {
			t.Errorf("render %d: missing command buffer", i)
		}
		if !ctx.Proj.ApproxEqual(wantProj) {
			t.Errorf("render %d: unexpected projection", i)
		}
	}
	if len(dev.Violations) != 0 {
		t.Errorf("Unexpected violations: %v", dev.Violations)
	}
}

func TestTickFollowsResize(t *testing.T) {
	p, _, surf := newTestPipeline(t, 2)
	rec := &recorder{}
	a, err := New(&fakeWindow{closeAfter: 100}, p, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	surf.Resize(1024, 768)
	// The frame in flight finishes on the old chain, the rebuild happens at its end.
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	want := [][2]int{{800, 600}, {1024, 768}}
	if len(rec.viewports) != len(want) || rec.viewports[0] != want[0] || rec.viewports[1] != want[1] {
		t.Errorf("Expected viewports %v, got %v", want, rec.viewports)
	}
}

func TestTickSkipsDroppedFrame(t *testing.T) {
	p, dev, _ := newTestPipeline(t, 2)
	rec := &recorder{}
	a, err := New(&fakeWindow{closeAfter: 100}, p, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dev.AcquireResults = []gpu.Result{gpu.HardInvalid}
	if err := a.Tick(); err != nil {
		t.Fatalf("Expected a dropped frame not to be an error, got %v", err)
	}
	if len(rec.renders) != 0 || a.FrameCount() != 0 {
		t.Errorf("Expected nothing recorded for a dropped frame")
	}
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if a.FrameCount() != 1 {
		t.Errorf("Expected the next tick to draw, got %d frames", a.FrameCount())
	}
}

func TestTickPropagatesDeviceLoss(t *testing.T) {
	p, dev, _ := newTestPipeline(t, 1)
	a, err := New(&fakeWindow{closeAfter: 100}, p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	dev.Hang = true
	if err := a.Run(); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("Expected Run to stop with ErrDeviceLost, got %v", err)
	}
}

func TestNewDisposesOnInitFailure(t *testing.T) {
	p, _, _ := newTestPipeline(t, 2)
	first := &recorder{}
	failing := &recorder{initErr: errors.New("no shader")}
	never := &recorder{}

	if _, err := New(&fakeWindow{}, p, first, failing, never); err == nil {
		t.Fatal("Expected New to fail")
	}
	if first.disposed != 1 {
		t.Errorf("Expected the initialized renderable to be disposed, got %d", first.disposed)
	}
	if failing.disposed != 0 || never.inits != 0 {
		t.Errorf("Expected later renderables to be left alone")
	}
}

type clearSpy struct {
	Frames
	clears []gpu.ClearValues
}

func (c *clearSpy) BeginRenderPass(cmd gpu.CommandBuffer, clear gpu.ClearValues) {
	c.clears = append(c.clears, clear)
	c.Frames.BeginRenderPass(cmd, clear)
}

type stopAfter struct {
	ticks int
	stop  chan struct{}
}

func (s *stopAfter) Update(float64) {
	s.ticks--
	if s.ticks == 0 {
		close(s.stop)
	}
}

func TestRunUntilStopsBetweenFrames(t *testing.T) {
	p, dev, _ := newTestPipeline(t, 2)
	a, err := New(&fakeWindow{closeAfter: 100}, p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s := &stopAfter{ticks: 3, stop: make(chan struct{})}
	a.AddUpdater(s)

	if err := a.RunUntil(s.stop); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if a.FrameCount() != 3 || len(dev.Presented) != 3 {
		t.Errorf("Expected 3 frames, got count=%d presented=%d", a.FrameCount(), len(dev.Presented))
	}
	if p.FrameInProgress() {
		t.Error("Expected no frame in progress after stopping")
	}

	if err := a.RunUntil(s.stop); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if a.FrameCount() != 3 {
		t.Errorf("Expected an already closed stop to draw nothing, got %d frames", a.FrameCount())
	}
}

func TestBackgroundFromScene(t *testing.T) {
	p, _, _ := newTestPipeline(t, 2)
	spy := &clearSpy{Frames: p}
	scene := NewScene(entity.NewFactory())
	a, err := New(&fakeWindow{closeAfter: 2}, spy)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.AddUpdater(scene)

	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	a.Background = scene.Background
	e := scene.Spawn()
	e.Color = mgl32.Vec3{0, 0, 1}
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(spy.clears) != 2 {
		t.Fatalf("Expected 2 render passes, got %d", len(spy.clears))
	}
	if spy.clears[0] != frame.DefaultClear {
		t.Errorf("Expected the default clear first, got %+v", spy.clears[0])
	}
	want := [4]float32{0.25, 0.125, 0.25, 1}
	if spy.clears[1].Color != want {
		t.Errorf("Expected identity orientation to clear to %v, got %v", want, spy.clears[1].Color)
	}
	if spy.clears[1].Depth != 1 {
		t.Errorf("Expected depth clear 1, got %v", spy.clears[1].Depth)
	}

	a.Camera.Look(0, -float64(maxPitch)/lookSensitivity)
	if err := a.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := spy.clears[2].Color; got == want {
		t.Errorf("Expected the camera to shade the clear color, got %v", got)
	}
}

func TestSceneDropsDead(t *testing.T) {
	scene := NewScene(entity.NewFactory())
	a := scene.Spawn()
	b := scene.Spawn()
	b.Spin = 1
	a.SetDead()

	scene.Update(0.5)
	if scene.Len() != 1 {
		t.Fatalf("Expected 1 live entity, got %d", scene.Len())
	}
	if b.Transform.Rotation != 0.5 {
		t.Errorf("Expected the survivor to be updated, got rotation %v", b.Transform.Rotation)
	}
	var seen []entity.ID
	scene.Each(func(e *entity.Entity) { seen = append(seen, e.ID()) })
	if len(seen) != 1 || seen[0] != b.ID() {
		t.Errorf("Expected Each to visit only %d, got %v", b.ID(), seen)
	}
	if got := NewScene(entity.NewFactory()).Background(); got != frame.DefaultClear {
		t.Errorf("Expected the default clear for an empty scene, got %+v", got)
	}
}
