package gputest

import "mini-rt/internal/gpu"

// Surface is a fake display surface for frame.Pipeline.
type Surface struct {
	Current gpu.Extent
	Resized bool

	// Upcoming extents become current one per WaitEvents call, modelling
	// a window being restored from minimization.
	Upcoming []gpu.Extent

	WaitEventsCalls int
	ClearCalls      int
}

// NewSurface returns a surface of the given size with no resize pending.
func NewSurface(width, height uint32) *Surface {
	return &Surface{Current: gpu.Extent{Width: width, Height: height}}
}

// Resize changes the extent and raises the resize flag.
func (s *Surface) Resize(width, height uint32) {
	s.Current = gpu.Extent{Width: width, Height: height}
	s.Resized = true
}

func (s *Surface) Extent() gpu.Extent { return s.Current }

func (s *Surface) ResizePending() bool { return s.Resized }

func (s *Surface) ClearResizePending() {
	s.Resized = false
	s.ClearCalls++
}

// WaitEvents advances to the next upcoming extent. It panics when none is
// left and the current extent is degenerate, since a real window would
// block forever.
func (s *Surface) WaitEvents() {
	s.WaitEventsCalls++
	if len(s.Upcoming) == 0 {
		if s.Current.Degenerate() {
			panic("gputest: WaitEvents would block forever on a degenerate surface")
		}
		return
	}
	s.Current = s.Upcoming[0]
	s.Upcoming = s.Upcoming[1:]
}
