package frame

import (
	"time"

	"mini-rt/internal/gpu"
)

// fenceTable maps each drawable image to the fence of the frame slot that
// last submitted work writing it. Acquisition order is up to the
// presentation engine, so an image can come back while the slot that
// rendered it is still in flight.
type fenceTable struct {
	fences []gpu.Fence
}

func (t *fenceTable) reset(images int) {
	t.fences = make([]gpu.Fence, images)
}

// claim waits until no other slot's work on image is pending, then records
// own as the fence guarding it. The slot's own fence is skipped since the
// slot already waited on it before acquiring.
func (t *fenceTable) claim(image int, own gpu.Fence, timeout time.Duration) (waited bool, err error) {
	if prev := t.fences[image]; prev != nil && prev != own {
		if err := prev.Wait(timeout); err != nil {
			return false, gpu.Lost("frame: wait image fence", err)
		}
		waited = true
	}
	t.fences[image] = own
	return waited, nil
}
