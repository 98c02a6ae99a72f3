package vkdevice

import (
	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

// queue serves as both the graphics and the present queue.
type queue struct {
	dev    *Device
	handle vk.Queue
}

func (q *queue) Submit(s gpu.Submission) error {
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{s.Buffer.(*commandBuffer).handle},
	}
	if s.Wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{s.Wait.(*semaphore).handle}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{toVkStages(s.WaitStage)}
	}
	if s.Signal != nil {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{s.Signal.(*semaphore).handle}
	}
	signal := vk.Fence(vk.NullHandle)
	if s.Fence != nil {
		signal = s.Fence.(*fence).handle
	}
	return check("queue submit", vk.QueueSubmit(q.handle, 1, []vk.SubmitInfo{info}, signal))
}

func (q *queue) Present(sc gpu.Swapchain, index int, wait gpu.Semaphore) (gpu.Result, error) {
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.(*swapchain).handle},
		PImageIndices:  []uint32{uint32(index)},
	}
	if wait != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{wait.(*semaphore).handle}
	}
	return presentResult("queue present", vk.QueuePresent(q.handle, &info))
}
