package vkdevice

import (
	"time"

	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

type semaphore struct {
	dev    *Device
	handle vk.Semaphore
}

func (s *semaphore) Destroy() {
	if s.handle == vk.Semaphore(vk.NullHandle) {
		return
	}
	vk.DestroySemaphore(s.dev.device, s.handle, nil)
	s.handle = vk.Semaphore(vk.NullHandle)
}

func (d *Device) NewSemaphore() (gpu.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var handle vk.Semaphore
	if err := check("create semaphore", vk.CreateSemaphore(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &semaphore{dev: d, handle: handle}, nil
}

type fence struct {
	dev    *Device
	handle vk.Fence
}

func (f *fence) Wait(timeout time.Duration) error {
	res := vk.WaitForFences(f.dev.device, 1, []vk.Fence{f.handle}, vk.True, uint64(timeout.Nanoseconds()))
	return check("wait for fence", res)
}

func (f *fence) Reset() error {
	return check("reset fence", vk.ResetFences(f.dev.device, 1, []vk.Fence{f.handle}))
}

func (f *fence) Destroy() {
	if f.handle == vk.Fence(vk.NullHandle) {
		return
	}
	vk.DestroyFence(f.dev.device, f.handle, nil)
	f.handle = vk.Fence(vk.NullHandle)
}

func (d *Device) NewFence(signaled bool) (gpu.Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if err := check("create fence", vk.CreateFence(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &fence{dev: d, handle: handle}, nil
}
