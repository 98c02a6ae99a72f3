package vkdevice

import (
	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

type commandBuffer struct {
	dev    *Device
	handle vk.CommandBuffer
}

func (d *Device) NewCommandBuffer() (gpu.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := check("allocate command buffer", vk.AllocateCommandBuffers(d.device, &info, buffers)); err != nil {
		return nil, err
	}
	return &commandBuffer{dev: d, handle: buffers[0]}, nil
}

func (c *commandBuffer) Reset() error {
	return check("reset command buffer", vk.ResetCommandBuffer(c.handle, 0))
}

func (c *commandBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return check("begin command buffer", vk.BeginCommandBuffer(c.handle, &info))
}

func (c *commandBuffer) End() error {
	return check("end command buffer", vk.EndCommandBuffer(c.handle))
}

func (c *commandBuffer) BeginRenderPass(pass gpu.RenderPass, fb gpu.Framebuffer, area gpu.Extent, clear gpu.ClearValues) {
	clearValues := []vk.ClearValue{
		vk.NewClearValue(clear.Color[:]),
		vk.NewClearDepthStencil(clear.Depth, clear.Stencil),
	}
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.(*renderPass).handle,
		Framebuffer: fb.(*framebuffer).handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.handle, &info, vk.SubpassContentsInline)
}

func (c *commandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.handle)
}

func (c *commandBuffer) SetViewport(vp gpu.Viewport) {
	vk.CmdSetViewport(c.handle, 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}})
}

func (c *commandBuffer) SetScissor(area gpu.Extent) {
	vk.CmdSetScissor(c.handle, 0, 1, []vk.Rect2D{{
		Extent: vk.Extent2D{Width: area.Width, Height: area.Height},
	}})
}

func (c *commandBuffer) Destroy() {
	if c.handle == nil {
		return
	}
	vk.FreeCommandBuffers(c.dev.device, c.dev.pool, 1, []vk.CommandBuffer{c.handle})
	c.handle = nil
}
