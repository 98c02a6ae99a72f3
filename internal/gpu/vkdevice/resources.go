package vkdevice

import (
	"fmt"
	"time"

	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

type swapchain struct {
	dev    *Device
	handle vk.Swapchain
	images []gpu.Image
}

func (s *swapchain) Images() []gpu.Image { return s.images }

func (s *swapchain) AcquireNext(timeout time.Duration, signal gpu.Semaphore) (int, gpu.Result, error) {
	var index uint32
	res := vk.AcquireNextImage(s.dev.device, s.handle, uint64(timeout.Nanoseconds()),
		signal.(*semaphore).handle, vk.Fence(vk.NullHandle), &index)
	result, err := presentResult("acquire next image", res)
	if err != nil {
		return -1, 0, err
	}
	if result == gpu.HardInvalid {
		return -1, result, nil
	}
	return int(index), result, nil
}

func (s *swapchain) Destroy() {
	if s.handle == vk.Swapchain(vk.NullHandle) {
		return
	}
	vk.DestroySwapchain(s.dev.device, s.handle, nil)
	s.handle = vk.Swapchain(vk.NullHandle)
	s.images = nil
}

func (d *Device) NewSwapchain(desc gpu.SwapchainDesc, previous gpu.Swapchain) (gpu.Swapchain, error) {
	caps, err := d.capabilities()
	if err != nil {
		return nil, err
	}
	native, ok := d.surfaceFormats[desc.Format]
	if !ok {
		native = vk.SurfaceFormat{Format: toVkFormat(desc.Format.Format), ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	old := vk.Swapchain(vk.NullHandle)
	if previous != nil {
		old = previous.(*swapchain).handle
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    desc.MinImageCount,
		ImageFormat:      native.Format,
		ImageColorSpace:  native.ColorSpace,
		ImageExtent:      vk.Extent2D{Width: desc.Extent.Width, Height: desc.Extent.Height},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      toVkPresentMode(desc.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if d.graphicsFamily != d.presentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var handle vk.Swapchain
	if err := check("create swapchain", vk.CreateSwapchain(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	sc := &swapchain{dev: d, handle: handle}

	var count uint32
	if err := check("swapchain images", vk.GetSwapchainImages(d.device, handle, &count, nil)); err != nil {
		sc.Destroy()
		return nil, err
	}
	handles := make([]vk.Image, count)
	if err := check("swapchain images", vk.GetSwapchainImages(d.device, handle, &count, handles)); err != nil {
		sc.Destroy()
		return nil, err
	}
	sc.images = make([]gpu.Image, count)
	for i, h := range handles {
		sc.images[i] = &image{dev: d, handle: h}
	}
	return sc, nil
}

// image either borrows a swapchain image or owns a depth image and its memory.
type image struct {
	dev    *Device
	handle vk.Image
	memory vk.DeviceMemory
	owned  bool
}

func (i *image) Destroy() {
	if !i.owned || i.handle == vk.Image(vk.NullHandle) {
		return
	}
	vk.DestroyImage(i.dev.device, i.handle, nil)
	if i.memory != vk.DeviceMemory(vk.NullHandle) {
		vk.FreeMemory(i.dev.device, i.memory, nil)
	}
	i.handle = vk.Image(vk.NullHandle)
	i.memory = vk.DeviceMemory(vk.NullHandle)
}

func (d *Device) NewDepthImage(extent gpu.Extent, f gpu.Format) (gpu.Image, error) {
	info := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        toVkFormat(f),
		Extent:        vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var handle vk.Image
	if err := check("create depth image", vk.CreateImage(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	img := &image{dev: d, handle: handle, owned: true}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, handle, &req)
	req.Deref()
	typeIndex, ok := d.memoryType(req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		img.Destroy()
		return nil, fmt.Errorf("vkdevice: no device-local memory for depth image: %w", gpu.ErrNoDeviceMemory)
	}
	alloc := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}
	var memory vk.DeviceMemory
	if err := check("allocate depth memory", vk.AllocateMemory(d.device, &alloc, nil, &memory)); err != nil {
		img.Destroy()
		return nil, err
	}
	img.memory = memory
	if err := check("bind depth memory", vk.BindImageMemory(d.device, handle, memory, 0)); err != nil {
		img.Destroy()
		return nil, err
	}
	return img, nil
}

type imageView struct {
	dev    *Device
	handle vk.ImageView
}

func (v *imageView) Destroy() {
	if v.handle == vk.ImageView(vk.NullHandle) {
		return
	}
	vk.DestroyImageView(v.dev.device, v.handle, nil)
	v.handle = vk.ImageView(vk.NullHandle)
}

func (d *Device) NewImageView(img gpu.Image, f gpu.Format, aspect gpu.Aspect) (gpu.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.(*image).handle,
		ViewType: vk.ImageViewType2d,
		Format:   toVkFormat(f),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: toVkAspect(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var handle vk.ImageView
	if err := check("create image view", vk.CreateImageView(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &imageView{dev: d, handle: handle}, nil
}

type renderPass struct {
	dev    *Device
	handle vk.RenderPass
}

func (p *renderPass) Destroy() {
	if p.handle == vk.RenderPass(vk.NullHandle) {
		return
	}
	vk.DestroyRenderPass(p.dev.device, p.handle, nil)
	p.handle = vk.RenderPass(vk.NullHandle)
}

func (d *Device) NewRenderPass(desc gpu.RenderPassDesc) (gpu.RenderPass, error) {
	attachments := []vk.AttachmentDescription{
		{
			Format:         toVkFormat(desc.ColorFormat),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         toVkFormat(desc.DepthFormat),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpasses := []vk.SubpassDescription{{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorRef,
		PDepthStencilAttachment: &depthRef,
	}}
	dependencies := []vk.SubpassDependency{{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  toVkStages(desc.Dependency.SrcStages),
		DstStageMask:  toVkStages(desc.Dependency.DstStages),
		SrcAccessMask: toVkAccess(desc.Dependency.SrcAccess),
		DstAccessMask: toVkAccess(desc.Dependency.DstAccess),
	}}
	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
	var handle vk.RenderPass
	if err := check("create render pass", vk.CreateRenderPass(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &renderPass{dev: d, handle: handle}, nil
}

type framebuffer struct {
	dev    *Device
	handle vk.Framebuffer
}

func (f *framebuffer) Destroy() {
	if f.handle == vk.Framebuffer(vk.NullHandle) {
		return
	}
	vk.DestroyFramebuffer(f.dev.device, f.handle, nil)
	f.handle = vk.Framebuffer(vk.NullHandle)
}

func (d *Device) NewFramebuffer(pass gpu.RenderPass, attachments []gpu.ImageView, extent gpu.Extent) (gpu.Framebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		views[i] = a.(*imageView).handle
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.(*renderPass).handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if err := check("create framebuffer", vk.CreateFramebuffer(d.device, &info, nil, &handle)); err != nil {
		return nil, err
	}
	return &framebuffer{dev: d, handle: handle}, nil
}
