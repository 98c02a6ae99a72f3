package vkdevice

import (
	"fmt"

	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

func (d *Device) capabilities() (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := check("surface capabilities", vk.GetPhysicalDeviceSurfaceCapabilities(d.physical, d.surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return caps, nil
}

// SurfaceSupport queries the surface afresh. Formats and present modes that
// have no gpu equivalent are left out.
func (d *Device) SurfaceSupport() (gpu.SurfaceSupport, error) {
	var support gpu.SurfaceSupport

	caps, err := d.capabilities()
	if err != nil {
		return support, err
	}
	support.Capabilities = gpu.SurfaceCapabilities{
		MinImageCount: caps.MinImageCount,
		MaxImageCount: caps.MaxImageCount,
		CurrentExtent: gpu.Extent{Width: caps.CurrentExtent.Width, Height: caps.CurrentExtent.Height},
		MinExtent:     gpu.Extent{Width: caps.MinImageExtent.Width, Height: caps.MinImageExtent.Height},
		MaxExtent:     gpu.Extent{Width: caps.MaxImageExtent.Width, Height: caps.MaxImageExtent.Height},
	}

	var count uint32
	if err := check("surface formats", vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, nil)); err != nil {
		return support, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := check("surface formats", vk.GetPhysicalDeviceSurfaceFormats(d.physical, d.surface, &count, formats)); err != nil {
		return support, err
	}
	for i := range formats {
		formats[i].Deref()
		f := fromVkFormat(formats[i].Format)
		if f == gpu.FormatUndefined {
			continue
		}
		sf := gpu.SurfaceFormat{Format: f, ColorSpace: fromVkColorSpace(formats[i].ColorSpace)}
		if _, seen := d.surfaceFormats[sf]; !seen {
			d.surfaceFormats[sf] = formats[i]
		}
		support.Formats = append(support.Formats, sf)
	}
	if len(support.Formats) == 0 {
		return support, fmt.Errorf("vkdevice: none of %d surface formats is usable: %w", count, gpu.ErrUnsupported)
	}

	if err := check("present modes", vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, nil)); err != nil {
		return support, err
	}
	modes := make([]vk.PresentMode, count)
	if err := check("present modes", vk.GetPhysicalDeviceSurfacePresentModes(d.physical, d.surface, &count, modes)); err != nil {
		return support, err
	}
	for _, vm := range modes {
		if m, ok := fromVkPresentMode(vm); ok {
			support.PresentModes = append(support.PresentModes, m)
		}
	}
	return support, nil
}

func (d *Device) DepthFormatSupported(f gpu.Format) bool {
	vf, ok := vkFormats[f]
	if !ok || !f.IsDepth() {
		return false
	}
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physical, vf, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0
}

func (d *Device) memoryType(typeBits uint32, want vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		flags := d.memProps.MemoryTypes[i].PropertyFlags
		if flags&vk.MemoryPropertyFlags(want) == vk.MemoryPropertyFlags(want) {
			return i, true
		}
	}
	return 0, false
}
