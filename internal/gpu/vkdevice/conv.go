package vkdevice

import (
	"fmt"
	"strings"

	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

var vkFormats = map[gpu.Format]vk.Format{
	gpu.FormatB8G8R8A8Srgb:    vk.FormatB8g8r8a8Srgb,
	gpu.FormatB8G8R8A8Unorm:   vk.FormatB8g8r8a8Unorm,
	gpu.FormatR8G8B8A8Srgb:    vk.FormatR8g8b8a8Srgb,
	gpu.FormatR8G8B8A8Unorm:   vk.FormatR8g8b8a8Unorm,
	gpu.FormatD32Sfloat:       vk.FormatD32Sfloat,
	gpu.FormatD32SfloatS8Uint: vk.FormatD32SfloatS8Uint,
	gpu.FormatD24UnormS8Uint:  vk.FormatD24UnormS8Uint,
}

func toVkFormat(f gpu.Format) vk.Format {
	if vf, ok := vkFormats[f]; ok {
		return vf
	}
	return vk.FormatUndefined
}

func fromVkFormat(vf vk.Format) gpu.Format {
	for f, v := range vkFormats {
		if v == vf {
			return f
		}
	}
	return gpu.FormatUndefined
}

func fromVkColorSpace(cs vk.ColorSpace) gpu.ColorSpace {
	if cs == vk.ColorSpaceSrgbNonlinear {
		return gpu.ColorSpaceSrgbNonlinear
	}
	return gpu.ColorSpaceOther
}

var vkPresentModes = map[gpu.PresentMode]vk.PresentMode{
	gpu.PresentModeFifo:        vk.PresentModeFifo,
	gpu.PresentModeMailbox:     vk.PresentModeMailbox,
	gpu.PresentModeImmediate:   vk.PresentModeImmediate,
	gpu.PresentModeFifoRelaxed: vk.PresentModeFifoRelaxed,
}

func toVkPresentMode(m gpu.PresentMode) vk.PresentMode {
	if vm, ok := vkPresentModes[m]; ok {
		return vm
	}
	return vk.PresentModeFifo
}

// fromVkPresentMode reports false for modes this package does not use.
func fromVkPresentMode(vm vk.PresentMode) (gpu.PresentMode, bool) {
	for m, v := range vkPresentModes {
		if v == vm {
			return m, true
		}
	}
	return 0, false
}

func toVkStages(s gpu.Stage) vk.PipelineStageFlags {
	var out vk.PipelineStageFlagBits
	if s&gpu.StageColorAttachmentOutput != 0 {
		out |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&gpu.StageEarlyFragmentTests != 0 {
		out |= vk.PipelineStageEarlyFragmentTestsBit
	}
	return vk.PipelineStageFlags(out)
}

func toVkAccess(a gpu.Access) vk.AccessFlags {
	var out vk.AccessFlagBits
	if a&gpu.AccessColorAttachmentWrite != 0 {
		out |= vk.AccessColorAttachmentWriteBit
	}
	if a&gpu.AccessDepthStencilAttachmentWrite != 0 {
		out |= vk.AccessDepthStencilAttachmentWriteBit
	}
	return vk.AccessFlags(out)
}

func toVkAspect(a gpu.Aspect) vk.ImageAspectFlags {
	if a == gpu.AspectDepth {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// sentinel maps a failing VkResult onto the gpu error taxonomy.
func sentinel(res vk.Result) error {
	switch res {
	case vk.Timeout, vk.NotReady:
		return gpu.ErrTimeout
	case vk.ErrorDeviceLost:
		return gpu.ErrDeviceLost
	case vk.ErrorOutOfHostMemory:
		return gpu.ErrNoHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return gpu.ErrNoDeviceMemory
	case vk.ErrorSurfaceLost:
		return gpu.ErrSurfaceLost
	case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorLayerNotPresent,
		vk.ErrorIncompatibleDriver, vk.ErrorFormatNotSupported:
		return gpu.ErrUnsupported
	}
	return gpu.ErrFatal
}

// check returns nil for vk.Success and a wrapped sentinel otherwise.
func check(op string, res vk.Result) error {
	if res == vk.Success {
		return nil
	}
	return fmt.Errorf("vkdevice: %s: %w (%v)", op, sentinel(res), vk.Error(res))
}

// presentResult classifies the outcome of an acquire or present.
func presentResult(op string, res vk.Result) (gpu.Result, error) {
	switch res {
	case vk.Success:
		return gpu.Success, nil
	case vk.Suboptimal:
		return gpu.SoftInvalid, nil
	case vk.ErrorOutOfDate:
		return gpu.HardInvalid, nil
	}
	return 0, check(op, res)
}

func safeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
