// Package vkdevice implements gpu.Device on Vulkan through vulkan-go.
//
// Open brings up an instance, a window surface, a physical and logical
// device with graphics and present queues, and a resettable command pool.
// All methods must be called from the thread that owns the window.
package vkdevice

import (
	"errors"
	"fmt"
	"log"
	"unsafe"

	"mini-rt/internal/gpu"

	vk "github.com/vulkan-go/vulkan"
)

var (
	validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	deviceExtensions = []string{"VK_KHR_swapchain"}
)

// WindowSurface is the window side of surface creation.
type WindowSurface interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	// CreateWindowSurface returns a VkSurfaceKHR for the given vk.Instance.
	CreateWindowSurface(instance interface{}) (uintptr, error)
}

// Config selects instance options.
type Config struct {
	AppName    string
	Validation bool
}

type Device struct {
	instance vk.Instance
	surface  vk.Surface
	physical vk.PhysicalDevice
	device   vk.Device
	name     string

	graphicsFamily uint32
	presentFamily  uint32
	graphics       *queue
	present        *queue

	pool     vk.CommandPool
	memProps vk.PhysicalDeviceMemoryProperties

	// surfaceFormats remembers the native pair behind every reported format
	surfaceFormats map[gpu.SurfaceFormat]vk.SurfaceFormat
}

var _ gpu.Device = (*Device)(nil)

// Open creates a device presenting to ws. On error everything created so
// far is released.
func Open(ws WindowSurface, cfg Config) (*Device, error) {
	vk.SetGetInstanceProcAddr(ws.InstanceProcAddr())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vkdevice: load vulkan: %w: %v", gpu.ErrUnsupported, err)
	}

	d := &Device{surfaceFormats: make(map[gpu.SurfaceFormat]vk.SurfaceFormat)}
	steps := []func() error{
		func() error { return d.createInstance(ws.RequiredInstanceExtensions(), cfg) },
		func() error { return d.createSurface(ws) },
		d.pickPhysicalDevice,
		d.createLogicalDevice,
		d.createCommandPool,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			d.Close()
			return nil, err
		}
	}
	log.Printf("vkdevice: using %s (graphics queue %d, present queue %d)", d.name, d.graphicsFamily, d.presentFamily)
	return d, nil
}

func (d *Device) createInstance(extensions []string, cfg Config) error {
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(cfg.AppName),
		ApplicationVersion: vk.MakeVersion(0, 1, 0),
		PEngineName:        safeString("mini-rt"),
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         vk.MakeVersion(1, 0, 0),
	}
	info := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
	}
	if cfg.Validation {
		if layersAvailable(validationLayers) {
			info.EnabledLayerCount = uint32(len(validationLayers))
			info.PpEnabledLayerNames = safeStrings(validationLayers)
		} else {
			log.Printf("vkdevice: validation layers not available; continuing without them")
		}
	}

	var instance vk.Instance
	if err := check("create instance", vk.CreateInstance(&info, nil, &instance)); err != nil {
		return err
	}
	d.instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("vkdevice: init instance: %w: %v", gpu.ErrFatal, err)
	}
	return nil
}

func layersAvailable(want []string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	props := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		have[vk.ToString(props[i].LayerName[:])] = true
	}
	for _, name := range want {
		if !have[name] {
			return false
		}
	}
	return true
}

func (d *Device) createSurface(ws WindowSurface) error {
	ptr, err := ws.CreateWindowSurface(d.instance)
	if err != nil {
		return fmt.Errorf("vkdevice: create window surface: %w: %v", gpu.ErrSurfaceLost, err)
	}
	d.surface = vk.SurfaceFromPointer(ptr)
	return nil
}

type candidate struct {
	physical       vk.PhysicalDevice
	name           string
	graphicsFamily uint32
	presentFamily  uint32
	score          int
}

func (d *Device) pickPhysicalDevice() error {
	var count uint32
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(d.instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("vkdevice: no physical devices: %w", gpu.ErrUnsupported)
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(d.instance, &count, devices)); err != nil {
		return err
	}

	var best *candidate
	for _, pd := range devices {
		c, ok := d.evaluate(pd)
		if ok && (best == nil || c.score > best.score) {
			best = &c
		}
	}
	if best == nil {
		return fmt.Errorf("vkdevice: no device can present to the surface: %w", gpu.ErrUnsupported)
	}

	d.physical = best.physical
	d.name = best.name
	d.graphicsFamily = best.graphicsFamily
	d.presentFamily = best.presentFamily

	vk.GetPhysicalDeviceMemoryProperties(d.physical, &d.memProps)
	d.memProps.Deref()
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		d.memProps.MemoryTypes[i].Deref()
	}
	return nil
}

func (d *Device) evaluate(pd vk.PhysicalDevice) (candidate, bool) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	c := candidate{physical: pd, name: vk.ToString(props.DeviceName[:])}

	graphics, present, ok := d.queueFamilies(pd)
	if !ok || !extensionsSupported(pd, deviceExtensions) {
		return c, false
	}
	c.graphicsFamily, c.presentFamily = graphics, present

	var formats, modes uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, d.surface, &formats, nil)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, d.surface, &modes, nil)
	if formats == 0 || modes == 0 {
		return c, false
	}

	switch props.DeviceType {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		c.score = 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		c.score = 2
	default:
		c.score = 1
	}
	if graphics == present {
		c.score++
	}
	return c, true
}

func (d *Device) queueFamilies(pd vk.PhysicalDevice) (graphics, present uint32, ok bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	haveGraphics, havePresent := false, false
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		isGraphics := props[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, d.surface, &supported)
		isPresent := supported == vk.True

		// A family that does both avoids sharing images across queues
		if isGraphics && isPresent {
			return i, i, true
		}
		if isGraphics && !haveGraphics {
			graphics, haveGraphics = i, true
		}
		if isPresent && !havePresent {
			present, havePresent = i, true
		}
	}
	return graphics, present, haveGraphics && havePresent
}

func extensionsSupported(pd vk.PhysicalDevice, want []string) bool {
	var count uint32
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil) != vk.Success {
		return false
	}
	props := make([]vk.ExtensionProperties, count)
	if vk.EnumerateDeviceExtensionProperties(pd, "", &count, props) != vk.Success {
		return false
	}
	have := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		have[vk.ToString(props[i].ExtensionName[:])] = true
	}
	for _, name := range want {
		if !have[name] {
			return false
		}
	}
	return true
}

func (d *Device) createLogicalDevice() error {
	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1},
		}
	}
	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: safeStrings(deviceExtensions),
	}

	var device vk.Device
	if err := check("create device", vk.CreateDevice(d.physical, &info, nil, &device)); err != nil {
		return err
	}
	d.device = device

	var gq, pq vk.Queue
	vk.GetDeviceQueue(d.device, d.graphicsFamily, 0, &gq)
	vk.GetDeviceQueue(d.device, d.presentFamily, 0, &pq)
	d.graphics = &queue{dev: d, handle: gq}
	d.present = &queue{dev: d, handle: pq}
	return nil
}

func (d *Device) createCommandPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.graphicsFamily,
	}
	var pool vk.CommandPool
	if err := check("create command pool", vk.CreateCommandPool(d.device, &info, nil, &pool)); err != nil {
		return err
	}
	d.pool = pool
	return nil
}

// Name returns the selected physical device's name.
func (d *Device) Name() string { return d.name }

func (d *Device) GraphicsQueue() gpu.SubmitQueue { return d.graphics }
func (d *Device) PresentQueue() gpu.PresentQueue { return d.present }

func (d *Device) WaitIdle() error {
	return check("wait idle", vk.DeviceWaitIdle(d.device))
}

// Close destroys the device. Every resource created from it must already
// be destroyed.
func (d *Device) Close() {
	if d.device != nil {
		if err := d.WaitIdle(); err != nil && !errors.Is(err, gpu.ErrDeviceLost) {
			log.Printf("vkdevice: close: %v", err)
		}
		if d.pool != vk.CommandPool(vk.NullHandle) {
			vk.DestroyCommandPool(d.device, d.pool, nil)
			d.pool = vk.CommandPool(vk.NullHandle)
		}
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if d.surface != vk.Surface(vk.NullHandle) {
		vk.DestroySurface(d.instance, d.surface, nil)
		d.surface = vk.Surface(vk.NullHandle)
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}
