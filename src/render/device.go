package render

import (
	"fmt"
	"log"

	"github.com/vulkan-go/vulkan"
)

var requiredDeviceExtensions = []string{
	vulkan.KhrSwapchainExtensionName + "\x00",
}

// queueFamilies holds the queue family indices a device must provide.
// Graphics and present may or may not be the same family.
type queueFamilies struct {
	graphics    uint32
	present     uint32
	hasGraphics bool
	hasPresent  bool
}

func (q queueFamilies) complete() bool {
	return q.hasGraphics && q.hasPresent
}

// NewContext selects a physical device able to render to the surface,
// creates the logical device with one graphics and one present queue, and
// caps the multisample count to what its framebuffers support. Failure
// here is fatal: there is no device to fall back to.
func NewContext(instance vulkan.Instance, surface vulkan.Surface,
	dbg vulkan.DebugReportCallback, debug bool) (*Context, error) {

	var gpuCount uint32
	if err := NewError(vulkan.EnumeratePhysicalDevices(instance, &gpuCount, nil)); err != nil {
		return nil, fmt.Errorf("enumerating physical devices: %w", err)
	}
	if gpuCount == 0 {
		return nil, fmt.Errorf("no GPU with Vulkan support found")
	}
	gpus := make([]vulkan.PhysicalDevice, gpuCount)
	if err := NewError(vulkan.EnumeratePhysicalDevices(instance, &gpuCount, gpus)); err != nil {
		return nil, fmt.Errorf("enumerating physical devices: %w", err)
	}

	var (
		selected vulkan.PhysicalDevice
		best     uint32
	)
	for _, gpu := range gpus {
		score := deviceScore(gpu, surface, debug)
		if score > best {
			selected = gpu
			best = score
		}
	}
	if selected == vulkan.PhysicalDevice(vulkan.NullHandle) {
		return nil, fmt.Errorf("no suitable GPU found")
	}

	families := findQueueFamilies(selected, surface)

	queueInfos := []vulkan.DeviceQueueCreateInfo{{
		SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: families.graphics,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	if families.present != families.graphics {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: families.present,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	createInfo := vulkan.DeviceCreateInfo{
		SType:                vulkan.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueInfos)),
		PQueueCreateInfos:    queueInfos,
		PEnabledFeatures: []vulkan.PhysicalDeviceFeatures{{
			SamplerAnisotropy: vulkan.True,
		}},
		EnabledExtensionCount:   uint32(len(requiredDeviceExtensions)),
		PpEnabledExtensionNames: requiredDeviceExtensions,
	}
	if debug {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = []string{validationLayer}
	}

	var device vulkan.Device
	if err := NewError(vulkan.CreateDevice(selected, &createInfo, nil, &device)); err != nil {
		return nil, fmt.Errorf("creating logical device: %w", err)
	}

	var graphicsQueue, presentQueue vulkan.Queue
	vulkan.GetDeviceQueue(device, families.graphics, 0, &graphicsQueue)
	vulkan.GetDeviceQueue(device, families.present, 0, &presentQueue)

	return &Context{
		Instance:       instance,
		Surface:        surface,
		GPU:            selected,
		Device:         device,
		GraphicsQueue:  graphicsQueue,
		PresentQueue:   presentQueue,
		GraphicsFamily: families.graphics,
		PresentFamily:  families.present,
		Samples:        maxUsableSampleCount(selected),
		debugCallback:  dbg,
	}, nil
}

func findQueueFamilies(gpu vulkan.PhysicalDevice, surface vulkan.Surface) queueFamilies {
	var families queueFamilies

	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	for i, family := range props {
		family.Deref()

		if !families.hasGraphics &&
			family.QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			families.graphics = uint32(i)
			families.hasGraphics = true
		}

		var supported vulkan.Bool32
		res := vulkan.GetPhysicalDeviceSurfaceSupport(gpu, uint32(i), surface, &supported)
		if IsError(res) {
			log.Printf("WARNING: querying surface support for family %d: %s",
				i, NewError(res))
			continue
		}
		if !families.hasPresent && supported.B() {
			families.present = uint32(i)
			families.hasPresent = true
		}
	}
	return families
}

// deviceScore ranks devices: discrete GPUs first, anything unsuitable is
// zero. Suitability means complete queue families, the swapchain
// extension, a non-empty format/present-mode list and anisotropic
// filtering support.
func deviceScore(gpu vulkan.PhysicalDevice, surface vulkan.Surface, debug bool) uint32 {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()

	var score uint32 = 1
	if props.DeviceType == vulkan.PhysicalDeviceTypeDiscreteGpu {
		score += 1000
	}

	if !deviceSuitable(gpu, surface) {
		score = 0
	}

	if debug {
		log.Printf("device %q score %d", vulkan.ToString(props.DeviceName[:]), score)
	}
	return score
}

func deviceSuitable(gpu vulkan.PhysicalDevice, surface vulkan.Surface) bool {
	if !findQueueFamilies(gpu, surface).complete() {
		return false
	}
	if !hasDeviceExtensions(gpu, requiredDeviceExtensions) {
		return false
	}

	support, err := QuerySurfaceSupport(gpu, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return false
	}

	var features vulkan.PhysicalDeviceFeatures
	vulkan.GetPhysicalDeviceFeatures(gpu, &features)
	features.Deref()
	return features.SamplerAnisotropy.B()
}

func hasDeviceExtensions(gpu vulkan.PhysicalDevice, required []string) bool {
	var count uint32
	if IsError(vulkan.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)) {
		return false
	}
	available := make([]vulkan.ExtensionProperties, count)
	if IsError(vulkan.EnumerateDeviceExtensionProperties(gpu, "", &count, available)) {
		return false
	}

	missing := make(map[string]struct{}, len(required))
	for _, name := range required {
		missing[name] = struct{}{}
	}
	for _, ext := range available {
		ext.Deref()
		delete(missing, vulkan.ToString(ext.ExtensionName[:])+"\x00")
	}
	return len(missing) == 0
}

// maxUsableSampleCount picks the highest sample count supported by both
// color and depth framebuffer attachments.
func maxUsableSampleCount(gpu vulkan.PhysicalDevice) vulkan.SampleCountFlagBits {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	counts := vulkan.SampleCountFlags(props.Limits.FramebufferColorSampleCounts) &
		vulkan.SampleCountFlags(props.Limits.FramebufferDepthSampleCounts)

	for _, bit := range []vulkan.SampleCountFlagBits{
		vulkan.SampleCount64Bit,
		vulkan.SampleCount32Bit,
		vulkan.SampleCount16Bit,
		vulkan.SampleCount8Bit,
		vulkan.SampleCount4Bit,
		vulkan.SampleCount2Bit,
	} {
		if counts&vulkan.SampleCountFlags(bit) != 0 {
			return bit
		}
	}
	return vulkan.SampleCount1Bit
}
