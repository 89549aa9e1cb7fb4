package render

import (
	"github.com/vulkan-go/vulkan"
)

// Context is the logical execution context shared by every renderer
// component: the instance, the selected physical device, the logical
// device and its queues. It owns none of the GPU work scheduled against
// it; the process root creates it once through NewContext and destroys
// it last, after every component holding a reference has been torn down.
type Context struct {
	Instance vulkan.Instance
	Surface  vulkan.Surface

	GPU    vulkan.PhysicalDevice
	Device vulkan.Device

	GraphicsQueue vulkan.Queue
	PresentQueue  vulkan.Queue

	GraphicsFamily uint32
	PresentFamily  uint32

	// Samples is the multisample count used for every target attachment,
	// fixed at device selection time.
	Samples vulkan.SampleCountFlagBits

	debugCallback vulkan.DebugReportCallback
}

// SameQueueFamily reports whether graphics and present share one family,
// which decides the swapchain image sharing mode.
func (c *Context) SameQueueFamily() bool {
	return c.GraphicsFamily == c.PresentFamily
}

// WaitIdle blocks until the device has finished all in-flight work. It is
// the hard synchronization point required before any target resource may
// be destroyed.
func (c *Context) WaitIdle() error {
	return NewError(vulkan.DeviceWaitIdle(c.Device))
}

// Destroy releases the device, the surface and the instance, in that
// order. Every other component must already be destroyed.
func (c *Context) Destroy() {
	if c.Device != vulkan.Device(vulkan.NullHandle) {
		vulkan.DestroyDevice(c.Device, nil)
		c.Device = vulkan.Device(vulkan.NullHandle)
	}
	if c.debugCallback != vulkan.NullDebugReportCallback {
		vulkan.DestroyDebugReportCallback(c.Instance, c.debugCallback, nil)
		c.debugCallback = vulkan.NullDebugReportCallback
	}
	if c.Surface != vulkan.NullSurface {
		vulkan.DestroySurface(c.Instance, c.Surface, nil)
		c.Surface = vulkan.NullSurface
	}
	if c.Instance != vulkan.Instance(vulkan.NullHandle) {
		vulkan.DestroyInstance(c.Instance, nil)
		c.Instance = vulkan.Instance(vulkan.NullHandle)
	}
}
