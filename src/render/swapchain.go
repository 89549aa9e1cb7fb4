package render

import (
	"fmt"
	"math"

	"github.com/vulkan-go/vulkan"
)

// SurfaceSupport is everything the surface advertises about presentable
// images: capability bounds, pixel formats and present modes.
type SurfaceSupport struct {
	Capabilities vulkan.SurfaceCapabilities
	Formats      []vulkan.SurfaceFormat
	PresentModes []vulkan.PresentMode
}

// QuerySurfaceSupport fetches and dereferences the surface capabilities,
// formats and present modes for a device.
func QuerySurfaceSupport(gpu vulkan.PhysicalDevice, surface vulkan.Surface) (SurfaceSupport, error) {
	var support SurfaceSupport

	var caps vulkan.SurfaceCapabilities
	res := vulkan.GetPhysicalDeviceSurfaceCapabilities(gpu, surface, &caps)
	if err := NewError(res); err != nil {
		return support, fmt.Errorf("querying surface capabilities: %w", err)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	support.Capabilities = caps

	var formatCount uint32
	res = vulkan.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, nil)
	if err := NewError(res); err != nil {
		return support, fmt.Errorf("querying surface formats: %w", err)
	}
	if formatCount > 0 {
		formats := make([]vulkan.SurfaceFormat, formatCount)
		vulkan.GetPhysicalDeviceSurfaceFormats(gpu, surface, &formatCount, formats)
		for _, format := range formats {
			format.Deref()
			support.Formats = append(support.Formats, format)
		}
	}

	var modeCount uint32
	res = vulkan.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, nil)
	if err := NewError(res); err != nil {
		return support, fmt.Errorf("querying surface present modes: %w", err)
	}
	if modeCount > 0 {
		modes := make([]vulkan.PresentMode, modeCount)
		vulkan.GetPhysicalDeviceSurfacePresentModes(gpu, surface, &modeCount, modes)
		support.PresentModes = modes
	}

	return support, nil
}

// chooseSurfaceFormat prefers 8-bit-per-channel BGRA sRGB; otherwise the
// first advertised format. An empty list means the surface cannot be
// rendered to at all.
func chooseSurfaceFormat(available []vulkan.SurfaceFormat) (vulkan.SurfaceFormat, error) {
	if len(available) == 0 {
		return vulkan.SurfaceFormat{}, fmt.Errorf("surface advertises no formats")
	}
	for _, format := range available {
		if format.Format == vulkan.FormatB8g8r8a8Srgb &&
			format.ColorSpace == vulkan.ColorSpaceSrgbNonlinear {
			return format, nil
		}
	}
	return available[0], nil
}

// choosePresentMode prefers mailbox (low-latency triple buffering) and
// falls back to FIFO, which every conformant implementation provides.
func choosePresentMode(available []vulkan.PresentMode) (vulkan.PresentMode, error) {
	if len(available) == 0 {
		return 0, fmt.Errorf("surface advertises no present modes")
	}
	for _, mode := range available {
		if mode == vulkan.PresentModeMailbox {
			return mode, nil
		}
	}
	return vulkan.PresentModeFifo, nil
}

// chooseExtent resolves the swapchain extent. When the surface pins the
// extent (anything but the max-uint32 sentinel) that value wins; otherwise
// the drawable size is clamped to the capability bounds. The clamp floor
// also covers a minimized window reporting 0x0: the result is never zero
// in either dimension as long as the capability minimum is not.
func chooseExtent(caps vulkan.SurfaceCapabilities, drawableW, drawableH uint32) vulkan.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 &&
		caps.CurrentExtent.Width != 0 && caps.CurrentExtent.Height != 0 {
		return caps.CurrentExtent
	}

	minW := caps.MinImageExtent.Width
	minH := caps.MinImageExtent.Height
	if minW == 0 {
		minW = 1
	}
	if minH == 0 {
		minH = 1
	}
	maxW := caps.MaxImageExtent.Width
	maxH := caps.MaxImageExtent.Height
	if maxW < minW {
		maxW = minW
	}
	if maxH < minH {
		maxH = minH
	}

	return vulkan.Extent2D{
		Width:  clamp(drawableW, minW, maxW),
		Height: clamp(drawableH, minH, maxH),
	}
}

// chooseImageCount asks for one image more than the minimum, bounded by
// the maximum when the surface has one (0 means unbounded).
func chooseImageCount(caps vulkan.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func clamp(val, min, max uint32) uint32 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Swapchain owns the chain of presentable images and their views, plus
// the negotiated format and extent. Every image shares both. Generation
// advances on every recreation so dependents can tell a rebuilt chain
// from the one they were sized for.
type Swapchain struct {
	chain  vulkan.Swapchain
	images []vulkan.Image
	views  []vulkan.ImageView

	format     vulkan.Format
	colorSpace vulkan.ColorSpace
	extent     vulkan.Extent2D
	generation uint64
}

// NewSwapchain negotiates format, present mode and extent against the
// surface and creates the chain and one view per image.
func NewSwapchain(ctx *Context, surface SurfaceProvider) (*Swapchain, error) {
	sc := &Swapchain{}
	if err := sc.create(ctx, surface); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) create(ctx *Context, surface SurfaceProvider) error {
	support, err := QuerySurfaceSupport(ctx.GPU, ctx.Surface)
	if err != nil {
		return err
	}

	format, err := chooseSurfaceFormat(support.Formats)
	if err != nil {
		return err
	}
	presentMode, err := choosePresentMode(support.PresentModes)
	if err != nil {
		return err
	}

	drawableW, drawableH := surface.DrawableExtent()
	extent := chooseExtent(support.Capabilities, drawableW, drawableH)

	createInfo := vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          ctx.Surface,
		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vulkan.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vulkan.True,
	}
	if ctx.SameQueueFamily() {
		createInfo.ImageSharingMode = vulkan.SharingModeExclusive
	} else {
		createInfo.ImageSharingMode = vulkan.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{ctx.GraphicsFamily, ctx.PresentFamily}
	}

	var chain vulkan.Swapchain
	res := vulkan.CreateSwapchain(ctx.Device, &createInfo, nil, &chain)
	if err := NewError(res); err != nil {
		return fmt.Errorf("creating swapchain: %w", err)
	}

	var imageCount uint32
	vulkan.GetSwapchainImages(ctx.Device, chain, &imageCount, nil)
	images := make([]vulkan.Image, imageCount)
	vulkan.GetSwapchainImages(ctx.Device, chain, &imageCount, images)

	views := make([]vulkan.ImageView, 0, len(images))
	for i, image := range images {
		view, err := newImageView(ctx.Device, image, format.Format,
			vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit))
		if err != nil {
			for _, v := range views {
				vulkan.DestroyImageView(ctx.Device, v, nil)
			}
			vulkan.DestroySwapchain(ctx.Device, chain, nil)
			return fmt.Errorf("creating view for image %d: %w", i, err)
		}
		views = append(views, view)
	}

	sc.chain = chain
	sc.images = images
	sc.views = views
	sc.format = format.Format
	sc.colorSpace = format.ColorSpace
	sc.extent = extent
	sc.generation++
	return nil
}

// Recreate destroys the current chain and negotiates a new one against
// the surface's present state. The caller must have confirmed the device
// idle: images of the old chain may not be in flight.
func (sc *Swapchain) Recreate(ctx *Context, surface SurfaceProvider) error {
	sc.Destroy(ctx.Device)
	return sc.create(ctx, surface)
}

// AcquireNext requests the next presentable image, signaling the given
// semaphore GPU-side once it is available. An out-of-date chain is
// reported as outdated=true, never as an error: the caller rebuilds and
// skips the frame. A suboptimal chain still presents correctly, so it is
// renderable here; present reports it for the deferred rebuild.
func (sc *Swapchain) AcquireNext(device vulkan.Device, signal vulkan.Semaphore) (int, bool, error) {
	var imageIndex uint32
	res := vulkan.AcquireNextImage(device, sc.chain, math.MaxUint64,
		signal, vulkan.Fence(vulkan.NullHandle), &imageIndex)

	switch {
	case res == vulkan.ErrorOutOfDate:
		return 0, true, nil
	case res == vulkan.Success || res == vulkan.Suboptimal:
		return int(imageIndex), false, nil
	default:
		return 0, false, fmt.Errorf("acquiring swapchain image: %w", NewError(res))
	}
}

// Present queues the image for display after the wait semaphore signals.
// Out-of-date and suboptimal both return outdated=true so the caller can
// schedule the rebuild; the present itself has already been queued and
// its GPU work is not wasted.
func (sc *Swapchain) Present(queue vulkan.Queue, imageIndex int, wait vulkan.Semaphore) (bool, error) {
	presentInfo := vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{sc.chain},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}

	res := vulkan.QueuePresent(queue, &presentInfo)
	switch {
	case IsStale(res):
		return true, nil
	case res == vulkan.Success:
		return false, nil
	default:
		return false, fmt.Errorf("presenting swapchain image: %w", NewError(res))
	}
}

// ImageCount returns the number of presentable images in the chain.
func (sc *Swapchain) ImageCount() int { return len(sc.images) }

// Views returns one view per presentable image, in image-index order.
func (sc *Swapchain) Views() []vulkan.ImageView { return sc.views }

// Format returns the negotiated pixel format shared by all images.
func (sc *Swapchain) Format() vulkan.Format { return sc.format }

// Extent returns the negotiated extent shared by all images.
func (sc *Swapchain) Extent() vulkan.Extent2D { return sc.extent }

// Generation counts chain recreations, starting at 1.
func (sc *Swapchain) Generation() uint64 { return sc.generation }

// Destroy releases the image views and then the chain itself. The images
// belong to the chain and are not destroyed individually.
func (sc *Swapchain) Destroy(device vulkan.Device) {
	for _, view := range sc.views {
		vulkan.DestroyImageView(device, view, nil)
	}
	sc.views = nil
	sc.images = nil
	if sc.chain != vulkan.NullSwapchain {
		vulkan.DestroySwapchain(device, sc.chain, nil)
		sc.chain = vulkan.NullSwapchain
	}
}
