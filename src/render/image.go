package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Image is an owning wrapper around a device image, its backing memory
// and its view. Destroy releases all three; losing the wrapper without
// calling Destroy leaks device memory, so owners hold exactly one
// reference and release it in teardown order.
type Image struct {
	image  vulkan.Image
	memory vulkan.DeviceMemory
	view   vulkan.ImageView
	format vulkan.Format
}

// View returns the image view for framebuffer or descriptor binding.
func (im *Image) View() vulkan.ImageView { return im.view }

// Format returns the image's pixel format.
func (im *Image) Format() vulkan.Format { return im.format }

// Handle returns the raw image, needed for layout transitions and copies.
func (im *Image) Handle() vulkan.Image { return im.image }

// Destroy releases view, image and memory. Safe to call more than once.
func (im *Image) Destroy(device vulkan.Device) {
	if im.view != vulkan.NullImageView {
		vulkan.DestroyImageView(device, im.view, nil)
		im.view = vulkan.NullImageView
	}
	if im.image != vulkan.NullImage {
		vulkan.DestroyImage(device, im.image, nil)
		im.image = vulkan.NullImage
	}
	if im.memory != vulkan.NullDeviceMemory {
		vulkan.FreeMemory(device, im.memory, nil)
		im.memory = vulkan.NullDeviceMemory
	}
}

type imageConfig struct {
	width, height uint32
	format        vulkan.Format
	samples       vulkan.SampleCountFlagBits
	tiling        vulkan.ImageTiling
	usage         vulkan.ImageUsageFlags
	properties    vulkan.MemoryPropertyFlags
	aspect        vulkan.ImageAspectFlags
}

func newImage(ctx *Context, cfg imageConfig) (*Image, error) {
	imageInfo := vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: vulkan.ImageType2d,
		Extent: vulkan.Extent3D{
			Width:  cfg.width,
			Height: cfg.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        cfg.format,
		Tiling:        cfg.tiling,
		InitialLayout: vulkan.ImageLayoutUndefined,
		Usage:         cfg.usage,
		SharingMode:   vulkan.SharingModeExclusive,
		Samples:       cfg.samples,
	}

	im := &Image{format: cfg.format}
	if err := NewError(vulkan.CreateImage(ctx.Device, &imageInfo, nil, &im.image)); err != nil {
		return nil, fmt.Errorf("creating image: %w", err)
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(ctx.Device, im.image, &memReq)
	memReq.Deref()

	memType, err := findMemoryType(ctx.GPU, memReq.MemoryTypeBits, cfg.properties)
	if err != nil {
		im.Destroy(ctx.Device)
		return nil, err
	}

	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}
	if err := NewError(vulkan.AllocateMemory(ctx.Device, &allocInfo, nil, &im.memory)); err != nil {
		im.Destroy(ctx.Device)
		return nil, fmt.Errorf("allocating image memory: %w", err)
	}
	if err := NewError(vulkan.BindImageMemory(ctx.Device, im.image, im.memory, 0)); err != nil {
		im.Destroy(ctx.Device)
		return nil, fmt.Errorf("binding image memory: %w", err)
	}

	im.view, err = newImageView(ctx.Device, im.image, cfg.format, cfg.aspect)
	if err != nil {
		im.Destroy(ctx.Device)
		return nil, err
	}
	return im, nil
}

func newImageView(device vulkan.Device, image vulkan.Image, format vulkan.Format,
	aspect vulkan.ImageAspectFlags) (vulkan.ImageView, error) {

	createInfo := vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vulkan.ImageViewType2d,
		Format:   format,
		Components: vulkan.ComponentMapping{
			R: vulkan.ComponentSwizzleIdentity,
			G: vulkan.ComponentSwizzleIdentity,
			B: vulkan.ComponentSwizzleIdentity,
			A: vulkan.ComponentSwizzleIdentity,
		},
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vulkan.ImageView
	if err := NewError(vulkan.CreateImageView(device, &createInfo, nil, &view)); err != nil {
		return nil, fmt.Errorf("creating image view: %w", err)
	}
	return view, nil
}

// newColorTarget creates the multisampled color attachment that resolves
// into the swapchain image. Only used when samples > 1.
func newColorTarget(ctx *Context, format vulkan.Format, extent vulkan.Extent2D) (*Image, error) {
	im, err := newImage(ctx, imageConfig{
		width:   extent.Width,
		height:  extent.Height,
		format:  format,
		samples: ctx.Samples,
		tiling:  vulkan.ImageTilingOptimal,
		usage: vulkan.ImageUsageFlags(vulkan.ImageUsageTransientAttachmentBit) |
			vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit),
		properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
		aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	})
	if err != nil {
		return nil, fmt.Errorf("creating color target: %w", err)
	}
	return im, nil
}

// newDepthTarget creates the depth attachment sized to the swapchain
// extent, in the first depth format the device supports.
func newDepthTarget(ctx *Context, extent vulkan.Extent2D) (*Image, error) {
	format, err := findDepthFormat(ctx.GPU)
	if err != nil {
		return nil, err
	}
	im, err := newImage(ctx, imageConfig{
		width:      extent.Width,
		height:     extent.Height,
		format:     format,
		samples:    ctx.Samples,
		tiling:     vulkan.ImageTilingOptimal,
		usage:      vulkan.ImageUsageFlags(vulkan.ImageUsageDepthStencilAttachmentBit),
		properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
		aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit),
	})
	if err != nil {
		return nil, fmt.Errorf("creating depth target: %w", err)
	}
	return im, nil
}

func findMemoryType(gpu vulkan.PhysicalDevice, typeBits uint32,
	properties vulkan.MemoryPropertyFlags) (uint32, error) {

	var memProps vulkan.PhysicalDeviceMemoryProperties
	vulkan.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memType := memProps.MemoryTypes[i]
		memType.Deref()

		if typeBits&(1<<i) == 0 {
			continue
		}
		if memType.PropertyFlags&properties != properties {
			continue
		}
		return i, nil
	}
	return 0, fmt.Errorf("no suitable memory type")
}

func findSupportedFormat(gpu vulkan.PhysicalDevice, candidates []vulkan.Format,
	tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {

	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(gpu, format, &props)
		props.Deref()

		if tiling == vulkan.ImageTilingLinear &&
			props.LinearTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vulkan.ImageTilingOptimal &&
			props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return 0, fmt.Errorf("no supported format among candidates")
}

// findDepthFormat picks a depth-stencil-capable format; a device without
// one cannot run this renderer at all.
func findDepthFormat(gpu vulkan.PhysicalDevice) (vulkan.Format, error) {
	format, err := findSupportedFormat(gpu,
		[]vulkan.Format{
			vulkan.FormatD32Sfloat,
			vulkan.FormatD32SfloatS8Uint,
			vulkan.FormatD24UnormS8Uint,
		},
		vulkan.ImageTilingOptimal,
		vulkan.FormatFeatureFlags(vulkan.FormatFeatureDepthStencilAttachmentBit),
	)
	if err != nil {
		return 0, fmt.Errorf("no depth-stencil attachment format: %w", err)
	}
	return format, nil
}
