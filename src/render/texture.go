package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// Texture is a sampled image uploaded once at startup: the device-local
// image plus the sampler the fragment shader reads it through.
type Texture struct {
	image   *Image
	sampler vulkan.Sampler
}

// View returns the texture's image view for descriptor writes.
func (t *Texture) View() vulkan.ImageView { return t.image.View() }

// Sampler returns the texture's sampler for descriptor writes.
func (t *Texture) Sampler() vulkan.Sampler { return t.sampler }

// NewTexture uploads tightly packed RGBA pixels into a device-local
// sampled image. The image is transitioned to transfer-destination
// layout, filled from a staging buffer and then handed to the fragment
// shader as read-only.
func NewTexture(ctx *Context, pool *CommandPool, pixels []byte, width, height uint32) (*Texture, error) {
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return nil, fmt.Errorf("texture pixel data is %d bytes, want %d for %dx%d RGBA",
			len(pixels), want, width, height)
	}

	staging, err := newStagingBuffer(ctx, pixels)
	if err != nil {
		return nil, fmt.Errorf("staging texture: %w", err)
	}
	defer staging.Destroy(ctx.Device)

	img, err := newImage(ctx, imageConfig{
		width:      width,
		height:     height,
		format:     vulkan.FormatR8g8b8a8Srgb,
		samples:    vulkan.SampleCount1Bit,
		tiling:     vulkan.ImageTilingOptimal,
		usage:      vulkan.ImageUsageFlags(vulkan.ImageUsageTransferDstBit | vulkan.ImageUsageSampledBit),
		properties: vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
		aspect:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
	})
	if err != nil {
		return nil, fmt.Errorf("creating texture image: %w", err)
	}

	t := &Texture{image: img}
	err = pool.oneShot(ctx, func(cmd vulkan.CommandBuffer) {
		transitionImageLayout(cmd, img.Handle(),
			vulkan.ImageLayoutUndefined, vulkan.ImageLayoutTransferDstOptimal)
		copyBufferToImage(cmd, staging.Handle(), img.Handle(), width, height)
		transitionImageLayout(cmd, img.Handle(),
			vulkan.ImageLayoutTransferDstOptimal, vulkan.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		t.Destroy(ctx.Device)
		return nil, fmt.Errorf("uploading texture: %w", err)
	}

	t.sampler, err = newSampler(ctx)
	if err != nil {
		t.Destroy(ctx.Device)
		return nil, err
	}
	return t, nil
}

// Destroy releases the sampler and the backing image.
func (t *Texture) Destroy(device vulkan.Device) {
	if t.sampler != vulkan.NullSampler {
		vulkan.DestroySampler(device, t.sampler, nil)
		t.sampler = vulkan.NullSampler
	}
	if t.image != nil {
		t.image.Destroy(device)
		t.image = nil
	}
}

// transitionImageLayout records a barrier between the two layout pairs
// the upload path uses. Any other pair is a programming error.
func transitionImageLayout(cmd vulkan.CommandBuffer, image vulkan.Image,
	oldLayout, newLayout vulkan.ImageLayout) {

	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage, dstStage vulkan.PipelineStageFlags
	switch {
	case oldLayout == vulkan.ImageLayoutUndefined &&
		newLayout == vulkan.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		srcStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTopOfPipeBit)
		dstStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit)
	case oldLayout == vulkan.ImageLayoutTransferDstOptimal &&
		newLayout == vulkan.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vulkan.AccessFlags(vulkan.AccessTransferWriteBit)
		barrier.DstAccessMask = vulkan.AccessFlags(vulkan.AccessShaderReadBit)
		srcStage = vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit)
		dstStage = vulkan.PipelineStageFlags(vulkan.PipelineStageFragmentShaderBit)
	default:
		panic(fmt.Sprintf("unsupported image layout transition %d -> %d", oldLayout, newLayout))
	}

	vulkan.CmdPipelineBarrier(cmd, srcStage, dstStage, 0,
		0, nil,
		0, nil,
		1, []vulkan.ImageMemoryBarrier{barrier})
}

func copyBufferToImage(cmd vulkan.CommandBuffer, buffer vulkan.Buffer,
	image vulkan.Image, width, height uint32) {

	region := vulkan.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask:     vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vulkan.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vulkan.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vulkan.CmdCopyBufferToImage(cmd, buffer, image,
		vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{region})
}

func newSampler(ctx *Context) (vulkan.Sampler, error) {
	var props vulkan.PhysicalDeviceProperties
	vulkan.GetPhysicalDeviceProperties(ctx.GPU, &props)
	props.Deref()
	props.Limits.Deref()

	samplerInfo := vulkan.SamplerCreateInfo{
		SType:                   vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:               vulkan.FilterLinear,
		MinFilter:               vulkan.FilterLinear,
		AddressModeU:            vulkan.SamplerAddressModeRepeat,
		AddressModeV:            vulkan.SamplerAddressModeRepeat,
		AddressModeW:            vulkan.SamplerAddressModeRepeat,
		AnisotropyEnable:        vulkan.True,
		MaxAnisotropy:           props.Limits.MaxSamplerAnisotropy,
		BorderColor:             vulkan.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vulkan.False,
		CompareEnable:           vulkan.False,
		CompareOp:               vulkan.CompareOpAlways,
		MipmapMode:              vulkan.SamplerMipmapModeLinear,
	}

	var sampler vulkan.Sampler
	res := vulkan.CreateSampler(ctx.Device, &samplerInfo, nil, &sampler)
	if err := NewError(res); err != nil {
		return vulkan.NullSampler, fmt.Errorf("creating texture sampler: %w", err)
	}
	return sampler, nil
}
