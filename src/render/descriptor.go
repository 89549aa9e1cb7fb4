package render

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// NewDescriptorSetLayout declares the shader-visible resources shared by
// every drawable: the per-frame uniform block in the vertex stage and the
// texture sampler in the fragment stage. Per-drawable state travels by
// push constant instead, so this layout never grows with the scene.
func NewDescriptorSetLayout(device vulkan.Device) (vulkan.DescriptorSetLayout, error) {
	bindings := []vulkan.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageFragmentBit),
		},
	}

	layoutInfo := vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vulkan.DescriptorSetLayout
	res := vulkan.CreateDescriptorSetLayout(device, &layoutInfo, nil, &layout)
	if err := NewError(res); err != nil {
		return nil, fmt.Errorf("creating descriptor set layout: %w", err)
	}
	return layout, nil
}

// DescriptorSets is the pool plus one set per swapchain image, each
// pointing at that image's uniform buffer and the shared texture.
type DescriptorSets struct {
	pool vulkan.DescriptorPool
	sets []vulkan.DescriptorSet
}

// NewDescriptorSets allocates and writes one descriptor set per image.
func NewDescriptorSets(ctx *Context, layout vulkan.DescriptorSetLayout,
	uniforms *UniformRing, texture *Texture, count int) (*DescriptorSets, error) {

	poolSizes := []vulkan.DescriptorPoolSize{
		{
			Type:            vulkan.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(count),
		},
		{
			Type:            vulkan.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(count),
		},
	}
	poolInfo := vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       uint32(count),
	}

	ds := &DescriptorSets{}
	res := vulkan.CreateDescriptorPool(ctx.Device, &poolInfo, nil, &ds.pool)
	if err := NewError(res); err != nil {
		return nil, fmt.Errorf("creating descriptor pool: %w", err)
	}

	layouts := make([]vulkan.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}
	allocInfo := vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     ds.pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}

	ds.sets = make([]vulkan.DescriptorSet, count)
	res = vulkan.AllocateDescriptorSets(ctx.Device, &allocInfo, &ds.sets[0])
	if err := NewError(res); err != nil {
		ds.Destroy(ctx.Device)
		return nil, fmt.Errorf("allocating descriptor sets: %w", err)
	}

	for i := 0; i < count; i++ {
		bufferInfo := vulkan.DescriptorBufferInfo{
			Buffer: uniforms.Buffer(i).Handle(),
			Offset: 0,
			Range:  vulkan.DeviceSize(unsafe.Sizeof(UniformData{})),
		}
		imageInfo := vulkan.DescriptorImageInfo{
			ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   texture.View(),
			Sampler:     texture.Sampler(),
		}

		writes := []vulkan.WriteDescriptorSet{
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          ds.sets[i],
				DstBinding:      0,
				DstArrayElement: 0,
				DescriptorType:  vulkan.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				PBufferInfo:     []vulkan.DescriptorBufferInfo{bufferInfo},
			},
			{
				SType:           vulkan.StructureTypeWriteDescriptorSet,
				DstSet:          ds.sets[i],
				DstBinding:      1,
				DstArrayElement: 0,
				DescriptorType:  vulkan.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				PImageInfo:      []vulkan.DescriptorImageInfo{imageInfo},
			},
		}
		vulkan.UpdateDescriptorSets(ctx.Device, uint32(len(writes)), writes, 0, nil)
	}

	return ds, nil
}

// Set returns the descriptor set for an image index.
func (ds *DescriptorSets) Set(imageIndex int) vulkan.DescriptorSet {
	if imageIndex < 0 || imageIndex >= len(ds.sets) {
		panic(fmt.Sprintf("descriptor image index %d out of range [0, %d)",
			imageIndex, len(ds.sets)))
	}
	return ds.sets[imageIndex]
}

// Count returns the number of allocated sets.
func (ds *DescriptorSets) Count() int { return len(ds.sets) }

// Destroy releases the pool; the sets go with it.
func (ds *DescriptorSets) Destroy(device vulkan.Device) {
	if ds.pool != vulkan.NullDescriptorPool {
		vulkan.DestroyDescriptorPool(device, ds.pool, nil)
		ds.pool = vulkan.NullDescriptorPool
	}
	ds.sets = nil
}
