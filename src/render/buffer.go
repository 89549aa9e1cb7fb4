package render

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// Buffer is an owning wrapper around a device buffer and its memory.
type Buffer struct {
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	size   vulkan.DeviceSize
}

// Handle returns the raw buffer for binding.
func (b *Buffer) Handle() vulkan.Buffer { return b.buffer }

// Size returns the buffer's allocation size.
func (b *Buffer) Size() vulkan.DeviceSize { return b.size }

// Destroy releases the buffer and frees its memory.
func (b *Buffer) Destroy(device vulkan.Device) {
	if b.buffer != vulkan.NullBuffer {
		vulkan.DestroyBuffer(device, b.buffer, nil)
		b.buffer = vulkan.NullBuffer
	}
	if b.memory != vulkan.NullDeviceMemory {
		vulkan.FreeMemory(device, b.memory, nil)
		b.memory = vulkan.NullDeviceMemory
	}
}

func newBuffer(ctx *Context, size vulkan.DeviceSize, usage vulkan.BufferUsageFlags,
	properties vulkan.MemoryPropertyFlags) (*Buffer, error) {

	bufferInfo := vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vulkan.SharingModeExclusive,
	}

	b := &Buffer{size: size}
	if err := NewError(vulkan.CreateBuffer(ctx.Device, &bufferInfo, nil, &b.buffer)); err != nil {
		return nil, fmt.Errorf("creating buffer: %w", err)
	}

	var memReq vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(ctx.Device, b.buffer, &memReq)
	memReq.Deref()

	memType, err := findMemoryType(ctx.GPU, memReq.MemoryTypeBits, properties)
	if err != nil {
		b.Destroy(ctx.Device)
		return nil, err
	}

	allocInfo := vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}
	if err := NewError(vulkan.AllocateMemory(ctx.Device, &allocInfo, nil, &b.memory)); err != nil {
		b.Destroy(ctx.Device)
		return nil, fmt.Errorf("allocating buffer memory: %w", err)
	}
	if err := NewError(vulkan.BindBufferMemory(ctx.Device, b.buffer, b.memory, 0)); err != nil {
		b.Destroy(ctx.Device)
		return nil, fmt.Errorf("binding buffer memory: %w", err)
	}
	return b, nil
}

// newStagingBuffer creates a host-visible buffer prefilled with data.
func newStagingBuffer(ctx *Context, data []byte) (*Buffer, error) {
	size := vulkan.DeviceSize(len(data))
	staging, err := newBuffer(ctx, size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferSrcBit),
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit)|
			vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostCoherentBit),
	)
	if err != nil {
		return nil, fmt.Errorf("creating staging buffer: %w", err)
	}

	var pData unsafe.Pointer
	vulkan.MapMemory(ctx.Device, staging.memory, 0, size, 0, &pData)
	vulkan.Memcopy(pData, data)
	vulkan.UnmapMemory(ctx.Device, staging.memory)
	return staging, nil
}

// uploadBuffer stages data into a new device-local buffer with the given
// usage, via a one-shot transfer on the graphics queue.
func uploadBuffer(ctx *Context, pool *CommandPool, data []byte,
	usage vulkan.BufferUsageFlags) (*Buffer, error) {

	staging, err := newStagingBuffer(ctx, data)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy(ctx.Device)

	dst, err := newBuffer(ctx, staging.size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageTransferDstBit)|usage,
		vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyDeviceLocalBit),
	)
	if err != nil {
		return nil, fmt.Errorf("creating device-local buffer: %w", err)
	}

	err = pool.oneShot(ctx, func(cmd vulkan.CommandBuffer) {
		region := vulkan.BufferCopy{SrcOffset: 0, DstOffset: 0, Size: staging.size}
		vulkan.CmdCopyBuffer(cmd, staging.buffer, dst.buffer, 1, []vulkan.BufferCopy{region})
	})
	if err != nil {
		dst.Destroy(ctx.Device)
		return nil, fmt.Errorf("copying staging buffer: %w", err)
	}
	return dst, nil
}

// NewVertexBuffer uploads vertex data to device-local memory.
func NewVertexBuffer(ctx *Context, pool *CommandPool, data []byte) (*Buffer, error) {
	return uploadBuffer(ctx, pool, data,
		vulkan.BufferUsageFlags(vulkan.BufferUsageVertexBufferBit))
}

// NewIndexBuffer uploads index data to device-local memory.
func NewIndexBuffer(ctx *Context, pool *CommandPool, data []byte) (*Buffer, error) {
	return uploadBuffer(ctx, pool, data,
		vulkan.BufferUsageFlags(vulkan.BufferUsageIndexBufferBit))
}
