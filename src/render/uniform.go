package render

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// UniformData is the per-frame payload written into GPU-visible memory:
// the camera's view and projection matrices. The layout matches the
// shader's uniform block field for field.
type UniformData struct {
	View linmath.Mat4x4
	Proj linmath.Mat4x4
}

// UniformRing keeps one host-visible, persistently mapped uniform buffer
// per swapchain image, so updating the copy for the image being rendered
// never races a copy still referenced by in-flight work.
type UniformRing struct {
	buffers []*Buffer
	mapped  []unsafe.Pointer
}

// NewUniformRing allocates and maps count uniform buffers.
func NewUniformRing(ctx *Context, count int) (*UniformRing, error) {
	size := vulkan.DeviceSize(unsafe.Sizeof(UniformData{}))

	ring := &UniformRing{
		buffers: make([]*Buffer, 0, count),
		mapped:  make([]unsafe.Pointer, 0, count),
	}
	for i := 0; i < count; i++ {
		buf, err := newBuffer(ctx, size,
			vulkan.BufferUsageFlags(vulkan.BufferUsageUniformBufferBit),
			vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostVisibleBit)|
				vulkan.MemoryPropertyFlags(vulkan.MemoryPropertyHostCoherentBit),
		)
		if err != nil {
			ring.Destroy(ctx.Device)
			return nil, fmt.Errorf("creating uniform buffer %d: %w", i, err)
		}

		var pData unsafe.Pointer
		res := vulkan.MapMemory(ctx.Device, buf.memory, 0, size, 0, &pData)
		if err := NewError(res); err != nil {
			buf.Destroy(ctx.Device)
			ring.Destroy(ctx.Device)
			return nil, fmt.Errorf("mapping uniform buffer %d: %w", i, err)
		}

		ring.buffers = append(ring.buffers, buf)
		ring.mapped = append(ring.mapped, pData)
	}
	return ring, nil
}

// Count returns the number of per-image uniform copies.
func (u *UniformRing) Count() int { return len(u.buffers) }

// Buffer returns the uniform buffer for an image index, for descriptor
// set binding.
func (u *UniformRing) Buffer(imageIndex int) *Buffer {
	if imageIndex < 0 || imageIndex >= len(u.buffers) {
		panic(fmt.Sprintf("uniform image index %d out of range [0, %d)",
			imageIndex, len(u.buffers)))
	}
	return u.buffers[imageIndex]
}

// Update writes the frame's matrices into the mapped copy for the image
// about to be rendered. An index outside the ring is a conflation of
// image index with slot index somewhere upstream and panics.
func (u *UniformRing) Update(imageIndex int, data *UniformData) {
	if imageIndex < 0 || imageIndex >= len(u.mapped) {
		panic(fmt.Sprintf("uniform image index %d out of range [0, %d)",
			imageIndex, len(u.mapped)))
	}
	vulkan.Memcopy(u.mapped[imageIndex], structBytes(data))
}

// Destroy unmaps and releases all buffers in the ring.
func (u *UniformRing) Destroy(device vulkan.Device) {
	for i, buf := range u.buffers {
		if i < len(u.mapped) && u.mapped[i] != nil {
			vulkan.UnmapMemory(device, buf.memory)
		}
		buf.Destroy(device)
	}
	u.buffers = nil
	u.mapped = nil
}
