package render

import (
	"fmt"
	"unsafe"

	"github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// CommandPool owns the pool that all graphics-queue command buffers are
// allocated from, both the long-lived per-framebuffer buffers and the
// one-shot transfer buffers.
type CommandPool struct {
	pool vulkan.CommandPool
}

// NewCommandPool creates a pool on the graphics family.
func NewCommandPool(ctx *Context) (*CommandPool, error) {
	poolInfo := vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: ctx.GraphicsFamily,
	}

	cp := &CommandPool{}
	res := vulkan.CreateCommandPool(ctx.Device, &poolInfo, nil, &cp.pool)
	if err := NewError(res); err != nil {
		return nil, fmt.Errorf("creating command pool: %w", err)
	}
	return cp, nil
}

// Allocate returns count primary command buffers.
func (cp *CommandPool) Allocate(device vulkan.Device, count int) ([]vulkan.CommandBuffer, error) {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.pool,
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	buffers := make([]vulkan.CommandBuffer, count)
	res := vulkan.AllocateCommandBuffers(device, &allocInfo, buffers)
	if err := NewError(res); err != nil {
		return nil, fmt.Errorf("allocating %d command buffers: %w", count, err)
	}
	return buffers, nil
}

// Free returns buffers to the pool. Callers must ensure no freed buffer
// is still referenced by in-flight work; the frame loop guarantees this
// by waiting the device idle before any rebuild.
func (cp *CommandPool) Free(device vulkan.Device, buffers []vulkan.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vulkan.FreeCommandBuffers(device, cp.pool, uint32(len(buffers)), buffers)
}

// Destroy releases the pool and everything still allocated from it.
func (cp *CommandPool) Destroy(device vulkan.Device) {
	if cp.pool != vulkan.NullCommandPool {
		vulkan.DestroyCommandPool(device, cp.pool, nil)
		cp.pool = vulkan.NullCommandPool
	}
}

// oneShot records fn into a transient command buffer, submits it on the
// graphics queue and blocks until it completes. Used for staging copies
// and image layout transitions during setup.
func (cp *CommandPool) oneShot(ctx *Context, fn func(cmd vulkan.CommandBuffer)) error {
	buffers, err := cp.Allocate(ctx.Device, 1)
	if err != nil {
		return err
	}
	defer cp.Free(ctx.Device, buffers)
	cmd := buffers[0]

	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := NewError(vulkan.BeginCommandBuffer(cmd, &beginInfo)); err != nil {
		return fmt.Errorf("beginning one-shot command buffer: %w", err)
	}

	fn(cmd)

	if err := NewError(vulkan.EndCommandBuffer(cmd)); err != nil {
		return fmt.Errorf("ending one-shot command buffer: %w", err)
	}

	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vulkan.CommandBuffer{cmd},
	}
	res := vulkan.QueueSubmit(ctx.GraphicsQueue, 1, []vulkan.SubmitInfo{submitInfo},
		vulkan.Fence(vulkan.NullHandle))
	if err := NewError(res); err != nil {
		return fmt.Errorf("submitting one-shot command buffer: %w", err)
	}
	if err := NewError(vulkan.QueueWaitIdle(ctx.GraphicsQueue)); err != nil {
		return fmt.Errorf("waiting for one-shot completion: %w", err)
	}
	return nil
}

// Drawable is one mesh instance in the recorded scene: its geometry
// buffers and the model matrix pushed per draw.
type Drawable struct {
	Vertices   *Buffer
	Indices    *Buffer
	IndexCount uint32
	Model      linmath.Mat4x4
}

// RecordConfig gathers everything command recording needs for one
// framebuffer's worth of work.
type RecordConfig struct {
	RenderPass   vulkan.RenderPass
	Framebuffers []vulkan.Framebuffer
	Extent       vulkan.Extent2D
	Pipeline     *Pipeline
	Descriptors  *DescriptorSets
	Drawables    []Drawable
}

// RecordDrawCommands allocates one command buffer per framebuffer and
// records the full scene into each, bound to that image's descriptor
// set. The buffers stay valid until the next rebuild; nothing is
// re-recorded per frame.
func (cp *CommandPool) RecordDrawCommands(ctx *Context, cfg RecordConfig) ([]vulkan.CommandBuffer, error) {
	buffers, err := cp.Allocate(ctx.Device, len(cfg.Framebuffers))
	if err != nil {
		return nil, err
	}

	clearValues := []vulkan.ClearValue{
		vulkan.NewClearValue([]float32{0, 0, 0, 1}),
		vulkan.NewClearDepthStencil(1, 0),
	}

	for i, cmd := range buffers {
		beginInfo := vulkan.CommandBufferBeginInfo{
			SType: vulkan.StructureTypeCommandBufferBeginInfo,
		}
		if err := NewError(vulkan.BeginCommandBuffer(cmd, &beginInfo)); err != nil {
			cp.Free(ctx.Device, buffers)
			return nil, fmt.Errorf("beginning command buffer %d: %w", i, err)
		}

		passInfo := vulkan.RenderPassBeginInfo{
			SType:       vulkan.StructureTypeRenderPassBeginInfo,
			RenderPass:  cfg.RenderPass,
			Framebuffer: cfg.Framebuffers[i],
			RenderArea: vulkan.Rect2D{
				Offset: vulkan.Offset2D{X: 0, Y: 0},
				Extent: cfg.Extent,
			},
			ClearValueCount: uint32(len(clearValues)),
			PClearValues:    clearValues,
		}
		vulkan.CmdBeginRenderPass(cmd, &passInfo, vulkan.SubpassContentsInline)
		vulkan.CmdBindPipeline(cmd, vulkan.PipelineBindPointGraphics, cfg.Pipeline.Handle())
		vulkan.CmdBindDescriptorSets(cmd, vulkan.PipelineBindPointGraphics,
			cfg.Pipeline.Layout(), 0, 1,
			[]vulkan.DescriptorSet{cfg.Descriptors.Set(i)}, 0, nil)

		for d := range cfg.Drawables {
			drawable := &cfg.Drawables[d]
			vulkan.CmdPushConstants(cmd, cfg.Pipeline.Layout(),
				vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
				0, uint32(unsafe.Sizeof(drawable.Model)),
				unsafe.Pointer(&drawable.Model))
			vulkan.CmdBindVertexBuffers(cmd, 0, 1,
				[]vulkan.Buffer{drawable.Vertices.Handle()}, []vulkan.DeviceSize{0})
			vulkan.CmdBindIndexBuffer(cmd, drawable.Indices.Handle(), 0, vulkan.IndexTypeUint32)
			vulkan.CmdDrawIndexed(cmd, drawable.IndexCount, 1, 0, 0, 0)
		}

		vulkan.CmdEndRenderPass(cmd)
		if err := NewError(vulkan.EndCommandBuffer(cmd)); err != nil {
			cp.Free(ctx.Device, buffers)
			return nil, fmt.Errorf("ending command buffer %d: %w", i, err)
		}
	}

	return buffers, nil
}
