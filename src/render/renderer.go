package render

import (
	"fmt"
	"log"

	"github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// UniformSource produces the per-frame uniform payload for the current
// target size. Implementations are free to animate between calls.
type UniformSource interface {
	FrameUniforms(width, height uint32) UniformData
}

// MeshData is one mesh to upload at renderer construction: raw vertex
// and index bytes plus the static model matrix baked into the recorded
// draw for it.
type MeshData struct {
	Vertices   []byte
	Indices    []byte
	IndexCount uint32
	Model      linmath.Mat4x4
}

// RendererConfig gathers everything the renderer needs beyond the
// device context: the surface to size against, the scene content and
// the compiled shaders.
type RendererConfig struct {
	Surface SurfaceProvider
	Camera  UniformSource

	Meshes        []MeshData
	TexturePixels []byte
	TextureWidth  uint32
	TextureHeight uint32

	VertexSPV        []byte
	FragmentSPV      []byte
	VertexBinding    vulkan.VertexInputBindingDescription
	VertexAttributes []vulkan.VertexInputAttributeDescription
	PushConstantSize uint32
}

// Renderer owns every swapchain-dependent resource and implements the
// per-tick frame protocol. Resources split into two lifetimes: the sync
// ring, command pool, geometry, texture and descriptor layout live for
// the renderer's whole life; the swapchain, target resources, command
// buffers, uniforms and descriptor sets are torn down and rebuilt
// whenever the surface goes stale.
type Renderer struct {
	ctx *Context
	cfg RendererConfig

	swapchain *Swapchain
	target    *TargetResources
	sync      *FrameSync
	pool      *CommandPool

	setLayout   vulkan.DescriptorSetLayout
	uniforms    *UniformRing
	descriptors *DescriptorSets
	texture     *Texture

	drawables      []Drawable
	commandBuffers []vulkan.CommandBuffer
}

// NewRenderer builds the full resource graph bottom-up: pool and sync
// ring, geometry and texture uploads, then the first swapchain
// generation. Any failure unwinds everything already created.
func NewRenderer(ctx *Context, cfg RendererConfig) (*Renderer, error) {
	r := &Renderer{ctx: ctx, cfg: cfg}

	var err error
	if r.pool, err = NewCommandPool(ctx); err != nil {
		return nil, err
	}
	if r.sync, err = NewFrameSync(ctx.Device); err != nil {
		r.Destroy()
		return nil, err
	}

	for i, mesh := range cfg.Meshes {
		vbuf, err := NewVertexBuffer(ctx, r.pool, mesh.Vertices)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("uploading mesh %d vertices: %w", i, err)
		}
		ibuf, err := NewIndexBuffer(ctx, r.pool, mesh.Indices)
		if err != nil {
			vbuf.Destroy(ctx.Device)
			r.Destroy()
			return nil, fmt.Errorf("uploading mesh %d indices: %w", i, err)
		}
		r.drawables = append(r.drawables, Drawable{
			Vertices:   vbuf,
			Indices:    ibuf,
			IndexCount: mesh.IndexCount,
			Model:      mesh.Model,
		})
	}

	if r.texture, err = NewTexture(ctx, r.pool, cfg.TexturePixels,
		cfg.TextureWidth, cfg.TextureHeight); err != nil {
		r.Destroy()
		return nil, err
	}
	if r.setLayout, err = NewDescriptorSetLayout(ctx.Device); err != nil {
		r.Destroy()
		return nil, err
	}

	if r.swapchain, err = NewSwapchain(ctx, cfg.Surface); err != nil {
		r.Destroy()
		return nil, err
	}
	if err = r.buildImageResources(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err = r.buildTarget(); err != nil {
		r.Destroy()
		return nil, err
	}

	return r, nil
}

// buildImageResources sizes the per-image uniform ring and descriptor
// sets to the current swapchain image count.
func (r *Renderer) buildImageResources() error {
	var err error
	if r.uniforms, err = NewUniformRing(r.ctx, r.swapchain.ImageCount()); err != nil {
		return err
	}
	if r.descriptors, err = NewDescriptorSets(r.ctx, r.setLayout,
		r.uniforms, r.texture, r.swapchain.ImageCount()); err != nil {
		return err
	}
	return nil
}

// buildTarget creates the target resource group for the current
// swapchain generation and records the draw commands against it.
func (r *Renderer) buildTarget() error {
	var err error
	r.target, err = NewTargetResources(r.ctx, TargetConfig{
		Extent:           r.swapchain.Extent(),
		ColorFormat:      r.swapchain.Format(),
		ImageViews:       r.swapchain.Views(),
		SetLayout:        r.setLayout,
		VertexSPV:        r.cfg.VertexSPV,
		FragmentSPV:      r.cfg.FragmentSPV,
		VertexBinding:    r.cfg.VertexBinding,
		VertexAttributes: r.cfg.VertexAttributes,
		PushConstantSize: r.cfg.PushConstantSize,
	})
	if err != nil {
		return err
	}

	r.commandBuffers, err = r.pool.RecordDrawCommands(r.ctx, RecordConfig{
		RenderPass:   r.target.RenderPass(),
		Framebuffers: r.target.Framebuffers(),
		Extent:       r.swapchain.Extent(),
		Pipeline:     r.target.Pipeline(),
		Descriptors:  r.descriptors,
		Drawables:    r.drawables,
	})
	return err
}

// WaitFrame blocks on the slot's in-flight fence.
func (r *Renderer) WaitFrame(slot int) error {
	return r.sync.Wait(r.ctx.Device, slot)
}

// AcquireImage acquires against the slot's image-available semaphore.
func (r *Renderer) AcquireImage(slot int) (int, bool, error) {
	return r.swapchain.AcquireNext(r.ctx.Device, r.sync.Slot(slot).ImageAvailable)
}

// ClaimFrame resets the slot's fence ahead of submission.
func (r *Renderer) ClaimFrame(slot int) error {
	return r.sync.Reset(r.ctx.Device, slot)
}

// UpdateImage writes fresh camera matrices into the image's uniform copy.
func (r *Renderer) UpdateImage(imageIndex int) error {
	extent := r.swapchain.Extent()
	data := r.cfg.Camera.FrameUniforms(extent.Width, extent.Height)
	r.uniforms.Update(imageIndex, &data)
	return nil
}

// SubmitImage submits the image's prerecorded command buffer: it waits
// for the acquire at the color-output stage, and signals the slot's
// render-finished semaphore and in-flight fence on completion.
func (r *Renderer) SubmitImage(imageIndex, slot int) error {
	if imageIndex < 0 || imageIndex >= len(r.commandBuffers) {
		panic(fmt.Sprintf("image index %d out of range [0, %d)",
			imageIndex, len(r.commandBuffers)))
	}
	fslot := r.sync.Slot(slot)

	submitInfo := vulkan.SubmitInfo{
		SType:              vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vulkan.Semaphore{fslot.ImageAvailable},
		PWaitDstStageMask: []vulkan.PipelineStageFlags{
			vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{r.commandBuffers[imageIndex]},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vulkan.Semaphore{fslot.RenderFinished},
	}

	res := vulkan.QueueSubmit(r.ctx.GraphicsQueue, 1,
		[]vulkan.SubmitInfo{submitInfo}, fslot.InFlight)
	if err := NewError(res); err != nil {
		return fmt.Errorf("submitting frame: %w", err)
	}
	return nil
}

// PresentImage queues the image for display behind the slot's
// render-finished semaphore.
func (r *Renderer) PresentImage(imageIndex, slot int) (bool, error) {
	return r.swapchain.Present(r.ctx.PresentQueue, imageIndex,
		r.sync.Slot(slot).RenderFinished)
}

// surfaceRebuilder is the step sequence of a surface rebuild, split out
// so its ordering invariants are testable without a device: the idle
// wait must come before anything is released, and the rebuilt
// generation must end with one recorded command buffer per framebuffer
// per swapchain image.
type surfaceRebuilder interface {
	// waitIdle blocks until no submitted work is in flight.
	waitIdle() error
	// releaseTargets frees the command buffers and destroys the target
	// group of the outgoing generation.
	releaseTargets()
	// recreateSwapchain negotiates a fresh chain and reports whether the
	// image count changed.
	recreateSwapchain() (countChanged bool, err error)
	// rebuildImageResources resizes the per-image uniforms and
	// descriptor sets to the new image count.
	rebuildImageResources() error
	// rebuildTargets builds the target group and records the draw
	// commands, returning the resulting counts.
	rebuildTargets() (commandBuffers, framebuffers, images int, err error)
}

// rebuildSurface runs the rebuild steps in their required order.
// Per-image resources are rebuilt only when the image count actually
// changed; everything else is rebuilt unconditionally.
func rebuildSurface(s surfaceRebuilder) error {
	// Nothing of the outgoing generation may be destroyed while the GPU
	// might still reference it.
	if err := s.waitIdle(); err != nil {
		return fmt.Errorf("waiting for device idle: %w", err)
	}
	s.releaseTargets()

	countChanged, err := s.recreateSwapchain()
	if err != nil {
		return err
	}
	if countChanged {
		if err := s.rebuildImageResources(); err != nil {
			return err
		}
	}

	commandBuffers, framebuffers, images, err := s.rebuildTargets()
	if err != nil {
		return err
	}
	if commandBuffers != framebuffers || framebuffers != images {
		return fmt.Errorf("rebuilt %d command buffers and %d framebuffers for %d images",
			commandBuffers, framebuffers, images)
	}
	return nil
}

// RebuildSurface tears down and recreates everything derived from the
// surface. Safe to call back to back.
func (r *Renderer) RebuildSurface() error {
	return rebuildSurface(r)
}

func (r *Renderer) waitIdle() error { return r.ctx.WaitIdle() }

func (r *Renderer) releaseTargets() {
	r.pool.Free(r.ctx.Device, r.commandBuffers)
	r.commandBuffers = nil
	r.target.Destroy(r.ctx)
	r.target = nil
}

func (r *Renderer) recreateSwapchain() (bool, error) {
	oldCount := r.swapchain.ImageCount()
	if err := r.swapchain.Recreate(r.ctx, r.cfg.Surface); err != nil {
		return false, err
	}
	extent := r.swapchain.Extent()
	log.Printf("render: swapchain generation %d, %d images, %dx%d",
		r.swapchain.Generation(), r.swapchain.ImageCount(), extent.Width, extent.Height)
	return r.swapchain.ImageCount() != oldCount, nil
}

func (r *Renderer) rebuildImageResources() error {
	r.descriptors.Destroy(r.ctx.Device)
	r.descriptors = nil
	r.uniforms.Destroy(r.ctx.Device)
	r.uniforms = nil
	return r.buildImageResources()
}

func (r *Renderer) rebuildTargets() (int, int, int, error) {
	if err := r.buildTarget(); err != nil {
		return 0, 0, 0, err
	}
	return len(r.commandBuffers), len(r.target.Framebuffers()), r.swapchain.ImageCount(), nil
}

// Destroy tears the whole renderer down in reverse construction order.
// Tolerates partially constructed state so it doubles as the error-path
// cleanup of NewRenderer. The caller waits the device idle first.
func (r *Renderer) Destroy() {
	device := r.ctx.Device

	if r.commandBuffers != nil {
		r.pool.Free(device, r.commandBuffers)
		r.commandBuffers = nil
	}
	if r.target != nil {
		r.target.Destroy(r.ctx)
		r.target = nil
	}
	if r.descriptors != nil {
		r.descriptors.Destroy(device)
		r.descriptors = nil
	}
	if r.uniforms != nil {
		r.uniforms.Destroy(device)
		r.uniforms = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy(device)
		r.swapchain = nil
	}
	if r.setLayout != vulkan.NullDescriptorSetLayout {
		vulkan.DestroyDescriptorSetLayout(device, r.setLayout, nil)
		r.setLayout = vulkan.NullDescriptorSetLayout
	}
	if r.texture != nil {
		r.texture.Destroy(device)
		r.texture = nil
	}
	for i := range r.drawables {
		r.drawables[i].Vertices.Destroy(device)
		r.drawables[i].Indices.Destroy(device)
	}
	r.drawables = nil
	if r.sync != nil {
		r.sync.Destroy(device)
		r.sync = nil
	}
	if r.pool != nil {
		r.pool.Destroy(device)
		r.pool = nil
	}
}
