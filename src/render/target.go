package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// TargetResources groups everything whose lifetime is bound to one
// swapchain generation: the attachments, the render pass, one
// framebuffer per swapchain image and the pipeline. A rebuild destroys
// and recreates the whole group; the sync ring and geometry buffers
// live outside it and survive.
type TargetResources struct {
	renderPass   vulkan.RenderPass
	color        *Image // nil at 1 sample, the resolve source otherwise
	depth        *Image
	framebuffers []vulkan.Framebuffer
	pipeline     *Pipeline
}

// TargetConfig carries the swapchain-generation inputs plus the pipeline
// inputs that do not change across rebuilds.
type TargetConfig struct {
	Extent      vulkan.Extent2D
	ColorFormat vulkan.Format
	ImageViews  []vulkan.ImageView

	SetLayout        vulkan.DescriptorSetLayout
	VertexSPV        []byte
	FragmentSPV      []byte
	VertexBinding    vulkan.VertexInputBindingDescription
	VertexAttributes []vulkan.VertexInputAttributeDescription
	PushConstantSize uint32
}

// NewTargetResources builds the group in dependency order: attachments,
// render pass, framebuffers, pipeline. Any failure unwinds what was
// already created.
func NewTargetResources(ctx *Context, cfg TargetConfig) (*TargetResources, error) {
	t := &TargetResources{}

	var err error
	if ctx.Samples > vulkan.SampleCount1Bit {
		t.color, err = newColorTarget(ctx, cfg.ColorFormat, cfg.Extent)
		if err != nil {
			return nil, err
		}
	}
	t.depth, err = newDepthTarget(ctx, cfg.Extent)
	if err != nil {
		t.Destroy(ctx)
		return nil, err
	}

	t.renderPass, err = newRenderPass(ctx, cfg.ColorFormat, t.depth.Format())
	if err != nil {
		t.Destroy(ctx)
		return nil, err
	}

	if err := t.createFramebuffers(ctx, cfg); err != nil {
		t.Destroy(ctx)
		return nil, err
	}

	t.pipeline, err = NewPipeline(ctx, PipelineConfig{
		Extent:           cfg.Extent,
		RenderPass:       t.renderPass,
		SetLayout:        cfg.SetLayout,
		VertexSPV:        cfg.VertexSPV,
		FragmentSPV:      cfg.FragmentSPV,
		VertexBinding:    cfg.VertexBinding,
		VertexAttributes: cfg.VertexAttributes,
		PushConstantSize: cfg.PushConstantSize,
	})
	if err != nil {
		t.Destroy(ctx)
		return nil, err
	}

	return t, nil
}

// createFramebuffers makes one framebuffer per swapchain image view. The
// attachment order must match the render pass: with multisampling the
// fixed color and depth targets come first and the swapchain view is the
// resolve destination; without it the swapchain view is the color
// attachment itself.
func (t *TargetResources) createFramebuffers(ctx *Context, cfg TargetConfig) error {
	t.framebuffers = make([]vulkan.Framebuffer, len(cfg.ImageViews))
	for i, view := range cfg.ImageViews {
		var attachments []vulkan.ImageView
		if t.color != nil {
			attachments = []vulkan.ImageView{t.color.View(), t.depth.View(), view}
		} else {
			attachments = []vulkan.ImageView{view, t.depth.View()}
		}

		fbInfo := vulkan.FramebufferCreateInfo{
			SType:           vulkan.StructureTypeFramebufferCreateInfo,
			RenderPass:      t.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           cfg.Extent.Width,
			Height:          cfg.Extent.Height,
			Layers:          1,
		}
		res := vulkan.CreateFramebuffer(ctx.Device, &fbInfo, nil, &t.framebuffers[i])
		if err := NewError(res); err != nil {
			return fmt.Errorf("creating framebuffer %d: %w", i, err)
		}
	}
	return nil
}

// RenderPass returns the pass for command recording.
func (t *TargetResources) RenderPass() vulkan.RenderPass { return t.renderPass }

// Framebuffers returns the per-image framebuffers for command recording.
func (t *TargetResources) Framebuffers() []vulkan.Framebuffer { return t.framebuffers }

// Pipeline returns the graphics pipeline built against this generation.
func (t *TargetResources) Pipeline() *Pipeline { return t.pipeline }

// Destroy tears the group down in reverse dependency order: framebuffers
// before the render pass they were created against, the pipeline before
// the pass it targets, attachments last. Callers wait the device idle
// first. Tolerates partially constructed state.
func (t *TargetResources) Destroy(ctx *Context) {
	for _, fb := range t.framebuffers {
		if fb != vulkan.NullFramebuffer {
			vulkan.DestroyFramebuffer(ctx.Device, fb, nil)
		}
	}
	t.framebuffers = nil

	if t.pipeline != nil {
		t.pipeline.Destroy(ctx.Device)
		t.pipeline = nil
	}
	if t.renderPass != vulkan.NullRenderPass {
		vulkan.DestroyRenderPass(ctx.Device, t.renderPass, nil)
		t.renderPass = vulkan.NullRenderPass
	}
	if t.depth != nil {
		t.depth.Destroy(ctx.Device)
		t.depth = nil
	}
	if t.color != nil {
		t.color.Destroy(ctx.Device)
		t.color = nil
	}
}
