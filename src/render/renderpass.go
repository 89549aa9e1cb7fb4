package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// newRenderPass describes the single forward pass. With multisampling the
// attachments are: 0 multisampled color (cleared, resolved away), 1 depth
// (cleared, discarded), 2 the swapchain image receiving the resolve and
// transitioning to present. Without multisampling the swapchain image is
// attachment 0 and rendered to directly. Framebuffer attachment order in
// target.go must match this layout exactly.
func newRenderPass(ctx *Context, colorFormat, depthFormat vulkan.Format) (vulkan.RenderPass, error) {
	multisampled := ctx.Samples != vulkan.SampleCount1Bit

	colorAttachment := vulkan.AttachmentDescription{
		Format:         colorFormat,
		Samples:        ctx.Samples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}
	if multisampled {
		// The multisampled image is never presented; it resolves into
		// attachment 2 at the end of the pass.
		colorAttachment.StoreOp = vulkan.AttachmentStoreOpDontCare
		colorAttachment.FinalLayout = vulkan.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vulkan.AttachmentDescription{
		Format:         depthFormat,
		Samples:        ctx.Samples,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpDontCare,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}

	colorRef := vulkan.AttachmentReference{
		Attachment: 0,
		Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
	}
	depthRef := vulkan.AttachmentReference{
		Attachment: 1,
		Layout:     vulkan.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:       vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vulkan.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}

	attachments := []vulkan.AttachmentDescription{colorAttachment, depthAttachment}

	if multisampled {
		resolveAttachment := vulkan.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vulkan.SampleCount1Bit,
			LoadOp:         vulkan.AttachmentLoadOpDontCare,
			StoreOp:        vulkan.AttachmentStoreOpStore,
			StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
			StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
			InitialLayout:  vulkan.ImageLayoutUndefined,
			FinalLayout:    vulkan.ImageLayoutPresentSrc,
		}
		attachments = append(attachments, resolveAttachment)
		subpass.PResolveAttachments = []vulkan.AttachmentReference{{
			Attachment: 2,
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}}
	}

	dependency := vulkan.SubpassDependency{
		SrcSubpass: vulkan.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit) |
			vulkan.PipelineStageFlags(vulkan.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask: vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit) |
			vulkan.PipelineStageFlags(vulkan.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit) |
			vulkan.AccessFlags(vulkan.AccessDepthStencilAttachmentWriteBit),
	}

	passInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}

	var renderPass vulkan.RenderPass
	if err := NewError(vulkan.CreateRenderPass(ctx.Device, &passInfo, nil, &renderPass)); err != nil {
		return nil, fmt.Errorf("creating render pass: %w", err)
	}
	return renderPass, nil
}
