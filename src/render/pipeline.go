package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// PipelineConfig carries everything the graphics pipeline bakes in at
// creation time. Viewport and scissor are static state, so the pipeline
// is tied to one extent and rebuilt with the rest of the target set.
type PipelineConfig struct {
	Extent     vulkan.Extent2D
	RenderPass vulkan.RenderPass
	SetLayout  vulkan.DescriptorSetLayout

	VertexSPV   []byte
	FragmentSPV []byte

	VertexBinding    vulkan.VertexInputBindingDescription
	VertexAttributes []vulkan.VertexInputAttributeDescription

	// PushConstantSize is the per-drawable payload pushed at record time
	// (the model matrix), visible to the vertex stage.
	PushConstantSize uint32
}

// Pipeline owns the graphics pipeline and its layout.
type Pipeline struct {
	layout   vulkan.PipelineLayout
	pipeline vulkan.Pipeline
}

// Layout returns the pipeline layout for descriptor and push-constant
// binding during command recording.
func (p *Pipeline) Layout() vulkan.PipelineLayout { return p.layout }

// Handle returns the pipeline for command recording.
func (p *Pipeline) Handle() vulkan.Pipeline { return p.pipeline }

// NewPipeline builds the one graphics pipeline of the forward pass.
// Shader modules live only for the duration of this call.
func NewPipeline(ctx *Context, cfg PipelineConfig) (*Pipeline, error) {
	vertModule, err := NewShaderModule(ctx.Device, cfg.VertexSPV)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer vulkan.DestroyShaderModule(ctx.Device, vertModule, nil)

	fragModule, err := NewShaderModule(ctx.Device, cfg.FragmentSPV)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer vulkan.DestroyShaderModule(ctx.Device, fragModule, nil)

	shaderStages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: vertModule,
			PName:  "main\x00",
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  "main\x00",
		},
	}

	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                         vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vulkan.VertexInputBindingDescription{
			cfg.VertexBinding,
		},
		VertexAttributeDescriptionCount: uint32(len(cfg.VertexAttributes)),
		PVertexAttributeDescriptions:    cfg.VertexAttributes,
	}

	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vulkan.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vulkan.False,
	}

	viewport := vulkan.Viewport{
		X: 0, Y: 0,
		Width:    float32(cfg.Extent.Width),
		Height:   float32(cfg.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vulkan.Rect2D{
		Offset: vulkan.Offset2D{X: 0, Y: 0},
		Extent: cfg.Extent,
	}
	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vulkan.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vulkan.Rect2D{scissor},
	}

	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:                   vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vulkan.False,
		RasterizerDiscardEnable: vulkan.False,
		PolygonMode:             vulkan.PolygonModeFill,
		LineWidth:               1,
		CullMode:                vulkan.CullModeFlags(vulkan.CullModeBackBit),
		FrontFace:               vulkan.FrontFaceCounterClockwise,
		DepthBiasEnable:         vulkan.False,
	}

	multisampling := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: ctx.Samples,
		SampleShadingEnable:  vulkan.False,
		MinSampleShading:     1,
	}

	depthStencil := vulkan.PipelineDepthStencilStateCreateInfo{
		SType:                 vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vulkan.True,
		DepthWriteEnable:      vulkan.True,
		DepthCompareOp:        vulkan.CompareOpLess,
		DepthBoundsTestEnable: vulkan.False,
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
		StencilTestEnable:     vulkan.False,
	}

	colorBlendAttachment := vulkan.PipelineColorBlendAttachmentState{
		ColorWriteMask: vulkan.ColorComponentFlags(
			vulkan.ColorComponentRBit |
				vulkan.ColorComponentGBit |
				vulkan.ColorComponentBBit |
				vulkan.ColorComponentABit,
		),
		BlendEnable:         vulkan.False,
		SrcColorBlendFactor: vulkan.BlendFactorOne,
		DstColorBlendFactor: vulkan.BlendFactorZero,
		ColorBlendOp:        vulkan.BlendOpAdd,
		SrcAlphaBlendFactor: vulkan.BlendFactorOne,
		DstAlphaBlendFactor: vulkan.BlendFactorZero,
		AlphaBlendOp:        vulkan.BlendOpAdd,
	}
	colorBlending := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vulkan.False,
		LogicOp:         vulkan.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vulkan.PipelineColorBlendAttachmentState{
			colorBlendAttachment,
		},
	}

	layoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType:          vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vulkan.DescriptorSetLayout{cfg.SetLayout},
	}
	if cfg.PushConstantSize > 0 {
		layoutInfo.PushConstantRangeCount = 1
		layoutInfo.PPushConstantRanges = []vulkan.PushConstantRange{{
			StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit),
			Offset:     0,
			Size:       cfg.PushConstantSize,
		}}
	}

	p := &Pipeline{}
	if err := NewError(vulkan.CreatePipelineLayout(ctx.Device, &layoutInfo, nil, &p.layout)); err != nil {
		return nil, fmt.Errorf("creating pipeline layout: %w", err)
	}

	pipelineInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlending,
		Layout:              p.layout,
		RenderPass:          cfg.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vulkan.Pipeline(vulkan.NullHandle),
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vulkan.Pipeline, 1)
	res := vulkan.CreateGraphicsPipelines(
		ctx.Device,
		vulkan.PipelineCache(vulkan.NullHandle),
		1,
		[]vulkan.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines,
	)
	if err := NewError(res); err != nil {
		vulkan.DestroyPipelineLayout(ctx.Device, p.layout, nil)
		return nil, fmt.Errorf("creating graphics pipeline: %w", err)
	}
	p.pipeline = pipelines[0]

	return p, nil
}

// Destroy releases the pipeline and then its layout.
func (p *Pipeline) Destroy(device vulkan.Device) {
	if p.pipeline != vulkan.NullPipeline {
		vulkan.DestroyPipeline(device, p.pipeline, nil)
		p.pipeline = vulkan.NullPipeline
	}
	if p.layout != vulkan.NullPipelineLayout {
		vulkan.DestroyPipelineLayout(device, p.layout, nil)
		p.layout = vulkan.NullPipelineLayout
	}
}
