package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// NewShaderModule wraps precompiled SPIR-V bytecode. The blob is opaque
// except for one contract: SPIR-V words are 32 bits, so the byte length
// must be a multiple of 4.
func NewShaderModule(device vulkan.Device, code []byte) (vulkan.ShaderModule, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("empty shader bytecode")
	}
	if len(code)%4 != 0 {
		return nil, fmt.Errorf("shader bytecode length %d is not 4-byte aligned", len(code))
	}

	createInfo := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vulkan.ShaderModule
	if err := NewError(vulkan.CreateShaderModule(device, &createInfo, nil, &module)); err != nil {
		return nil, fmt.Errorf("creating shader module: %w", err)
	}
	return module, nil
}
