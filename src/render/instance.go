package render

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

const validationLayer = "VK_LAYER_KHRONOS_validation\x00"

// InstanceConfig names the application and lists the surface extensions
// the windowing collaborator requires. Debug enables the validation layer
// and routes its diagnostics to the log; diagnostics never affect control
// flow.
type InstanceConfig struct {
	AppName    string
	Extensions []string
	Debug      bool
}

// CreateInstance creates the Vulkan instance, optionally with the
// validation layer and a debug report callback attached.
func CreateInstance(cfg InstanceConfig) (vulkan.Instance, vulkan.DebugReportCallback, error) {
	extensions := cfg.Extensions
	if cfg.Debug {
		if !hasValidationLayer() {
			return nil, vulkan.NullDebugReportCallback,
				fmt.Errorf("validation layer requested but not available")
		}
		extensions = append(extensions, vulkan.ExtDebugReportExtensionName+"\x00")
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   cfg.AppName + "\x00",
		ApplicationVersion: vulkan.MakeVersion(1, 0, 0),
		PEngineName:        "helix\x00",
		EngineVersion:      vulkan.MakeVersion(1, 0, 0),
		ApiVersion:         vulkan.ApiVersion10,
	}

	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if cfg.Debug {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = []string{validationLayer}
	}

	var instance vulkan.Instance
	if err := NewError(vulkan.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, vulkan.NullDebugReportCallback, fmt.Errorf("creating instance: %w", err)
	}
	vulkan.InitInstance(instance)

	var dbg vulkan.DebugReportCallback = vulkan.NullDebugReportCallback
	if cfg.Debug {
		dbgCreateInfo := vulkan.DebugReportCallbackCreateInfo{
			SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vulkan.DebugReportFlags(
				vulkan.DebugReportErrorBit | vulkan.DebugReportWarningBit |
					vulkan.DebugReportPerformanceWarningBit,
			),
			PfnCallback: debugReportFunc,
		}
		res := vulkan.CreateDebugReportCallback(instance, &dbgCreateInfo, nil, &dbg)
		if err := NewError(res); err != nil {
			// Observability only: keep going without the callback.
			log.Printf("WARNING: creating debug report callback: %s", err)
			dbg = vulkan.NullDebugReportCallback
		}
	}

	return instance, dbg, nil
}

func hasValidationLayer() bool {
	var layerCount uint32
	vulkan.EnumerateInstanceLayerProperties(&layerCount, nil)

	layers := make([]vulkan.LayerProperties, layerCount)
	vulkan.EnumerateInstanceLayerProperties(&layerCount, layers)

	for _, layer := range layers {
		layer.Deref()
		if vulkan.ToString(layer.LayerName[:])+"\x00" == validationLayer {
			return true
		}
	}
	return false
}

func debugReportFunc(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vulkan.Bool32 {

	switch {
	case flags&vulkan.DebugReportFlags(vulkan.DebugReportErrorBit) != 0:
		log.Printf("[vulkan ERROR %s] %s", pLayerPrefix, pMessage)
	default:
		log.Printf("[vulkan WARN %s] %s", pLayerPrefix, pMessage)
	}
	return vulkan.Bool32(vulkan.False)
}
