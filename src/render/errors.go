package render

import (
	"fmt"
	"runtime"

	"github.com/vulkan-go/vulkan"
)

// NewError converts a non-success vulkan.Result into an error annotated
// with the call site. Success maps to nil so results can be wrapped
// unconditionally.
func NewError(retVal vulkan.Result) error {
	if retVal != vulkan.Success {
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			return fmt.Errorf("vulkan error: %w (%d)", vulkan.Error(retVal), retVal)
		}
		frame := newStackFrame(pc)
		return fmt.Errorf("vulkan error: %w (%d) on %s",
			vulkan.Error(retVal), retVal, frame.String())
	}
	return nil
}

func IsError(retVal vulkan.Result) bool {
	return retVal != vulkan.Success
}

// IsStale reports whether a result is the presentation engine telling us
// the swapchain no longer matches the surface. Stale results are expected
// during resize and never treated as errors; they trigger the target
// resource rebuild instead.
func IsStale(retVal vulkan.Result) bool {
	return retVal == vulkan.ErrorOutOfDate || retVal == vulkan.Suboptimal
}

// OrPanic aborts on a fatal error after running the given finalizers.
// Reserved for the unrecoverable category: failures that indicate an
// unsupportable environment rather than a runtime condition.
func OrPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

// CheckError recovers a panic into *err.
func CheckError(err *error) {
	if v := recover(); v != nil {
		*err = fmt.Errorf("%+v", v)
	}
}
