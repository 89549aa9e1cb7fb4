package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/vulkan"
)

func TestNewError(t *testing.T) {
	require.NoError(t, NewError(vulkan.Success))

	err := NewError(vulkan.ErrorOutOfDate)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vulkan error")
	require.Contains(t, err.Error(), "errors_test.go", "the error names its call site")
}

func TestIsStale(t *testing.T) {
	require.True(t, IsStale(vulkan.ErrorOutOfDate))
	require.True(t, IsStale(vulkan.Suboptimal))
	require.False(t, IsStale(vulkan.Success))
	require.False(t, IsStale(vulkan.ErrorDeviceLost),
		"a lost device is fatal, not a rebuild trigger")
}

func TestOrPanic(t *testing.T) {
	require.NotPanics(t, func() { OrPanic(nil) })

	ran := false
	require.Panics(t, func() {
		OrPanic(errors.New("boom"), func() { ran = true })
	})
	require.True(t, ran, "finalizers run before the panic")
}

func TestCheckError(t *testing.T) {
	fn := func() (err error) {
		defer CheckError(&err)
		panic("boom")
	}
	err := fn()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestFrameSyncSlotBounds(t *testing.T) {
	var fs FrameSync
	require.NotSame(t, fs.Slot(0), fs.Slot(1))
	require.Panics(t, func() { fs.Slot(-1) })
	require.Panics(t, func() { fs.Slot(MaxFramesInFlight) })
}

func TestShaderModuleRejectsBadBytecode(t *testing.T) {
	_, err := NewShaderModule(nil, nil)
	require.Error(t, err)

	_, err = NewShaderModule(nil, []byte{1, 2, 3})
	require.Error(t, err)
	require.Contains(t, err.Error(), "aligned")
}
