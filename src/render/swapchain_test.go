package render

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vulkan.SurfaceFormat{
		Format:     vulkan.FormatB8g8r8a8Srgb,
		ColorSpace: vulkan.ColorSpaceSrgbNonlinear,
	}
	other := vulkan.SurfaceFormat{
		Format:     vulkan.FormatR8g8b8a8Unorm,
		ColorSpace: vulkan.ColorSpaceSrgbNonlinear,
	}

	t.Run("prefers sRGB BGRA", func(t *testing.T) {
		got, err := chooseSurfaceFormat([]vulkan.SurfaceFormat{other, preferred})
		require.NoError(t, err)
		require.Equal(t, preferred, got)
	})

	t.Run("falls back to first", func(t *testing.T) {
		got, err := chooseSurfaceFormat([]vulkan.SurfaceFormat{other})
		require.NoError(t, err)
		require.Equal(t, other, got)
	})

	t.Run("empty is an error", func(t *testing.T) {
		_, err := chooseSurfaceFormat(nil)
		require.Error(t, err)
	})
}

func TestChoosePresentMode(t *testing.T) {
	t.Run("prefers mailbox", func(t *testing.T) {
		got, err := choosePresentMode([]vulkan.PresentMode{
			vulkan.PresentModeFifo, vulkan.PresentModeMailbox,
		})
		require.NoError(t, err)
		require.Equal(t, vulkan.PresentModeMailbox, got)
	})

	t.Run("falls back to fifo", func(t *testing.T) {
		got, err := choosePresentMode([]vulkan.PresentMode{
			vulkan.PresentModeImmediate, vulkan.PresentModeFifo,
		})
		require.NoError(t, err)
		require.Equal(t, vulkan.PresentModeFifo, got)
	})

	t.Run("empty is an error", func(t *testing.T) {
		_, err := choosePresentMode(nil)
		require.Error(t, err)
	})
}

func TestChooseExtent(t *testing.T) {
	caps := func(current, min, max vulkan.Extent2D) vulkan.SurfaceCapabilities {
		return vulkan.SurfaceCapabilities{
			CurrentExtent:  current,
			MinImageExtent: min,
			MaxImageExtent: max,
		}
	}

	for idx, tc := range []struct {
		caps       vulkan.SurfaceCapabilities
		drawableW  uint32
		drawableH  uint32
		wantW      uint32
		wantH      uint32
		constraint string
	}{
		{
			caps:       caps(vulkan.Extent2D{Width: 800, Height: 600}, vulkan.Extent2D{Width: 1, Height: 1}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			drawableW:  1024, drawableH: 768,
			wantW: 800, wantH: 600,
			constraint: "pinned current extent wins over the drawable size",
		},
		{
			caps:       caps(vulkan.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}, vulkan.Extent2D{Width: 1, Height: 1}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			drawableW:  1024, drawableH: 768,
			wantW: 1024, wantH: 768,
			constraint: "sentinel current extent defers to the drawable size",
		},
		{
			caps:       caps(vulkan.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}, vulkan.Extent2D{Width: 16, Height: 16}, vulkan.Extent2D{Width: 256, Height: 256}),
			drawableW:  1024, drawableH: 8,
			wantW: 256, wantH: 16,
			constraint: "drawable size clamps to the capability bounds",
		},
		{
			caps:       caps(vulkan.Extent2D{}, vulkan.Extent2D{}, vulkan.Extent2D{Width: 4096, Height: 4096}),
			drawableW:  0, drawableH: 0,
			wantW: 1, wantH: 1,
			constraint: "a minimized 0x0 drawable never produces a zero extent",
		},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			got := chooseExtent(tc.caps, tc.drawableW, tc.drawableH)
			require.Equal(t, tc.wantW, got.Width, tc.constraint)
			require.Equal(t, tc.wantH, got.Height, tc.constraint)
		})
	}
}

func TestChooseImageCount(t *testing.T) {
	for idx, tc := range []struct {
		min, max, want uint32
	}{
		{2, 8, 3},  // one above the minimum
		{3, 3, 3},  // capped by the maximum
		{2, 0, 3},  // zero max means unbounded
		{16, 4, 4}, // never above a real maximum
	} {
		t.Run(fmt.Sprintf("%d/min=%d,max=%d", idx, tc.min, tc.max), func(t *testing.T) {
			got := chooseImageCount(vulkan.SurfaceCapabilities{
				MinImageCount: tc.min,
				MaxImageCount: tc.max,
			})
			require.Equal(t, tc.want, got)
		})
	}
}
