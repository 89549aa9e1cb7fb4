package render

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRebuilder records the rebuild steps in order and lets tests
// inject failures and count outcomes at each one.
type fakeRebuilder struct {
	calls []string

	waitErr     error
	recreateErr error
	imageErr    error
	targetErr   error

	countChanged   bool
	commandBuffers int
	framebuffers   int
	images         int
}

func (f *fakeRebuilder) waitIdle() error {
	f.calls = append(f.calls, "waitIdle")
	return f.waitErr
}

func (f *fakeRebuilder) releaseTargets() {
	f.calls = append(f.calls, "releaseTargets")
}

func (f *fakeRebuilder) recreateSwapchain() (bool, error) {
	f.calls = append(f.calls, "recreateSwapchain")
	return f.countChanged, f.recreateErr
}

func (f *fakeRebuilder) rebuildImageResources() error {
	f.calls = append(f.calls, "rebuildImageResources")
	return f.imageErr
}

func (f *fakeRebuilder) rebuildTargets() (int, int, int, error) {
	f.calls = append(f.calls, "rebuildTargets")
	return f.commandBuffers, f.framebuffers, f.images, f.targetErr
}

func TestRebuildSurfaceOrder(t *testing.T) {
	fake := &fakeRebuilder{commandBuffers: 3, framebuffers: 3, images: 3}

	require.NoError(t, rebuildSurface(fake))
	require.Equal(t, []string{
		"waitIdle", "releaseTargets", "recreateSwapchain", "rebuildTargets",
	}, fake.calls, "the idle wait comes before any release, and a stable image count skips the per-image resources")
}

func TestRebuildSurfaceResizesImageResources(t *testing.T) {
	fake := &fakeRebuilder{
		countChanged:   true,
		commandBuffers: 4, framebuffers: 4, images: 4,
	}

	require.NoError(t, rebuildSurface(fake))
	require.Equal(t, []string{
		"waitIdle", "releaseTargets", "recreateSwapchain",
		"rebuildImageResources", "rebuildTargets",
	}, fake.calls, "per-image resources are rebuilt before anything records against them")
}

func TestRebuildSurfaceIdleWaitGate(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeRebuilder{waitErr: boom}

	require.ErrorIs(t, rebuildSurface(fake), boom)
	require.Equal(t, []string{"waitIdle"}, fake.calls,
		"nothing is released while in-flight work may still reference it")
}

func TestRebuildSurfaceCountInvariant(t *testing.T) {
	for idx, tc := range []struct {
		commandBuffers, framebuffers, images int
		ok                                   bool
	}{
		{3, 3, 3, true},
		{2, 3, 3, false},
		{3, 2, 3, false},
		{3, 3, 2, false},
	} {
		fake := &fakeRebuilder{
			commandBuffers: tc.commandBuffers,
			framebuffers:   tc.framebuffers,
			images:         tc.images,
		}
		err := rebuildSurface(fake)
		if tc.ok {
			require.NoError(t, err, "case %d", idx)
		} else {
			require.Error(t, err, "case %d: every image needs exactly one framebuffer and one recorded buffer", idx)
		}
	}
}

func TestRebuildSurfaceErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("recreate failure stops before targets", func(t *testing.T) {
		fake := &fakeRebuilder{recreateErr: boom}
		require.ErrorIs(t, rebuildSurface(fake), boom)
		require.NotContains(t, fake.calls, "rebuildTargets")
	})

	t.Run("image resource failure stops before targets", func(t *testing.T) {
		fake := &fakeRebuilder{countChanged: true, imageErr: boom}
		require.ErrorIs(t, rebuildSurface(fake), boom)
		require.NotContains(t, fake.calls, "rebuildTargets")
	})

	t.Run("target failure propagates", func(t *testing.T) {
		fake := &fakeRebuilder{targetErr: boom}
		require.ErrorIs(t, rebuildSurface(fake), boom)
	})
}
