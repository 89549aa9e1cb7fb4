package render

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeFrame records the protocol calls the loop makes, in order, and
// lets tests inject staleness and failures at each step.
type fakeFrame struct {
	calls []string

	imageIndex      int
	acquireOutdated bool
	presentOutdated bool

	waitErr    error
	acquireErr error
	claimErr   error
	updateErr  error
	submitErr  error
	presentErr error
	rebuildErr error
}

func (f *fakeFrame) WaitFrame(slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("wait:%d", slot))
	return f.waitErr
}

func (f *fakeFrame) AcquireImage(slot int) (int, bool, error) {
	f.calls = append(f.calls, fmt.Sprintf("acquire:%d", slot))
	if f.acquireErr != nil {
		return 0, false, f.acquireErr
	}
	if f.acquireOutdated {
		f.acquireOutdated = false
		return 0, true, nil
	}
	return f.imageIndex, false, nil
}

func (f *fakeFrame) ClaimFrame(slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("claim:%d", slot))
	return f.claimErr
}

func (f *fakeFrame) UpdateImage(imageIndex int) error {
	f.calls = append(f.calls, fmt.Sprintf("update:%d", imageIndex))
	return f.updateErr
}

func (f *fakeFrame) SubmitImage(imageIndex, slot int) error {
	f.calls = append(f.calls, fmt.Sprintf("submit:%d:%d", imageIndex, slot))
	return f.submitErr
}

func (f *fakeFrame) PresentImage(imageIndex, slot int) (bool, error) {
	f.calls = append(f.calls, fmt.Sprintf("present:%d:%d", imageIndex, slot))
	if f.presentErr != nil {
		return false, f.presentErr
	}
	if f.presentOutdated {
		f.presentOutdated = false
		return true, nil
	}
	return false, nil
}

func (f *fakeFrame) RebuildSurface() error {
	f.calls = append(f.calls, "rebuild")
	return f.rebuildErr
}

func TestFrameLoopTickOrder(t *testing.T) {
	fake := &fakeFrame{imageIndex: 2}
	loop := NewFrameLoop(fake)

	require.NoError(t, loop.Tick())
	require.Equal(t, []string{
		"wait:0", "acquire:0", "claim:0", "update:2", "submit:2:0", "present:2:0",
	}, fake.calls)
	require.Equal(t, 1, loop.Frame())
}

func TestFrameLoopSlotAlternation(t *testing.T) {
	fake := &fakeFrame{}
	loop := NewFrameLoop(fake)

	for i := 0; i < 2*MaxFramesInFlight; i++ {
		require.Equal(t, i%MaxFramesInFlight, loop.Frame())
		require.NoError(t, loop.Tick())
	}
	require.Equal(t, 0, loop.Frame())
}

func TestFrameLoopStaleAcquire(t *testing.T) {
	fake := &fakeFrame{imageIndex: 1, acquireOutdated: true}
	loop := NewFrameLoop(fake)

	require.NoError(t, loop.Tick())
	require.Equal(t, []string{"wait:0", "acquire:0", "rebuild"}, fake.calls,
		"a frame without an image must not claim, submit or present")
	require.Equal(t, 0, loop.Frame(), "a skipped frame must not advance the slot")

	// The retried tick reuses the same slot against the fresh chain.
	fake.calls = nil
	require.NoError(t, loop.Tick())
	require.Equal(t, []string{
		"wait:0", "acquire:0", "claim:0", "update:1", "submit:1:0", "present:1:0",
	}, fake.calls)
	require.Equal(t, 1, loop.Frame())
}

func TestFrameLoopStalePresentDefersRebuild(t *testing.T) {
	fake := &fakeFrame{presentOutdated: true}
	loop := NewFrameLoop(fake)

	require.NoError(t, loop.Tick())
	require.NotContains(t, fake.calls, "rebuild",
		"the presented image was consumed; the rebuild waits for the next tick")
	require.Equal(t, 1, loop.Frame(), "a presented frame advances the slot")

	fake.calls = nil
	require.NoError(t, loop.Tick())
	require.Equal(t, "rebuild", fake.calls[0])
	require.Equal(t, []string{
		"rebuild", "wait:1", "acquire:1", "claim:1", "update:0", "submit:0:1", "present:0:1",
	}, fake.calls, "the deferred rebuild runs before the frame, which then proceeds")
}

func TestFrameLoopScheduleRebuild(t *testing.T) {
	fake := &fakeFrame{}
	loop := NewFrameLoop(fake)

	loop.ScheduleRebuild()
	require.NoError(t, loop.Tick())
	require.Equal(t, "rebuild", fake.calls[0])

	// The request is consumed; the next tick runs clean.
	fake.calls = nil
	require.NoError(t, loop.Tick())
	require.NotContains(t, fake.calls, "rebuild")
}

func TestFrameLoopRebuildIdempotence(t *testing.T) {
	// A resize notification racing a stale present must still produce
	// exactly one rebuild per tick, never a claim on a skipped frame.
	fake := &fakeFrame{presentOutdated: true}
	loop := NewFrameLoop(fake)

	require.NoError(t, loop.Tick())
	loop.ScheduleRebuild()

	fake.calls = nil
	require.NoError(t, loop.Tick())

	rebuilds := 0
	for _, call := range fake.calls {
		if call == "rebuild" {
			rebuilds++
		}
	}
	require.Equal(t, 1, rebuilds)
}

func TestFrameLoopErrors(t *testing.T) {
	boom := errors.New("boom")

	for _, tc := range []struct {
		name string
		set  func(*fakeFrame)
	}{
		{"wait", func(f *fakeFrame) { f.waitErr = boom }},
		{"acquire", func(f *fakeFrame) { f.acquireErr = boom }},
		{"claim", func(f *fakeFrame) { f.claimErr = boom }},
		{"update", func(f *fakeFrame) { f.updateErr = boom }},
		{"submit", func(f *fakeFrame) { f.submitErr = boom }},
		{"present", func(f *fakeFrame) { f.presentErr = boom }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeFrame{}
			tc.set(fake)
			loop := NewFrameLoop(fake)

			err := loop.Tick()
			require.ErrorIs(t, err, boom)
			require.Equal(t, 0, loop.Frame(), "a failed tick must not advance the slot")
		})
	}
}

func TestFrameLoopRebuildError(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeFrame{acquireOutdated: true, rebuildErr: boom}
	loop := NewFrameLoop(fake)

	require.ErrorIs(t, loop.Tick(), boom)
}

func TestFrameLoopFailedDeferredRebuildStaysPending(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeFrame{rebuildErr: boom}
	loop := NewFrameLoop(fake)

	loop.ScheduleRebuild()
	require.ErrorIs(t, loop.Tick(), boom)
	require.Equal(t, []string{"rebuild"}, fake.calls,
		"a failed rebuild must not proceed into the frame")

	// Once the rebuild can succeed, the retry happens before the frame
	// rather than leaving the loop to run against the stale chain.
	fake.rebuildErr = nil
	fake.calls = nil
	require.NoError(t, loop.Tick())
	require.Equal(t, "rebuild", fake.calls[0])
	require.Contains(t, fake.calls, "present:0:0")
}
