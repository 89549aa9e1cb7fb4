package render

import "fmt"

// FrameContext is everything one frame tick needs from the renderer.
// The split keeps the ordering protocol in FrameLoop testable without a
// device: each method corresponds to one step of the tick, and the loop
// owns when each fires and with which index kind. Slot-indexed steps
// take the frame slot, image-indexed steps take the swapchain image
// index; implementations must never swap the two.
type FrameContext interface {
	// WaitFrame blocks until the slot's previous submission completed.
	WaitFrame(slot int) error

	// AcquireImage acquires the next swapchain image, signaling the
	// slot's image-available semaphore. outdated reports that no
	// renderable image exists and the surface must be rebuilt.
	AcquireImage(slot int) (imageIndex int, outdated bool, err error)

	// ClaimFrame unsignals the slot's fence. Called only once the tick
	// is committed to submitting; claiming a skipped frame would
	// deadlock the next wait on this slot.
	ClaimFrame(slot int) error

	// UpdateImage refreshes per-image state (the uniform copy) for the
	// image about to be rendered.
	UpdateImage(imageIndex int) error

	// SubmitImage submits the image's prerecorded command buffer,
	// waiting on the slot's image-available semaphore and signaling its
	// render-finished semaphore and fence.
	SubmitImage(imageIndex, slot int) error

	// PresentImage queues the image for presentation after the slot's
	// render-finished semaphore. outdated reports a stale surface; the
	// image was still consumed.
	PresentImage(imageIndex, slot int) (outdated bool, err error)

	// RebuildSurface waits the device idle and recreates everything
	// derived from the surface. Must be safe to call back to back.
	RebuildSurface() error
}

// FrameLoop drives the per-tick ordering: wait, acquire, claim, update,
// submit, present, advance. It owns the frame counter and the pending
// rebuild flag; staleness during acquire rebuilds immediately and skips
// the frame without advancing the counter, staleness during present
// defers the rebuild to the top of the next tick because the image was
// already consumed.
type FrameLoop struct {
	ctx            FrameContext
	frame          int
	rebuildPending bool
}

// NewFrameLoop wraps a frame context.
func NewFrameLoop(ctx FrameContext) *FrameLoop {
	return &FrameLoop{ctx: ctx}
}

// Frame returns the current slot index, in [0, MaxFramesInFlight).
func (l *FrameLoop) Frame() int { return l.frame }

// ScheduleRebuild requests a surface rebuild at the top of the next
// tick. Used for window resize notifications, which invalidate the
// swapchain without any acquire or present reporting it.
func (l *FrameLoop) ScheduleRebuild() { l.rebuildPending = true }

// Tick renders one frame. A tick that ends in a surface rebuild is not
// an error; the caller just ticks again.
func (l *FrameLoop) Tick() error {
	if l.rebuildPending {
		if err := l.ctx.RebuildSurface(); err != nil {
			// Still pending: the next tick retries instead of running
			// against the stale chain.
			return fmt.Errorf("rebuilding surface: %w", err)
		}
		l.rebuildPending = false
	}

	if err := l.ctx.WaitFrame(l.frame); err != nil {
		return err
	}

	imageIndex, outdated, err := l.ctx.AcquireImage(l.frame)
	if err != nil {
		return err
	}
	if outdated {
		// No image was acquired, nothing will signal this slot's
		// semaphores or fence. Rebuild and retry the same slot.
		if err := l.ctx.RebuildSurface(); err != nil {
			return fmt.Errorf("rebuilding surface: %w", err)
		}
		return nil
	}

	// Committed to submitting from here on.
	if err := l.ctx.ClaimFrame(l.frame); err != nil {
		return err
	}
	if err := l.ctx.UpdateImage(imageIndex); err != nil {
		return err
	}
	if err := l.ctx.SubmitImage(imageIndex, l.frame); err != nil {
		return err
	}

	outdated, err = l.ctx.PresentImage(imageIndex, l.frame)
	if err != nil {
		return err
	}
	if outdated {
		l.rebuildPending = true
	}

	l.frame = (l.frame + 1) % MaxFramesInFlight
	return nil
}
