package render

import (
	"fmt"
	"math"

	"github.com/vulkan-go/vulkan"
)

// MaxFramesInFlight bounds how many frames the CPU may record ahead of
// the GPU. Slots are indexed by frame counter modulo this constant.
const MaxFramesInFlight = 2

// FrameSlot is the synchronization state of one in-flight frame:
// ImageAvailable gates the color-output stage on acquire, RenderFinished
// gates present on submission, InFlight is the CPU-waitable completion
// fence that makes slot reuse safe.
type FrameSlot struct {
	ImageAvailable vulkan.Semaphore
	RenderFinished vulkan.Semaphore
	InFlight       vulkan.Fence
}

// FrameSync is the fixed ring of frame slots. It is created once at
// startup and destroyed once at shutdown; unlike the target resources it
// survives swapchain rebuilds untouched.
type FrameSync struct {
	slots [MaxFramesInFlight]FrameSlot
}

// NewFrameSync creates the semaphore pairs and fences. Fences start
// signaled so the first wait on each slot passes immediately.
func NewFrameSync(device vulkan.Device) (*FrameSync, error) {
	semInfo := vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}
	fenceInfo := vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
		Flags: vulkan.FenceCreateFlags(vulkan.FenceCreateSignaledBit),
	}

	fs := &FrameSync{}
	for i := 0; i < MaxFramesInFlight; i++ {
		slot := &fs.slots[i]

		res := vulkan.CreateSemaphore(device, &semInfo, nil, &slot.ImageAvailable)
		if err := NewError(res); err != nil {
			fs.Destroy(device)
			return nil, fmt.Errorf("creating image-available semaphore %d: %w", i, err)
		}
		res = vulkan.CreateSemaphore(device, &semInfo, nil, &slot.RenderFinished)
		if err := NewError(res); err != nil {
			fs.Destroy(device)
			return nil, fmt.Errorf("creating render-finished semaphore %d: %w", i, err)
		}
		res = vulkan.CreateFence(device, &fenceInfo, nil, &slot.InFlight)
		if err := NewError(res); err != nil {
			fs.Destroy(device)
			return nil, fmt.Errorf("creating in-flight fence %d: %w", i, err)
		}
	}
	return fs, nil
}

// Slot returns the synchronization primitives for a slot index. An index
// outside [0, MaxFramesInFlight) is a bug in the frame loop, not a
// runtime condition, and panics.
func (fs *FrameSync) Slot(slot int) *FrameSlot {
	if slot < 0 || slot >= MaxFramesInFlight {
		panic(fmt.Sprintf("frame slot %d out of range [0, %d)", slot, MaxFramesInFlight))
	}
	return &fs.slots[slot]
}

// Wait blocks until the slot's previous submission has fully completed on
// the GPU. This is the only guarantee that the slot's command buffer and
// everything it referenced are free for reuse.
func (fs *FrameSync) Wait(device vulkan.Device, slot int) error {
	fences := []vulkan.Fence{fs.Slot(slot).InFlight}
	res := vulkan.WaitForFences(device, 1, fences, vulkan.True, math.MaxUint64)
	if err := NewError(res); err != nil {
		return fmt.Errorf("waiting for frame fence %d: %w", slot, err)
	}
	return nil
}

// Reset unsignals the slot's fence. Called only once work is definitely
// about to be submitted against it; resetting before a frame that ends up
// skipped would deadlock the next wait.
func (fs *FrameSync) Reset(device vulkan.Device, slot int) error {
	fences := []vulkan.Fence{fs.Slot(slot).InFlight}
	if err := NewError(vulkan.ResetFences(device, 1, fences)); err != nil {
		return fmt.Errorf("resetting frame fence %d: %w", slot, err)
	}
	return nil
}

// Destroy releases all slots. Tolerates partially constructed state so it
// can double as the error-path cleanup of NewFrameSync.
func (fs *FrameSync) Destroy(device vulkan.Device) {
	for i := range fs.slots {
		slot := &fs.slots[i]
		if slot.ImageAvailable != vulkan.NullSemaphore {
			vulkan.DestroySemaphore(device, slot.ImageAvailable, nil)
			slot.ImageAvailable = vulkan.NullSemaphore
		}
		if slot.RenderFinished != vulkan.NullSemaphore {
			vulkan.DestroySemaphore(device, slot.RenderFinished, nil)
			slot.RenderFinished = vulkan.NullSemaphore
		}
		if slot.InFlight != vulkan.NullFence {
			vulkan.DestroyFence(device, slot.InFlight, nil)
			slot.InFlight = vulkan.NullFence
		}
	}
}
