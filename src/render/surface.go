package render

// SurfaceProvider is the window collaborator seen from the renderer: it
// supplies the current drawable extent in pixels. The extent is consulted
// only when the surface capabilities leave the swapchain extent up to us;
// resize events themselves arrive through stale acquire/present results
// and FrameLoop.ScheduleRebuild.
type SurfaceProvider interface {
	DrawableExtent() (width, height uint32)
}
