package scene

import (
	"math"
	"time"

	"github.com/xlab/linmath"

	"helix/src/render"
)

// Camera is an orbiting view around a fixed center. It implements
// render.UniformSource: each frame it advances along its orbit by wall
// clock time and produces the view and projection for the current
// target size.
type Camera struct {
	Center linmath.Vec3
	Up     linmath.Vec3

	// Radius and Height place the eye on a circle around Center.
	Radius float32
	Height float32

	// OrbitSpeed is radians per second; zero holds the camera still.
	OrbitSpeed float32

	// FovY is the vertical field of view in radians.
	FovY float32
	Near float32
	Far  float32

	start time.Time
}

// NewCamera returns an orbiting camera with sensible defaults for a
// small scene around the origin.
func NewCamera() *Camera {
	return &Camera{
		Center:     linmath.Vec3{0, 0, 0},
		Up:         linmath.Vec3{0, 0, 1},
		Radius:     3,
		Height:     2,
		OrbitSpeed: math.Pi / 8,
		FovY:       math.Pi / 4,
		Near:       0.1,
		Far:        20,
		start:      time.Now(),
	}
}

// FrameUniforms computes the view and projection matrices for a target
// of the given size. The projection flips Y to match the downward
// clip-space convention of the presentation surface. A degenerate
// target size keeps the last valid aspect of 1 rather than dividing by
// zero.
func (c *Camera) FrameUniforms(width, height uint32) render.UniformData {
	angle := float32(time.Since(c.start).Seconds()) * c.OrbitSpeed
	eye := linmath.Vec3{
		c.Center[0] + c.Radius*float32(math.Cos(float64(angle))),
		c.Center[1] + c.Radius*float32(math.Sin(float64(angle))),
		c.Center[2] + c.Height,
	}

	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}

	var data render.UniformData
	data.View.LookAt(&eye, &c.Center, &c.Up)
	data.Proj.Perspective(c.FovY, aspect, c.Near, c.Far)
	data.Proj[1][1] *= -1
	return data
}
