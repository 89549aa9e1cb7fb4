package scene

import "github.com/xlab/linmath"

// Entity places one mesh in the world: a position and a rotation around
// the vertical axis. The transform is baked into the recorded draw
// commands, so entities are static between surface rebuilds.
type Entity struct {
	Position linmath.Vec3
	Yaw      float32 // radians around +Z
	Scale    float32 // uniform; zero means 1
}

// ModelMatrix composes scale, yaw and translation into the matrix
// pushed per draw.
func (e *Entity) ModelMatrix() linmath.Mat4x4 {
	scale := e.Scale
	if scale == 0 {
		scale = 1
	}

	var m linmath.Mat4x4
	m.Identity()
	m.RotateZ(&m, e.Yaw)

	// Uniform scale of the basis columns, then the translation column.
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col][row] *= scale
		}
	}
	m[3][0] = e.Position[0]
	m[3][1] = e.Position[1]
	m[3][2] = e.Position[2]

	return m
}
