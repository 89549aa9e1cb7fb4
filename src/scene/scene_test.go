package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"
)

func TestEntityModelMatrix(t *testing.T) {
	t.Run("defaults to identity placement", func(t *testing.T) {
		e := Entity{}
		m := e.ModelMatrix()

		var identity linmath.Mat4x4
		identity.Identity()
		require.Equal(t, identity, m)
	})

	t.Run("translation lands in the last column", func(t *testing.T) {
		e := Entity{Position: linmath.Vec3{1, 2, 3}}
		m := e.ModelMatrix()
		require.Equal(t, float32(1), m[3][0])
		require.Equal(t, float32(2), m[3][1])
		require.Equal(t, float32(3), m[3][2])
		require.Equal(t, float32(1), m[3][3])
	})

	t.Run("uniform scale touches the basis only", func(t *testing.T) {
		e := Entity{Scale: 2, Position: linmath.Vec3{5, 0, 0}}
		m := e.ModelMatrix()
		require.Equal(t, float32(2), m[0][0])
		require.Equal(t, float32(2), m[1][1])
		require.Equal(t, float32(2), m[2][2])
		require.Equal(t, float32(5), m[3][0])
	})

	t.Run("yaw rotates around the vertical axis", func(t *testing.T) {
		e := Entity{Yaw: math.Pi / 2}
		m := e.ModelMatrix()
		// +X maps to +Y under a quarter turn.
		require.InDelta(t, 0, m[0][0], 1e-5)
		require.InDelta(t, 1, m[0][1], 1e-5)
		// The vertical axis is untouched.
		require.InDelta(t, 1, m[2][2], 1e-5)
	})
}

func TestCameraFrameUniforms(t *testing.T) {
	cam := NewCamera()

	data := cam.FrameUniforms(1280, 720)

	require.Equal(t, float32(1), data.View[3][3])
	require.Less(t, data.Proj[1][1], float32(0),
		"the projection flips Y for the surface's clip space")

	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			require.False(t, math.IsNaN(float64(data.Proj[col][row])))
			require.False(t, math.IsNaN(float64(data.View[col][row])))
		}
	}
}

func TestCameraDegenerateSize(t *testing.T) {
	cam := NewCamera()
	data := cam.FrameUniforms(0, 0)

	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			require.False(t, math.IsNaN(float64(data.Proj[col][row])),
				"a zero-sized target must not poison the projection")
			require.False(t, math.IsInf(float64(data.Proj[col][row]), 0))
		}
	}
}

func TestCameraOrbit(t *testing.T) {
	cam := NewCamera()
	cam.OrbitSpeed = 0

	a := cam.FrameUniforms(100, 100)
	b := cam.FrameUniforms(100, 100)
	require.Equal(t, a.View, b.View, "a still camera produces a stable view")
}
