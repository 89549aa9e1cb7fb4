package asset

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/vulkan-go/vulkan"
)

func TestVertexLayout(t *testing.T) {
	binding := VertexBinding()
	require.Equal(t, uint32(0), binding.Binding)
	require.Equal(t, uint32(unsafe.Sizeof(Vertex{})), binding.Stride)
	require.Equal(t, vulkan.VertexInputRateVertex, binding.InputRate)

	attrs := VertexAttributes()
	require.Len(t, attrs, 3)
	require.Equal(t, vulkan.FormatR32g32b32Sfloat, attrs[0].Format)
	require.Equal(t, vulkan.FormatR32g32b32Sfloat, attrs[1].Format)
	require.Equal(t, vulkan.FormatR32g32Sfloat, attrs[2].Format)

	// Attributes track the struct fields: locations are dense and the
	// offsets climb through the stride.
	var prevOffset uint32
	for i, attr := range attrs {
		require.Equal(t, uint32(i), attr.Location)
		if i > 0 {
			require.Greater(t, attr.Offset, prevOffset)
		}
		require.Less(t, attr.Offset, binding.Stride)
		prevOffset = attr.Offset
	}
}

func TestCube(t *testing.T) {
	cube := Cube()

	require.Len(t, cube.Vertices, 24, "four vertices per face")
	require.Len(t, cube.Indices, 36, "two triangles per face")
	require.Equal(t, uint32(36), cube.IndexCount())

	for i, idx := range cube.Indices {
		require.Less(t, int(idx), len(cube.Vertices), "index %d out of range", i)
	}

	for i, v := range cube.Vertices {
		for axis := 0; axis < 3; axis++ {
			require.InDelta(t, 0, v.Pos[axis], 0.5, "vertex %d outside the unit cube", i)
		}
		require.GreaterOrEqual(t, v.TexCoord[0], float32(0))
		require.LessOrEqual(t, v.TexCoord[0], float32(1))
		require.GreaterOrEqual(t, v.TexCoord[1], float32(0))
		require.LessOrEqual(t, v.TexCoord[1], float32(1))
	}
}

func TestMeshBytes(t *testing.T) {
	cube := Cube()
	require.Len(t, cube.VertexBytes(), len(cube.Vertices)*int(unsafe.Sizeof(Vertex{})))
	require.Len(t, cube.IndexBytes(), len(cube.Indices)*4)

	empty := &Mesh{}
	require.Nil(t, empty.VertexBytes())
	require.Nil(t, empty.IndexBytes())
}
