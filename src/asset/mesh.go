package asset

import (
	"unsafe"

	"github.com/vulkan-go/vulkan"
	"github.com/xlab/linmath"
)

// Vertex is the interleaved per-vertex layout shared by every mesh:
// position, vertex color and texture coordinate. The attribute
// descriptions below must track this struct field for field.
type Vertex struct {
	Pos      linmath.Vec3
	Color    linmath.Vec3
	TexCoord linmath.Vec2
}

// VertexBinding describes the single interleaved vertex buffer binding.
func VertexBinding() vulkan.VertexInputBindingDescription {
	return vulkan.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vulkan.VertexInputRateVertex,
	}
}

// VertexAttributes describes the shader locations of the vertex fields.
func VertexAttributes() []vulkan.VertexInputAttributeDescription {
	return []vulkan.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vulkan.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Pos)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vulkan.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Color)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vulkan.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}

// Mesh is indexed triangle geometry ready for upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBytes returns the vertex slice as raw bytes for upload.
func (m *Mesh) VertexBytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	size := len(m.Vertices) * int(unsafe.Sizeof(Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), size)
}

// IndexBytes returns the index slice as raw bytes for upload.
func (m *Mesh) IndexBytes() []byte {
	if len(m.Indices) == 0 {
		return nil
	}
	size := len(m.Indices) * 4
	return unsafe.Slice((*byte)(unsafe.Pointer(&m.Indices[0])), size)
}

// IndexCount returns the number of indices as the draw call wants it.
func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// Cube returns a unit cube centered on the origin, 24 vertices so each
// face gets its own texture coordinates, wound counter-clockwise when
// seen from outside.
func Cube() *Mesh {
	faces := []struct {
		normalAxis int
		sign       float32
		color      linmath.Vec3
	}{
		{0, +1, linmath.Vec3{1, 0, 0}},
		{0, -1, linmath.Vec3{0, 1, 1}},
		{1, +1, linmath.Vec3{0, 1, 0}},
		{1, -1, linmath.Vec3{1, 0, 1}},
		{2, +1, linmath.Vec3{0, 0, 1}},
		{2, -1, linmath.Vec3{1, 1, 0}},
	}

	mesh := &Mesh{}
	for _, face := range faces {
		u := (face.normalAxis + 1) % 3
		v := (face.normalAxis + 2) % 3

		base := uint32(len(mesh.Vertices))
		corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
		for i, c := range corners {
			var pos linmath.Vec3
			pos[face.normalAxis] = 0.5 * face.sign
			pos[u] = 0.5 * c[0] * face.sign
			pos[v] = 0.5 * c[1]

			mesh.Vertices = append(mesh.Vertices, Vertex{
				Pos:      pos,
				Color:    face.color,
				TexCoord: linmath.Vec2{float32(i&1 ^ i>>1), float32(i >> 1)},
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return mesh
}
