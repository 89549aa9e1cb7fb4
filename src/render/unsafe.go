package render

import (
	"unsafe"
)

// sliceUint32 reinterprets SPIR-V bytes as the uint32 words the API
// expects. The caller has already verified 4-byte alignment.
func sliceUint32(data []byte) []uint32 {
	const wordSize = 4
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/wordSize)
}

// structBytes exposes the raw memory of a struct for memcopy into
// GPU-visible mappings. The struct must contain no Go pointers.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// sliceBytes exposes the raw memory of a slice of plain structs.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), uintptr(len(s))*unsafe.Sizeof(zero))
}
