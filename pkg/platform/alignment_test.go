package platform

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAlignedBufferIsAligned(t *testing.T) {
	assert := require.New(t)

	for _, align := range []int{512, 4096} {
		buf := AlignedBuffer(8192, align)
		assert.Len(buf, 8192)
		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(uintptr(0), addr%uintptr(align))
	}
}

func TestAlignedBufferNoAlignmentRequested(t *testing.T) {
	assert := require.New(t)

	buf := AlignedBuffer(1024, 0)
	assert.Len(buf, 1024)
}
