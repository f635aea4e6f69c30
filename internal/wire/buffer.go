package wire

import "sync"

// readBufferSize matches the 64KB socket buffer configured on the
// receiving side (see udp.go); large enough for any single frame this
// package's codec produces.
const readBufferSize = 65536

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, readBufferSize)
		return &b
	},
}

// GetBuffer borrows a scratch buffer from the pool. Callers must return
// it with PutBuffer once the bytes have been copied out.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer returns a buffer obtained from GetBuffer.
func PutBuffer(b *[]byte) {
	bufferPool.Put(b)
}
