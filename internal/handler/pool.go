package handler

import (
	"bytes"
	"sync"
)

const (
	// bufferInitialSize fits typical cycle-summary and queue responses.
	bufferInitialSize = 512
	// bufferMaxPooled caps what goes back into the pool; a large quarantine
	// listing should not pin its buffer for the life of the process.
	bufferMaxPooled = 64 * 1024
)

// bufferPool reduces allocations during JSON encoding of responses.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, bufferInitialSize))
	},
}

// getBuffer retrieves a buffer from the pool
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer resets the buffer and returns it to the pool
func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > bufferMaxPooled {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}
