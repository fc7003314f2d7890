package global

import (
	"sync"
)

func InitializeEngine() {
	BufferPool = newSyncPool(PduBufferSize, PduBufferSize)
}

func newSyncPool(mysize, mycap int) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			lst := make([]byte, mysize, mycap)
			return &lst
		},
	}
}
