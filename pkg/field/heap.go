package field

import (
	"encoding/binary"

	"github.com/ajitpratap0/strata/pkg/pool"
)

// heap owns the out-of-line payloads of a field's values. Variable-size
// data such as string bytes and vector items cannot live inside the fixed
// size value buffer, so the buffer stores an 8-byte handle and the bytes
// live here. Handle zero is the null handle.
type heap struct {
	next   uint64
	blocks map[uint64][]byte
}

func newHeap() *heap {
	return &heap{next: 1, blocks: make(map[uint64][]byte)}
}

func (h *heap) alloc(n int) (uint64, []byte) {
	handle := h.next
	h.next++
	block := pool.Bytes.Get(n)
	h.blocks[handle] = block
	return handle, block
}

func (h *heap) get(handle uint64) []byte {
	if handle == 0 {
		return nil
	}
	return h.blocks[handle]
}

// set replaces the block behind an existing handle, used when a payload
// grows past its capacity.
func (h *heap) set(handle uint64, block []byte) {
	h.blocks[handle] = block
}

func (h *heap) free(handle uint64) {
	if handle == 0 {
		return
	}
	if block, ok := h.blocks[handle]; ok {
		pool.Bytes.Put(block)
		delete(h.blocks, handle)
	}
}

func getHandle(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

func putHandle(buf []byte, handle uint64) {
	binary.LittleEndian.PutUint64(buf, handle)
}
