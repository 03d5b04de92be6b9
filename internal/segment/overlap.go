package segment

import (
	"time"

	"github.com/maauso/wcfm-archiver/internal/audio"
)

// OverlapBuffer holds the padding audio captured on both sides of one
// boundary, to be written at the head of the next segment. It is replaced wholesale each
// padding phase and never trimmed.
type OverlapBuffer struct {
	blocks [][]byte
	size   int
}

// NewOverlapBuffer returns an empty buffer.
func NewOverlapBuffer() *OverlapBuffer {
	return &OverlapBuffer{}
}

// Append stores a copy of block.
func (b *OverlapBuffer) Append(block []byte) {
	cp := make([]byte, len(block))
	copy(cp, block)
	b.blocks = append(b.blocks, cp)
	b.size += len(cp)
}

// Blocks returns the stored blocks oldest first.
func (b *OverlapBuffer) Blocks() [][]byte {
	if b == nil {
		return nil
	}
	return b.blocks
}

// Len returns the number of stored blocks.
func (b *OverlapBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.blocks)
}

// Size returns the number of stored PCM bytes.
func (b *OverlapBuffer) Size() int {
	if b == nil {
		return 0
	}
	return b.size
}

// Bytes returns the stored audio as one contiguous slice.
func (b *OverlapBuffer) Bytes() []byte {
	out := make([]byte, 0, b.Size())
	for _, blk := range b.Blocks() {
		out = append(out, blk...)
	}
	return out
}

// Duration returns how much audio the buffer holds in format f.
func (b *OverlapBuffer) Duration(f audio.Format) time.Duration {
	return f.Duration(b.Size())
}
