package audio

// sampleAt decodes the signed little-endian sample starting at b[off].
func sampleAt(b []byte, off, width int) int64 {
	switch width {
	case 2:
		return int64(int16(uint16(b[off]) | uint16(b[off+1])<<8))
	case 3:
		v := int32(uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16)
		// sign-extend from 24 bits
		return int64(v<<8) >> 8
	case 4:
		return int64(int32(uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24))
	default:
		return 0
	}
}

// Peak returns the largest absolute sample value in block. Trailing bytes
// that do not form a whole sample are ignored.
func (f Format) Peak(block []byte) int64 {
	width := f.SampleWidth()
	if width == 0 {
		return 0
	}
	var peak int64
	for off := 0; off+width <= len(block); off += width {
		v := sampleAt(block, off, width)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Decode appends the samples of block to dst and returns the extended slice.
func (f Format) Decode(block []byte, dst []int) []int {
	width := f.SampleWidth()
	if width == 0 {
		return dst
	}
	for off := 0; off+width <= len(block); off += width {
		dst = append(dst, int(sampleAt(block, off, width)))
	}
	return dst
}

// Encode appends samples to dst as signed little-endian PCM.
func (f Format) Encode(samples []int, dst []byte) []byte {
	width := f.SampleWidth()
	for _, s := range samples {
		v := uint32(int32(s))
		for i := 0; i < width; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
	}
	return dst
}
