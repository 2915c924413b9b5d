package sampleformat

import "math"

func decodeCF32(src []byte, sampleOffset, count int, dest []complex64) {
	const sz = 8
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := math.Float32frombits(le32(src[off:]))
		im := math.Float32frombits(le32(src[off+4:]))
		dest[i] = complex(re, im)
	}
}

func decodeCF64(src []byte, sampleOffset, count int, dest []complex64) {
	const sz = 16
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := math.Float64frombits(le64(src[off:]))
		im := math.Float64frombits(le64(src[off+8:]))
		dest[i] = complex(float32(re), float32(im))
	}
}

// decodeComplexInt decodes a pair of N-byte signed little-endian
// integers per sample, each scaled by the given factor (1/2^(N*8-1)).
func decodeComplexInt(src []byte, sampleOffset, count int, dest []complex64, compWidth int, scale float64) {
	sz := compWidth * 2
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := float64(leSignedInt(src[off:], compWidth)) * scale
		im := float64(leSignedInt(src[off+compWidth:], compWidth)) * scale
		dest[i] = complex(float32(re), float32(im))
	}
}

// decodeCU8 decodes unsigned 8-bit pairs with the intentional 127.4
// (not 127.5) DC offset used throughout inspectrum-derived tools.
func decodeCU8(src []byte, sampleOffset, count int, dest []complex64) {
	const sz = 2
	const offset = 127.4
	const scale = 1.0 / 128.0
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := (float64(src[off]) - offset) * scale
		im := (float64(src[off+1]) - offset) * scale
		dest[i] = complex(float32(re), float32(im))
	}
}

func decodeRF32(src []byte, sampleOffset, count int, dest []complex64) {
	const sz = 4
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := math.Float32frombits(le32(src[off:]))
		dest[i] = complex(re, 0)
	}
}

func decodeRF64(src []byte, sampleOffset, count int, dest []complex64) {
	const sz = 8
	base := sampleOffset * sz
	for i := 0; i < count; i++ {
		off := base + i*sz
		re := math.Float64frombits(le64(src[off:]))
		dest[i] = complex(float32(re), 0)
	}
}

func decodeRealInt(src []byte, sampleOffset, count int, dest []complex64, width int, scale float64) {
	base := sampleOffset * width
	for i := 0; i < count; i++ {
		off := base + i*width
		re := float64(leSignedInt(src[off:], width)) * scale
		dest[i] = complex(float32(re), 0)
	}
}

func decodeRU8(src []byte, sampleOffset, count int, dest []complex64) {
	const offset = 127.4
	const scale = 1.0 / 128.0
	base := sampleOffset
	for i := 0; i < count; i++ {
		re := (float64(src[base+i]) - offset) * scale
		dest[i] = complex(float32(re), 0)
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}

// leSignedInt reads a width-byte (1, 2, or 4) little-endian two's
// complement integer.
func leSignedInt(b []byte, width int) int32 {
	switch width {
	case 1:
		return int32(int8(b[0]))
	case 2:
		return int32(int16(uint16(b[0]) | uint16(b[1])<<8))
	case 4:
		return int32(le32(b))
	default:
		panic("sampleformat: unsupported integer width")
	}
}
