// Package sampleformat decodes the raw byte encodings an I/Q recording
// may use into a uniform stream of complex64 samples.
package sampleformat

import (
	"fmt"
	"strings"
)

// Format identifies one on-disk sample encoding. The zero value is not
// a valid format; use Default for "unknown, assume cf32".
type Format string

const (
	CF32 Format = "cf32"
	CF64 Format = "cf64"
	CS32 Format = "cs32"
	CS16 Format = "cs16"
	CS8  Format = "cs8"
	CU8  Format = "cu8"
	RF32 Format = "rf32"
	RF64 Format = "rf64"
	RS16 Format = "rs16"
	RS8  Format = "rs8"
	RU8  Format = "ru8"
)

// Default is used whenever detection fails to identify a format.
const Default = CF32

// SampleSize returns the number of bytes one sample occupies on disk.
func (f Format) SampleSize() int {
	switch f {
	case CF32:
		return 8
	case CF64:
		return 16
	case CS32:
		return 8
	case CS16:
		return 4
	case CS8:
		return 2
	case CU8:
		return 2
	case RF32:
		return 4
	case RF64:
		return 8
	case RS16:
		return 2
	case RS8:
		return 1
	case RU8:
		return 1
	default:
		return CF32.SampleSize()
	}
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	switch f {
	case CF32, CF64, CS32, CS16, CS8, CU8, RF32, RF64, RS16, RS8, RU8:
		return true
	default:
		return false
	}
}

// extTable maps a lowercased filename extension to a sample format,
// the same table inspectrum and friends use.
var extTable = map[string]Format{
	"cfile": CF32, "cf32": CF32, "fc32": CF32, "raw": CF32, "iq": CF32,
	"cf64": CF64, "fc64": CF64,
	"cs32": CS32, "sc32": CS32, "c32": CS32,
	"cs16": CS16, "sc16": CS16, "c16": CS16,
	"cs8": CS8, "sc8": CS8, "c8": CS8,
	"cu8": CU8, "uc8": CU8,
	"sigmf-data": CF32, "sigmf-meta": CF32,
	"f32": RF32, "f64": RF64,
	"s16": RS16, "s8": RS8, "u8": RU8,
}

// DetectFromExtension maps a filename extension (without the leading
// dot, any case) to a sample format. Unknown extensions return Default.
func DetectFromExtension(ext string) Format {
	if f, ok := extTable[strings.ToLower(ext)]; ok {
		return f
	}
	return Default
}

// datatypeTable maps a SigMF core:datatype (with _le/_be stripped) to
// a sample format.
var datatypeTable = map[string]Format{
	"cf32": CF32, "cf64": CF64,
	"ci32": CS32, "ci16": CS16, "ci8": CS8,
	"cu8": CU8,
	"rf32": RF32, "rf64": RF64,
	"ri16": RS16, "ri8": RS8,
	"ru8": RU8,
}

// ErrBigEndian is returned by NormalizeSigMFDatatype when the datatype
// carries an explicit _be suffix. Only little-endian decoding is
// implemented; the condition is surfaced so the caller can reject the
// file instead of silently mis-decoding it.
var ErrBigEndian = fmt.Errorf("big-endian SigMF datatypes are not supported")

// NormalizeSigMFDatatype maps a SigMF core:datatype string (e.g.
// "ci16_le", "cu8") to a Format. It strips a trailing "_le" or "_be"
// endianness suffix and maps SigMF's ciN/riN naming to this package's
// csN/rsN naming. If the suffix is "_be", ErrBigEndian is returned
// alongside the best-effort format (ci8/cu8/ri8/ru8 carry no
// endianness suffix at all and are returned without error).
func NormalizeSigMFDatatype(datatype string) (Format, error) {
	base := datatype
	var bigEndian bool
	switch {
	case len(datatype) > 3 && datatype[len(datatype)-3:] == "_le":
		base = datatype[:len(datatype)-3]
	case len(datatype) > 3 && datatype[len(datatype)-3:] == "_be":
		base = datatype[:len(datatype)-3]
		bigEndian = true
	}

	f, ok := datatypeTable[base]
	if !ok {
		return Default, fmt.Errorf("%w: unrecognized datatype %q", ErrUnknownDatatype, datatype)
	}
	if bigEndian {
		return f, ErrBigEndian
	}
	return f, nil
}

// ErrUnknownDatatype is returned when a SigMF core:datatype has no
// known mapping to a Format.
var ErrUnknownDatatype = fmt.Errorf("unknown SigMF datatype")

// Decode decodes count complex samples starting at sample offset
// sampleOffset (i.e. byte offset sampleOffset*f.SampleSize()) from src
// into dest. The caller guarantees src is large enough and
// len(dest) >= count; Decode performs no bounds checking.
func (f Format) Decode(src []byte, sampleOffset, count int, dest []complex64) {
	switch f {
	case CF32:
		decodeCF32(src, sampleOffset, count, dest)
	case CF64:
		decodeCF64(src, sampleOffset, count, dest)
	case CS32:
		decodeComplexInt(src, sampleOffset, count, dest, 4, 1.0/2147483648.0)
	case CS16:
		decodeComplexInt(src, sampleOffset, count, dest, 2, 1.0/32768.0)
	case CS8:
		decodeComplexInt(src, sampleOffset, count, dest, 1, 1.0/128.0)
	case CU8:
		decodeCU8(src, sampleOffset, count, dest)
	case RF32:
		decodeRF32(src, sampleOffset, count, dest)
	case RF64:
		decodeRF64(src, sampleOffset, count, dest)
	case RS16:
		decodeRealInt(src, sampleOffset, count, dest, 2, 1.0/32768.0)
	case RS8:
		decodeRealInt(src, sampleOffset, count, dest, 1, 1.0/128.0)
	case RU8:
		decodeRU8(src, sampleOffset, count, dest)
	default:
		decodeCF32(src, sampleOffset, count, dest)
	}
}
