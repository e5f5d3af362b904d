// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// Encoding is a Name's wire string encoding.
type Encoding uint8

// Supported Name wire encodings.
const (
	EncodingASCII Encoding = iota
	EncodingUTF16LE
)

// utf16leCodec is the shared UTF-16LE transcoder for Name's wire encoding.
// Little-endian, no BOM: matches the raw two-byte-per-unit layout the pak
// format writes for non-ASCII strings.
var utf16leCodec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// unrealCRC32Table is the standard IEEE CRC-32 table; Unreal's FCrc string
// hash reuses the same 256-entry table as zlib's CRC-32, applied per
// UTF-16 code unit rather than per byte (see crc32OfUnits below).
var unrealCRC32Table = crc32.IEEETable

// Name is a string value plus its wire encoding, extended with two
// memoized hashes computed over the case-folded UTF-16LE representation of
// the value: a 32-bit Unreal-compatible CRC and a 64-bit FNV-1a seeded by
// the archive's path-hash seed. Two Names compare equal iff their string
// values compare equal.
type Name struct {
	value    string
	encoding Encoding
	crc32    uint32
	fnv64    uint64
	hasValue bool
}

// NewName builds a Name, computing its memoized hashes from value's
// case-folded UTF-16LE form. seed 0 is the convention for Names created
// outside any archive context.
func NewName(value string, encoding Encoding, seed uint64) Name {
	units := caseFoldedUTF16(value)

	return Name{
		value:    value,
		encoding: encoding,
		crc32:    crc32OfUnits(units),
		fnv64:    fnv1a64Seeded(seed, unitsToLEBytes(units)),
		hasValue: true,
	}
}

// String returns the Name's string value.
func (n Name) String() string { return n.value }

// Encoding returns the encoding recorded on the Name; it controls how the
// Name serializes and round-trips through Encode/DecodeName.
func (n Name) Encoding() Encoding { return n.encoding }

// CRC32 returns the memoized Unreal-compatible CRC-32 of the Name's value.
func (n Name) CRC32() uint32 { return n.crc32 }

// FNV64 returns the memoized seeded FNV-1a-64 of the Name's value, used as
// the serialized key in the path-hash sub-index.
func (n Name) FNV64() uint64 { return n.fnv64 }

// Equal reports whether two Names carry the same string value.
func (n Name) Equal(other Name) bool { return n.hasValue == other.hasValue && n.value == other.value }

// IsNull reports whether the Name decoded from (or represents) an FString
// length prefix of zero. The zero Name value is null.
func (n Name) IsNull() bool { return !n.hasValue }

// caseFoldedUTF16 lower-cases value and returns its UTF-16 code units.
// unicode/utf16 gives per-code-unit access, which both hashes need: CRC
// folds each unit into two big-endian-ordered table lookups, while FNV
// consumes the same units as little-endian byte pairs. Neither view is
// naturally exposed by a streaming encoder/decoder, so the case-folded
// hash preimage is built directly from code units rather than routed
// through the x/text transformer used for the wire FString codec.
func caseFoldedUTF16(value string) []uint16 {
	return utf16.Encode([]rune(strings.ToLower(value)))
}

// unitsToLEBytes packs UTF-16 code units into little-endian byte pairs.
func unitsToLEBytes(units []uint16) []byte {
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[i*2:], u)
	}
	return out
}

// crc32OfUnits computes Unreal's string CRC-32: for each UTF-16 code unit,
// two standard CRC-32 table steps are applied for the unit's high byte
// then its low byte, starting from a zero accumulator with no final
// complement.
func crc32OfUnits(units []uint16) uint32 {
	var crc uint32
	for _, u := range units {
		hi := byte(u >> 8)
		lo := byte(u & 0xff)
		crc = unrealCRC32Table[byte(crc)^hi] ^ (crc >> 8)
		crc = unrealCRC32Table[byte(crc)^lo] ^ (crc >> 8)
	}
	return crc
}

// fnv1a64 constants; the multiplicative prime is fixed by the algorithm,
// only the offset basis is replaced by the caller-supplied seed.
const fnv64Prime = 1099511628211

// fnv1a64Seeded runs FNV-1a-64 over data starting from seed instead of the
// canonical offset basis, matching the archive's path-hash seed contract.
func fnv1a64Seeded(seed uint64, data []byte) uint64 {
	hash := seed
	for _, b := range data {
		hash ^= uint64(b)
		hash *= fnv64Prime
	}
	return hash
}

// DecodeName reads one length-prefixed FString and computes its Name
// hashes against seed.
//
// Wire format: an i32 length prefix followed by bytes and a null
// terminator. Positive length is ASCII (length includes the terminator).
// Negative length is UTF-16LE (abs(length)*2 bytes, including the two-byte
// terminator). Length 0 decodes to the null Name. Length 1 decodes to the
// empty string after consuming one padding byte.
func DecodeName(r io.Reader, seed uint64) (Name, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Name{}, fmt.Errorf("%w: read string length: %v", ErrTruncated, err)
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))

	if length == 0 {
		return Name{}, nil
	}

	abs := length
	encoding := EncodingASCII
	if abs < 0 {
		abs = -abs
		encoding = EncodingUTF16LE
	}
	if abs > maxStringLen {
		return Name{}, fmt.Errorf("%w: length %d exceeds %d", ErrStringTooLong, abs, maxStringLen)
	}

	if abs == 1 {
		var pad [1]byte
		if _, err := io.ReadFull(r, pad[:]); err != nil {
			return Name{}, fmt.Errorf("%w: read padding byte: %v", ErrStringLengthInvalid, err)
		}
		return NewName("", encoding, seed), nil
	}

	if encoding == EncodingASCII {
		buf := make([]byte, abs)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Name{}, fmt.Errorf("%w: read ascii string: %v", ErrStringLengthInvalid, err)
		}
		value := string(buf[:len(buf)-1])
		return NewName(value, encoding, seed), nil
	}

	buf := make([]byte, abs*2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Name{}, fmt.Errorf("%w: read utf16 string: %v", ErrStringLengthInvalid, err)
	}
	decoded, err := utf16leCodec.NewDecoder().Bytes(buf[:len(buf)-2])
	if err != nil {
		return Name{}, fmt.Errorf("%w: decode utf16 string: %v", ErrFormat, err)
	}
	return NewName(string(decoded), encoding, seed), nil
}

// EncodeName writes n's string value using n.Encoding, preserving the
// round-trip contract with DecodeName.
func EncodeName(w io.Writer, n Name) error {
	if n.IsNull() {
		var lenBuf [4]byte
		_, err := w.Write(lenBuf[:])
		return err
	}

	if n.value == "" {
		length := int32(1)
		if n.encoding == EncodingUTF16LE {
			length = -1
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(length))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		_, err := w.Write([]byte{0})
		return err
	}

	if n.encoding == EncodingASCII {
		length := int32(len(n.value) + 1)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(length))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := io.WriteString(w, n.value); err != nil {
			return err
		}
		_, err := w.Write([]byte{0})
		return err
	}

	encoded, err := utf16leCodec.NewEncoder().Bytes([]byte(n.value))
	if err != nil {
		return fmt.Errorf("%w: encode utf16 string: %v", ErrFormat, err)
	}
	units := len(encoded)/2 + 1
	length := -int32(units)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(length))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(encoded); err != nil {
		return err
	}
	_, err = w.Write([]byte{0, 0})
	return err
}
