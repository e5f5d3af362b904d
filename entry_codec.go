// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"crypto/sha1" //nolint:gosec // pak trailer/index format requires SHA-1.
	"encoding/binary"
	"fmt"
	"io"
)

// methodTable is the archive-wide {None} + up to 5 named compression
// methods an entry's flags-word method index resolves against.
type methodTable [methodTableSlots]Method

// indexOf returns method's 0-based index (0 means None), adding it to the
// first empty slot when absent. It fails once all 5 slots are taken.
func (t *methodTable) indexOf(m Method) (uint8, error) {
	if m == MethodNone {
		return 0, nil
	}
	for i, name := range t {
		if name == m {
			return uint8(i + 1), nil
		}
	}
	for i, name := range t {
		if name == "" {
			t[i] = m
			return uint8(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: no free compression-method table slot for %q", ErrSerializer, m)
}

// methodAt resolves a flags-word method index back into a Method.
func (t methodTable) methodAt(index uint8) (Method, error) {
	if index == 0 {
		return MethodNone, nil
	}
	if int(index) > len(t) {
		return "", fmt.Errorf("%w: method index %d out of range", ErrSerializer, index)
	}
	name := t[index-1]
	if name == "" {
		return "", fmt.Errorf("%w: method index %d has no table entry", ErrSerializer, index)
	}
	return name, nil
}

// serializedHeaderSize is the size of the in-file header that prefixes an
// entry's payload bytes. The block-count field and block table are only
// present when blockCount > 0, matching encodeEntryHeader's own guard.
func serializedHeaderSize(blockCount int) int64 {
	const base = 53
	if blockCount <= 0 {
		return base
	}
	return base + 16*int64(blockCount) + 4
}

// align rounds n up to the next multiple of to; to<=1 is a no-op.
func align(n, to uint64) uint64 {
	if to <= 1 {
		return n
	}
	return ((n + to - 1) / to) * to
}

// decodeEntryMeta reads one compact entry metadata record from the
// encoded-entries blob.
func decodeEntryMeta(r io.Reader, version Version, methods methodTable) (*Entry, error) {
	var flagsBuf [4]byte
	if _, err := io.ReadFull(r, flagsBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: read entry flags: %v", ErrTruncated, err)
	}
	f := decodeFlagsWord(binary.LittleEndian.Uint32(flagsBuf[:]))

	method, err := methods.methodAt(f.methodIndex)
	if err != nil {
		return nil, err
	}

	var blockSize uint32
	if f.explicitBlockSize {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: read block size: %v", ErrTruncated, err)
		}
		blockSize = binary.LittleEndian.Uint32(buf[:])
	} else {
		blockSize = blockSizeFromCode(f.blockSizeCode)
	}

	offset, err := readOffsetField(r, f.offsetIsU32)
	if err != nil {
		return nil, err
	}

	if !f.uncompressedSizeIsU32 {
		return nil, fmt.Errorf("%w: uncompressed-size-is-u32 bit must be set", ErrSerializer)
	}
	uncompressedSize, err := readU32(r)
	if err != nil {
		return nil, err
	}

	if f.encrypted {
		return nil, ErrEncrypted
	}

	e := &Entry{
		Method:           method,
		Offset:           offset,
		UncompressedSize: uncompressedSize,
		BlockSize:        blockSize,
	}

	if method == MethodNone {
		e.CompressedSize = uncompressedSize
		return e, nil
	}

	if !f.compressedSizeIsU32 {
		return nil, fmt.Errorf("%w: compressed-size-is-u32 bit must be set", ErrSerializer)
	}
	compressedSize, err := readU32(r)
	if err != nil {
		return nil, err
	}
	e.CompressedSize = compressedSize

	if f.blockCount == 0 {
		return e, nil
	}

	if uint64(blockSize) > uint64(uncompressedSize) {
		blockSize = uncompressedSize
	}
	e.BlockSize = blockSize

	base := uint64(0)
	if version < VersionRelativeChunkOffsets {
		base = offset
	}
	headerSize := uint64(serializedHeaderSize(int(f.blockCount)))

	blocks := make([]Block, f.blockCount)
	if f.blockCount == 1 {
		start := base + headerSize
		blocks[0] = Block{Start: start, End: start + uint64(compressedSize)}
	} else {
		running := base + headerSize
		for i := range blocks {
			delta, err := readI32(r)
			if err != nil {
				return nil, fmt.Errorf("%w: read block %d end delta: %v", ErrTruncated, i, err)
			}
			start := running
			end := start + uint64(delta)
			blocks[i] = Block{Start: start, End: end}
			running += align(end-start, 1)
		}
	}
	e.Blocks = blocks

	return e, nil
}

// encodeEntryMeta writes e's compact metadata record to the encoded-entries
// blob, using methodIndex as e.Method's already-resolved table index.
func encodeEntryMeta(w io.Writer, e *Entry, version Version, methodIndex uint8) error {
	f := entryFlags{
		offsetIsU32:           e.Offset < 1<<32,
		uncompressedSizeIsU32: true,
		compressedSizeIsU32:   true,
		methodIndex:           methodIndex,
	}

	compressed := e.Method != MethodNone
	hasBlocks := len(e.Blocks) > 0
	if hasBlocks {
		f.explicitBlockSize = true
		f.blockCount = uint16(len(e.Blocks))
	}

	var flagsBuf [4]byte
	binary.LittleEndian.PutUint32(flagsBuf[:], encodeFlagsWord(f))
	if _, err := w.Write(flagsBuf[:]); err != nil {
		return err
	}

	if hasBlocks {
		if err := writeU32(w, e.BlockSize); err != nil {
			return err
		}
	}

	if err := writeOffsetField(w, e.Offset, f.offsetIsU32); err != nil {
		return err
	}
	if err := writeU32(w, e.UncompressedSize); err != nil {
		return err
	}

	if !compressed {
		return nil
	}

	if err := writeU32(w, e.CompressedSize); err != nil {
		return err
	}

	if len(e.Blocks) < 2 {
		return nil
	}

	base := uint64(0)
	if version < VersionRelativeChunkOffsets {
		base = e.Offset
	}
	running := base + uint64(serializedHeaderSize(len(e.Blocks)))
	for i, b := range e.Blocks {
		delta := int32(b.End - running)
		if err := writeI32(w, delta); err != nil {
			return fmt.Errorf("write block %d end delta: %w", i, err)
		}
		running += align(b.End-b.Start, 1)
	}

	return nil
}

// entryHeader is the in-file header written immediately before an entry's
// stored payload bytes.
type entryHeader struct {
	CompressedSize   uint64
	UncompressedSize uint64
	MethodIndex      int32
	SHA1             [shaSize]byte
	Blocks           []Block
	BlockSize        uint32
}

// encodeEntryHeader writes the in-file per-entry header.
func encodeEntryHeader(w io.Writer, h entryHeader) error {
	if err := writeI64(w, 0); err != nil { // offset field is reserved, always 0
		return err
	}
	if err := writeI64(w, int64(h.CompressedSize)); err != nil {
		return err
	}
	if err := writeI64(w, int64(h.UncompressedSize)); err != nil {
		return err
	}
	if err := writeI32(w, h.MethodIndex); err != nil {
		return err
	}
	if _, err := w.Write(h.SHA1[:]); err != nil {
		return err
	}

	if len(h.Blocks) > 0 {
		if err := writeI32(w, int32(len(h.Blocks))); err != nil {
			return err
		}
		for _, b := range h.Blocks {
			if err := writeI64(w, int64(b.Start)); err != nil {
				return err
			}
			if err := writeI64(w, int64(b.End)); err != nil {
				return err
			}
		}
	}

	if _, err := w.Write([]byte{0}); err != nil { // flags byte, always 0
		return err
	}

	return writeU32(w, h.BlockSize)
}

// decodeEntryHeader reads the in-file per-entry header. hasBlocks tells the
// decoder whether a block table follows the SHA-1 digest, since the header
// alone does not otherwise distinguish "zero blocks" from "no block table".
func decodeEntryHeader(r io.Reader, hasBlocks bool) (entryHeader, error) {
	var h entryHeader

	if _, err := readI64(r); err != nil { // reserved offset field
		return h, err
	}
	compressedSize, err := readI64(r)
	if err != nil {
		return h, err
	}
	h.CompressedSize = uint64(compressedSize)

	uncompressedSize, err := readI64(r)
	if err != nil {
		return h, err
	}
	h.UncompressedSize = uint64(uncompressedSize)

	h.MethodIndex, err = readI32(r)
	if err != nil {
		return h, err
	}

	if _, err := io.ReadFull(r, h.SHA1[:]); err != nil {
		return h, fmt.Errorf("%w: read entry header sha1: %v", ErrTruncated, err)
	}

	if hasBlocks {
		count, err := readI32(r)
		if err != nil {
			return h, err
		}
		h.Blocks = make([]Block, count)
		for i := range h.Blocks {
			start, err := readI64(r)
			if err != nil {
				return h, err
			}
			end, err := readI64(r)
			if err != nil {
				return h, err
			}
			h.Blocks[i] = Block{Start: uint64(start), End: uint64(end)}
		}
	}

	var flagsByte [1]byte
	if _, err := io.ReadFull(r, flagsByte[:]); err != nil {
		return h, fmt.Errorf("%w: read entry header flags byte: %v", ErrTruncated, err)
	}

	h.BlockSize, err = readU32(r)
	return h, err
}

// loadEntryData resolves e's payload bytes, reading and decompressing from
// e.source on first call and caching the result.
func loadEntryData(e *Entry, oodle OodleCodec) ([]byte, error) {
	if e.loaded {
		return e.data, nil
	}
	if e.source == nil {
		return nil, ErrEntryHasNoData
	}

	out := make([]byte, e.UncompressedSize)

	if e.Method == MethodNone {
		headerSize := serializedHeaderSize(0)
		sr := io.NewSectionReader(e.source, int64(e.Offset)+headerSize, int64(e.UncompressedSize))
		if _, err := readFull(sr, out); err != nil {
			return nil, fmt.Errorf("%w: read entry payload: %v", ErrSerializer, err)
		}
		e.data, e.loaded = out, true
		return out, nil
	}

	pos := 0
	for _, b := range e.Blocks {
		remaining := len(out) - pos
		chunk := int(e.BlockSize)
		if chunk == 0 || chunk > remaining {
			chunk = remaining
		}
		// Block ranges are measured from the entry's Offset (see Block).
		sr := io.NewSectionReader(e.source, int64(e.Offset)+int64(b.Start), int64(b.Len()))
		n, err := decompressBlock(e.Method, sr, out[pos:pos+chunk], oodle)
		if err != nil {
			return nil, err
		}
		pos += n
	}

	e.data, e.loaded = out, true
	return out, nil
}

// saveEntryData compresses (if needed) and writes e's payload to w at
// archive offset, populating e's Offset/CompressedSize/Blocks/SHA1 fields.
// It returns the total number of bytes written (header + stored payload).
func saveEntryData(w io.Writer, e *Entry, offset uint64, version Version, blockSize uint32, methodIndex uint8, oodle OodleCodec) (int64, error) {
	if !e.loaded {
		return 0, ErrMissingPayload
	}

	e.Offset = offset
	e.UncompressedSize = uint32(len(e.data)) //nolint:gosec // callers enforce the 32-bit ceiling before Save

	compressed := e.Method != MethodNone
	if !compressed {
		e.CompressedSize = e.UncompressedSize
		e.Blocks = nil
		digest := sha1.Sum(e.data) //nolint:gosec // pak format requires SHA-1.
		e.SHA1 = digest

		if err := encodeEntryHeader(w, entryHeader{
			CompressedSize:   uint64(e.CompressedSize),
			UncompressedSize: uint64(e.UncompressedSize),
			MethodIndex:      int32(methodIndex),
			SHA1:             e.SHA1,
			BlockSize:        e.BlockSize,
		}); err != nil {
			return 0, err
		}
		n, err := w.Write(e.data)
		return serializedHeaderSize(0) + int64(n), err
	}

	n := blockCount(uint64(e.UncompressedSize), blockSize)
	e.BlockSize = blockSize
	base := uint64(0)
	if version < VersionRelativeChunkOffsets {
		base = offset
	}
	headerSize := uint64(serializedHeaderSize(n))
	running := base + headerSize

	blocks := make([]Block, n)
	var stored bytesWriter
	for i := 0; i < n; i++ {
		start := i * int(blockSize)
		end := start + int(blockSize)
		if end > len(e.data) {
			end = len(e.data)
		}

		written, err := compressBlock(e.Method, e.data, start, end-start, &stored, oodle)
		if err != nil {
			return 0, err
		}

		blockStart := running
		blockEnd := blockStart + uint64(written)
		blocks[i] = Block{Start: blockStart, End: blockEnd}
		running = blockEnd
	}

	e.Blocks = blocks
	e.CompressedSize = uint32(len(stored.buf)) //nolint:gosec // bounded by maxEntrySize checks upstream
	digest := sha1.Sum(stored.buf)             //nolint:gosec // pak format requires SHA-1.
	e.SHA1 = digest

	if err := encodeEntryHeader(w, entryHeader{
		CompressedSize:   uint64(e.CompressedSize),
		UncompressedSize: uint64(e.UncompressedSize),
		MethodIndex:      int32(methodIndex),
		SHA1:             e.SHA1,
		Blocks:           e.Blocks,
		BlockSize:        e.BlockSize,
	}); err != nil {
		return 0, err
	}
	if _, err := w.Write(stored.buf); err != nil {
		return 0, err
	}

	return int64(headerSize) + int64(len(stored.buf)), nil
}

// bytesWriter is a minimal growable io.Writer used to accumulate compressed
// block bytes before they are hashed and written to the destination.
type bytesWriter struct{ buf []byte }

func (b *bytesWriter) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func readOffsetField(r io.Reader, isU32 bool) (uint64, error) {
	if isU32 {
		v, err := readU32(r)
		return uint64(v), err
	}
	v, err := readI64(r)
	return uint64(v), err
}

func writeOffsetField(w io.Writer, offset uint64, isU32 bool) error {
	if isU32 {
		return writeU32(w, uint32(offset))
	}
	return writeI64(w, int64(offset))
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readI32(r io.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func writeI32(w io.Writer, v int32) error {
	return writeU32(w, uint32(v))
}

func readI16(r io.Reader) (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

func writeI16(w io.Writer, v int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, err := w.Write(buf[:])
	return err
}

func readI64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func writeI64(w io.Writer, v int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, err := w.Write(buf[:])
	return err
}
