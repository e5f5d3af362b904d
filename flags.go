// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

// entryFlags is the decoded form of an entry's bit-packed u32 flags word
// (spec §4.3). Keeping the fields named here, rather than manipulating
// bits ad hoc at call sites, is the design note's recommendation for
// testing the layout in isolation.
type entryFlags struct {
	// offsetIsU32 is bit 31: the entry's archive offset fits in u32.
	offsetIsU32 bool
	// uncompressedSizeIsU32 is bit 30, required set.
	uncompressedSizeIsU32 bool
	// compressedSizeIsU32 is bit 29, required set.
	compressedSizeIsU32 bool
	// methodIndex is bits 28-23: index into {None, table[1..=5]}.
	methodIndex uint8
	// encrypted is bit 22, required clear.
	encrypted bool
	// blockCount is bits 21-6.
	blockCount uint16
	// explicitBlockSize marks block-size code 0x3F: the real block size
	// follows as a separate u32 rather than being derived from the code.
	explicitBlockSize bool
	// blockSizeCode is bits 5-0, meaningful only when !explicitBlockSize;
	// the real block size is blockSizeCode << 11. decodeFlagsWord leaves it
	// zero when explicitBlockSize is set.
	blockSizeCode uint8
}

const blockSizeExplicitCode = 0x3F

// encodeFlagsWord packs f into the wire u32 flags representation.
func encodeFlagsWord(f entryFlags) uint32 {
	var v uint32

	if f.offsetIsU32 {
		v |= 1 << 31
	}
	if f.uncompressedSizeIsU32 {
		v |= 1 << 30
	}
	if f.compressedSizeIsU32 {
		v |= 1 << 29
	}
	v |= uint32(f.methodIndex&0x3F) << 23
	if f.encrypted {
		v |= 1 << 22
	}
	v |= uint32(f.blockCount) << 6

	code := f.blockSizeCode
	if f.explicitBlockSize {
		code = blockSizeExplicitCode
	}
	v |= uint32(code & 0x3F)

	return v
}

// decodeFlagsWord unpacks the wire u32 flags representation into f.
func decodeFlagsWord(v uint32) entryFlags {
	code := uint8(v & 0x3F)
	explicit := code == blockSizeExplicitCode
	if explicit {
		code = 0
	}

	return entryFlags{
		offsetIsU32:           v&(1<<31) != 0,
		uncompressedSizeIsU32: v&(1<<30) != 0,
		compressedSizeIsU32:   v&(1<<29) != 0,
		methodIndex:           uint8((v >> 23) & 0x3F),
		encrypted:             v&(1<<22) != 0,
		blockCount:            uint16((v >> 6) & 0xFFFF),
		explicitBlockSize:     explicit,
		blockSizeCode:         code,
	}
}

// blockSizeFromCode derives the real block size from a non-explicit code.
func blockSizeFromCode(code uint8) uint32 { return uint32(code) << 11 }

// blockSizeToCode packs a block size into a 6-bit code, reporting whether
// the size must instead be carried as an explicit trailing u32.
func blockSizeToCode(size uint32) (code uint8, explicit bool) {
	if size%2048 == 0 && size>>11 <= 0x3E {
		return uint8(size >> 11), false
	}
	return blockSizeExplicitCode, true
}
