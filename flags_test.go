// SPDX-License-Identifier: MIT
// Source: github.com/wrenpak/pak

package pak

import "testing"

func TestFlagsWordRoundTrip(t *testing.T) {
	cases := []entryFlags{
		{},
		{offsetIsU32: true, uncompressedSizeIsU32: true, compressedSizeIsU32: true},
		{methodIndex: 3, blockCount: 12, blockSizeCode: 31},
		{methodIndex: 5, explicitBlockSize: true, blockCount: 65535},
		{encrypted: true, methodIndex: 1, blockCount: 1},
		{offsetIsU32: false, methodIndex: 0, blockCount: 0, blockSizeCode: 0},
	}

	for i, c := range cases {
		got := decodeFlagsWord(encodeFlagsWord(c))
		if got != c {
			t.Errorf("case %d: round trip = %+v, want %+v", i, got, c)
		}
	}
}

func TestBlockSizeCodeRoundTrip(t *testing.T) {
	cases := []uint32{0, 2048, 65536, 2048 * 0x3E}

	for _, size := range cases {
		code, explicit := blockSizeToCode(size)
		if explicit {
			t.Errorf("size %d unexpectedly requires explicit encoding", size)
			continue
		}
		if got := blockSizeFromCode(code); got != size {
			t.Errorf("blockSizeFromCode(blockSizeToCode(%d)) = %d", size, got)
		}
	}
}

func TestBlockSizeCodeRequiresExplicitForUnalignedSize(t *testing.T) {
	_, explicit := blockSizeToCode(65535)
	if !explicit {
		t.Error("65535 is not a multiple of 2048 and should require explicit encoding")
	}
}
