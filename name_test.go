// SPDX-License-Identifier: MIT
// Source: github.com/wrenpak/pak

package pak

import (
	"bytes"
	"testing"
)

func TestNameFStringRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		encoding Encoding
	}{
		{"ascii", "Content/Hero.uasset", EncodingASCII},
		{"ascii empty", "", EncodingASCII},
		{"utf16 empty", "", EncodingUTF16LE},
		{"utf16 ascii-range", "Content/Hero.uasset", EncodingUTF16LE},
		{"utf16 non-ascii", "Content/Héros/Ünïcode.uasset", EncodingUTF16LE},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewName(c.value, c.encoding, 42)
			if err := EncodeName(&buf, n); err != nil {
				t.Fatalf("EncodeName: %v", err)
			}

			got, err := DecodeName(&buf, 42)
			if err != nil {
				t.Fatalf("DecodeName: %v", err)
			}
			if got.String() != c.value {
				t.Errorf("value = %q, want %q", got.String(), c.value)
			}
			if got.Encoding() != c.encoding {
				t.Errorf("encoding = %v, want %v", got.Encoding(), c.encoding)
			}
			if got.IsNull() {
				t.Error("round-tripped non-null value decoded as null")
			}
		})
	}
}

func TestNameNullRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeName(&buf, Name{}); err != nil {
		t.Fatalf("EncodeName: %v", err)
	}
	if buf.Len() != 4 {
		t.Fatalf("null FString encoded to %d bytes, want 4", buf.Len())
	}

	got, err := DecodeName(&buf, 0)
	if err != nil {
		t.Fatalf("DecodeName: %v", err)
	}
	if !got.IsNull() {
		t.Error("expected null Name")
	}
}

func TestNameHashStabilityAcrossEncoding(t *testing.T) {
	ascii := NewName("Content/A.uasset", EncodingASCII, 7)
	utf16 := NewName("Content/A.uasset", EncodingUTF16LE, 7)

	if ascii.CRC32() != utf16.CRC32() {
		t.Errorf("CRC32 differs by encoding tag: %d vs %d", ascii.CRC32(), utf16.CRC32())
	}
	if ascii.FNV64() != utf16.FNV64() {
		t.Errorf("FNV64 differs by encoding tag: %d vs %d", ascii.FNV64(), utf16.FNV64())
	}
}

func TestNameHashCaseInsensitive(t *testing.T) {
	lower := NewName("content/a.uasset", EncodingASCII, 7)
	upper := NewName("CONTENT/A.UASSET", EncodingASCII, 7)

	if lower.CRC32() != upper.CRC32() {
		t.Error("CRC32 is not case-insensitive")
	}
	if lower.FNV64() != upper.FNV64() {
		t.Error("FNV64 is not case-insensitive")
	}
}

func TestNameEqual(t *testing.T) {
	a := NewName("x", EncodingASCII, 0)
	b := NewName("x", EncodingUTF16LE, 99)
	if !a.Equal(b) {
		t.Error("Names with equal values but different encoding/seed should be Equal")
	}
	if a.Equal(Name{}) {
		t.Error("non-null Name should not equal the null Name")
	}
}

func TestDecodeNameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	_ = writeI32(&buf, int32(maxStringLen+1))
	if _, err := DecodeName(&buf, 0); err == nil {
		t.Fatal("expected error for oversized FString length")
	}
}
