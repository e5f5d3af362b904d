// SPDX-License-Identifier: MIT
// Source: github.com/wrenpak/pak

package pak

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// memBuffer is an in-memory io.ReadWriteSeeker plus io.Closer, standing in
// for an *os.File in tests that exercise Save/Mount without touching disk.
type memBuffer struct {
	buf []byte
	pos int64
}

func (m *memBuffer) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memBuffer) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = m.pos + offset
	case io.SeekEnd:
		newPos = int64(len(m.buf)) + offset
	}
	m.pos = newPos
	return newPos, nil
}

func (m *memBuffer) Close() error { return nil }

// reopen returns a fresh memBuffer sharing the same underlying bytes but
// positioned at the start, as if the archive were reopened from disk.
func (m *memBuffer) reopen() *memBuffer {
	return &memBuffer{buf: m.buf}
}

func TestArchiveCreateSaveMountRoundTrip(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/", CreateOptions{Compression: MethodNone})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := []byte{0x01, 0x02, 0x03}
	if err := a.AddEntry("Content/A.uasset", payload); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	dst := &memBuffer{}
	if err := a.SaveTo(dst); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	mounted, err := MountStream(dst.reopen())
	if err != nil {
		t.Fatalf("MountStream: %v", err)
	}
	defer func() { _ = mounted.Close() }()

	if mounted.entries.Len() != 1 {
		t.Fatalf("mounted entry count = %d, want 1", mounted.entries.Len())
	}
	k, _ := mounted.entries.At(0)
	if want := "TestGame/Content/A.uasset"; k.String() != want {
		t.Errorf("entry name = %q, want %q", k.String(), want)
	}

	got, err := mounted.ReadEntry("TestGame/Content/A.uasset")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %v, want %v", got, payload)
	}
}

func TestArchiveZlibTwoBlockRoundTrip(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/", CreateOptions{Compression: MethodZlib, BlockSize: 65535})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := bytes.Repeat([]byte{0x41}, 100000)
	if err := a.AddEntry("Content/Big.uasset", payload); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	dst := &memBuffer{}
	if err := a.SaveTo(dst); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	_, e := a.entries.At(0)
	if want := 2; len(e.Blocks) != want {
		t.Fatalf("block count = %d, want %d", len(e.Blocks), want)
	}

	mounted, err := MountStream(dst.reopen())
	if err != nil {
		t.Fatalf("MountStream: %v", err)
	}
	defer func() { _ = mounted.Close() }()

	got, err := mounted.ReadEntry("TestGame/Content/Big.uasset")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round-tripped payload differs, got %d bytes want %d", len(got), len(payload))
	}
}

func TestArchiveAssetGrouping(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	main := []byte("main")
	export := []byte("export")
	bulk := []byte("bulk")
	for path, data := range map[string][]byte{
		"Content/M.uasset": main,
		"Content/M.uexp":   export,
		"Content/M.ubulk":  bulk,
	} {
		if err := a.AddEntry(path, data); err != nil {
			t.Fatalf("AddEntry(%q): %v", path, err)
		}
	}

	dst := &memBuffer{}
	if err := a.SaveTo(dst); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	mounted, err := MountStream(dst.reopen())
	if err != nil {
		t.Fatalf("MountStream: %v", err)
	}
	defer func() { _ = mounted.Close() }()

	asset, err := mounted.GetAsset("TestGame/Content/M.uasset")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if !bytes.Equal(asset.Main, main) {
		t.Errorf("Main = %q, want %q", asset.Main, main)
	}
	if !bytes.Equal(asset.Export, export) || asset.ExportPath == "" {
		t.Errorf("Export = %q (path %q), want %q", asset.Export, asset.ExportPath, export)
	}
	if !bytes.Equal(asset.Bulk, bulk) {
		t.Errorf("Bulk = %q, want %q", asset.Bulk, bulk)
	}
}

func TestArchiveGetAssetRejectsBulkPath(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.AddEntry("Content/M.ubulk", []byte("bulk")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	if _, err := a.GetAsset("Content/M.ubulk"); !errors.Is(err, ErrBulkPathRequested) {
		t.Fatalf("got %v, want ErrBulkPathRequested", err)
	}
}

func TestMountRejectsEncryptedIndex(t *testing.T) {
	dst := &memBuffer{}
	err := EncodeTrailer(dst, PakInfo{Version: VersionLatest, Encrypted: true})
	if err != nil {
		t.Fatalf("EncodeTrailer: %v", err)
	}

	_, err = MountStream(dst.reopen())
	if !errors.Is(err, ErrEncrypted) {
		t.Fatalf("got %v, want ErrEncrypted", err)
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	buf := make([]byte, TrailerSize)
	binary.LittleEndian.PutUint32(buf[17:21], 0xDEADBEEF)

	_, err := MountStream(&memBuffer{buf: buf})
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("got %v, want ErrBadMagic", err)
	}
}

func TestArchiveEmptySaveAndMount(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dst := &memBuffer{}
	if err := a.SaveTo(dst); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if len(dst.buf) < TrailerSize {
		t.Fatalf("saved archive is %d bytes, smaller than trailer", len(dst.buf))
	}

	mounted, err := MountStream(dst.reopen())
	if err != nil {
		t.Fatalf("MountStream: %v", err)
	}
	defer func() { _ = mounted.Close() }()

	if mounted.entries.Len() != 0 {
		t.Errorf("entry count = %d, want 0", mounted.entries.Len())
	}
}

func TestArchiveMountPointResolution(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	payload := []byte("data")
	if err := a.AddEntry("Content/A.uasset", payload); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}

	for _, path := range []string{
		"../../../TestGame/Content/A.uasset",
		"TestGame/Content/A.uasset",
		"Content/A.uasset",
	} {
		got, err := a.ReadEntry(path)
		if err != nil {
			t.Errorf("ReadEntry(%q): %v", path, err)
			continue
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("ReadEntry(%q) = %q, want %q", path, got, payload)
		}
	}
}

func TestArchiveAddEntryRejectsDuplicate(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.AddEntry("Content/A.uasset", []byte("x")); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := a.AddEntry("Content/A.uasset", []byte("y")); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("got %v, want ErrDuplicateEntry", err)
	}
}

func TestArchiveWriteEntryRequiresExisting(t *testing.T) {
	a, err := Create("Game.pak", "../../../TestGame/")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.WriteEntry("Content/Missing.uasset", []byte("x")); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("got %v, want ErrEntryNotFound", err)
	}
}
