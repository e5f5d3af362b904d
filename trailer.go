// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// DecodeTrailer reads the fixed TrailerSize footer from r, which must
// already be positioned at the start of the trailer (file_end -
// TrailerSize).
func DecodeTrailer(r io.Reader) (PakInfo, error) {
	buf := make([]byte, TrailerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return PakInfo{}, fmt.Errorf("%w: read trailer: %v", ErrTruncated, err)
	}
	return decodeTrailerBytes(buf)
}

func decodeTrailerBytes(buf []byte) (PakInfo, error) {
	br := bytes.NewReader(buf)
	var info PakInfo

	var guidBytes [16]byte
	if _, err := io.ReadFull(br, guidBytes[:]); err != nil {
		return PakInfo{}, fmt.Errorf("%w: read encryption guid: %v", ErrTruncated, err)
	}
	guid, err := uuid.FromBytes(guidBytes[:])
	if err != nil {
		return PakInfo{}, fmt.Errorf("%w: parse encryption guid: %v", ErrSerializer, err)
	}
	info.EncryptionKeyGUID = guid

	var encryptedByte [1]byte
	if _, err := io.ReadFull(br, encryptedByte[:]); err != nil {
		return PakInfo{}, fmt.Errorf("%w: read encrypted flag: %v", ErrTruncated, err)
	}
	info.Encrypted = encryptedByte[0] != 0

	magic, err := readU32(br)
	if err != nil {
		return PakInfo{}, err
	}
	if magic != Magic {
		return PakInfo{}, fmt.Errorf("%w: got 0x%08X, want 0x%08X", ErrBadMagic, magic, Magic)
	}

	version, err := readI16(br)
	if err != nil {
		return PakInfo{}, err
	}
	info.Version = Version(version)
	if info.Version < VersionMinSupported {
		return PakInfo{}, fmt.Errorf("%w: version %d is below minimum supported version %d",
			ErrVersionUnsupported, info.Version, VersionMinSupported)
	}

	subversion, err := readI16(br)
	if err != nil {
		return PakInfo{}, err
	}
	info.Subversion = subversion

	info.IndexOffset, err = readI64(br)
	if err != nil {
		return PakInfo{}, err
	}
	info.IndexSize, err = readI64(br)
	if err != nil {
		return PakInfo{}, err
	}
	if _, err := io.ReadFull(br, info.IndexSHA1[:]); err != nil {
		return PakInfo{}, fmt.Errorf("%w: read index sha1: %v", ErrTruncated, err)
	}

	for i := range info.CompressionMethods {
		var slot [methodNameSlotSize]byte
		if _, err := io.ReadFull(br, slot[:]); err != nil {
			return PakInfo{}, fmt.Errorf("%w: read compression method slot %d: %v", ErrTruncated, i, err)
		}
		info.CompressionMethods[i] = Method(trimMethodName(slot[:]))
	}

	if info.Encrypted || info.EncryptionKeyGUID != uuid.Nil {
		return PakInfo{}, ErrEncrypted
	}

	return info, nil
}

// EncodeTrailer writes the fixed TrailerSize footer to w.
func EncodeTrailer(w io.Writer, info PakInfo) error {
	var buf bytes.Buffer
	buf.Grow(TrailerSize)

	guidBytes, err := info.EncryptionKeyGUID.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: marshal encryption guid: %v", ErrSerializer, err)
	}
	buf.Write(guidBytes)

	var encryptedByte byte
	if info.Encrypted {
		encryptedByte = 1
	}
	buf.WriteByte(encryptedByte)

	if err := writeU32(&buf, Magic); err != nil {
		return err
	}
	if err := writeI16(&buf, int16(info.Version)); err != nil {
		return err
	}
	if err := writeI16(&buf, info.Subversion); err != nil {
		return err
	}
	if err := writeI64(&buf, info.IndexOffset); err != nil {
		return err
	}
	if err := writeI64(&buf, info.IndexSize); err != nil {
		return err
	}
	buf.Write(info.IndexSHA1[:])

	for i, m := range info.CompressionMethods {
		slot, err := padMethodName(string(m))
		if err != nil {
			return fmt.Errorf("compression method slot %d: %w", i, err)
		}
		buf.Write(slot)
	}

	if buf.Len() != TrailerSize {
		return fmt.Errorf("%w: encoded trailer is %d bytes, want %d", ErrSerializer, buf.Len(), TrailerSize)
	}

	_, err = w.Write(buf.Bytes())
	return err
}

// trimMethodName strips the trailing NUL padding from a fixed-width
// compression method name slot.
func trimMethodName(slot []byte) string {
	if i := bytes.IndexByte(slot, 0); i >= 0 {
		return string(slot[:i])
	}
	return string(slot)
}

// padMethodName packs name into a fixed methodNameSlotSize slot, NUL-padded.
func padMethodName(name string) ([]byte, error) {
	if len(name) >= methodNameSlotSize {
		return nil, fmt.Errorf("%w: method name %q is too long for a %d-byte slot",
			ErrSerializer, name, methodNameSlotSize)
	}
	slot := make([]byte, methodNameSlotSize)
	copy(slot, name)
	return slot, nil
}
