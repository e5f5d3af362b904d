// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"io"

	"github.com/google/uuid"
)

// Wire-format constants fixed by the container layout.
const (
	// Magic identifies a pak trailer.
	Magic uint32 = 0x5A6F12E1
	// TrailerSize is the fixed footer length in bytes, positioned at
	// file_end - TrailerSize.
	TrailerSize = 221
	// shaSize is the SHA-1 digest length used throughout the format.
	shaSize = 20
	// methodNameSlotSize is the padded width of one compression-method
	// name table slot.
	methodNameSlotSize = 32
	// methodTableSlots is the number of stored method-name slots; index 0
	// (None) is implicit and not stored.
	methodTableSlots = 5
	// maxEntrySize is the 32-bit ceiling on any single entry's size.
	maxEntrySize = 1<<32 - 1
	// maxStringLen bounds the absolute value of an FString length prefix.
	maxStringLen = 131072
	// maxCreateBlockSize is the block size ceiling enforced when creating
	// new compressed entries.
	maxCreateBlockSize = 65535
)

// Version is the pak trailer format version.
type Version int16

// Named pak format versions relevant to this codec. Values match the
// versions Unreal Engine itself assigns; versions below VersionFnv64BugFix
// are rejected outright (spec Non-goals: "archives older than the minimum
// supported version").
const (
	VersionInitial                     Version = 1
	VersionNoTimestamps                Version = 2
	VersionCompressionEncryption       Version = 3
	VersionIndexEncryption             Version = 4
	VersionRelativeChunkOffsets        Version = 5
	VersionDeleteRecords               Version = 6
	VersionEncryptionKeyGUID           Version = 7
	VersionFNameBasedCompressionMethod Version = 8
	VersionFrozenIndex                 Version = 9
	VersionPathHashIndex               Version = 10
	VersionFnv64BugFix                 Version = 11

	// VersionMinSupported is the lowest version this codec will mount.
	VersionMinSupported = VersionFnv64BugFix
	// VersionLatest is the highest version this codec understands. This
	// codec never needs a frozen index (a Non-goal), so nothing beyond
	// Fnv64BugFix changes behavior here.
	VersionLatest = VersionFnv64BugFix
)

// Method identifies a per-entry compression method. The wire format stores
// methods as free-form ASCII names in the trailer's method table; None is
// implicit and never stored.
type Method string

// Supported and named-but-rejected compression methods.
const (
	MethodNone   Method = "None"
	MethodZlib   Method = "Zlib"
	MethodGzip   Method = "Gzip"
	MethodOodle  Method = "Oodle"
	MethodLZ4    Method = "LZ4"
	MethodCustom Method = "Custom"
)

// Block is one compressed chunk's byte range. Start and End are measured
// from the owning entry's Offset, as the on-disk format does from
// VersionRelativeChunkOffsets on; every version this codec mounts or
// writes is in that range.
type Block struct {
	Start uint64
	End   uint64
}

// Len returns the stored (possibly compressed) length of the block.
func (b Block) Len() uint64 { return b.End - b.Start }

// Entry represents one logical file inside the archive.
type Entry struct {
	// Path is the entry's logical path within the archive.
	Path Name
	// Method is the entry's compression method.
	Method Method
	// UncompressedSize is the entry's decompressed size in bytes.
	UncompressedSize uint32
	// CompressedSize is the entry's stored size in bytes (equal to
	// UncompressedSize when Method is MethodNone).
	CompressedSize uint32
	// Offset is the entry's absolute byte offset in the archive.
	Offset uint64
	// BlockSize is the compression block size in bytes.
	BlockSize uint32
	// Blocks holds each compressed block's byte range, relative to Offset
	// (see Block). Empty when Method is MethodNone.
	Blocks []Block
	// SHA1 is the digest of the entry's stored (possibly compressed)
	// bytes.
	SHA1 [shaSize]byte

	data   []byte
	loaded bool
	source io.ReaderAt
}

// IsCompressed reports whether the entry uses block compression.
func (e *Entry) IsCompressed() bool { return e.Method != MethodNone }

// HasData reports whether payload bytes are available without touching the
// backing stream.
func (e *Entry) HasData() bool { return e.loaded }

// SetData assigns payload bytes directly, as done for entries created via
// AddEntry/WriteEntry rather than mounted from a stream.
func (e *Entry) SetData(b []byte) {
	e.data = b
	e.loaded = true
	e.source = nil
}

// blockCount returns the expected number of compression blocks for the
// entry's current sizes, honoring the boundary case where a payload exactly
// equal to one block still yields a single block.
func blockCount(uncompressedSize uint64, blockSize uint32) int {
	if uncompressedSize == 0 {
		return 0
	}
	if blockSize == 0 {
		return 1
	}
	n := uncompressedSize / uint64(blockSize)
	if uncompressedSize%uint64(blockSize) != 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return int(n)
}

// PakInfo is the archive's fixed 221-byte trailer (footer).
type PakInfo struct {
	// EncryptionKeyGUID must be uuid.Nil; encryption is not supported.
	EncryptionKeyGUID uuid.UUID
	// Encrypted must be false; encryption is not supported.
	Encrypted bool
	// Version is the archive format version.
	Version Version
	// Subversion is a minor version tag carried alongside Version.
	Subversion int16
	// IndexOffset is the byte offset of the primary index.
	IndexOffset int64
	// IndexSize is the byte length of the primary index.
	IndexSize int64
	// IndexSHA1 is the SHA-1 digest of the primary index bytes.
	IndexSHA1 [shaSize]byte
	// CompressionMethods holds up to 5 method names, in table-slot order.
	// A zero-value entry means the slot is absent.
	CompressionMethods [methodTableSlots]Method
}

// SubIndexHeader is the {offset, size, hash} triple that locates and
// verifies one of the two sub-indices.
type SubIndexHeader struct {
	Offset int64
	Size   int64
	SHA1   [shaSize]byte
}

// MountOptions configures Mount.
type MountOptions struct {
	// Oodle is consulted whenever an entry is tagged MethodOodle. Nil
	// means Oodle payloads fail with ErrMethodNotImplemented on read.
	Oodle OodleCodec
}

func (o *MountOptions) applyDefaults() {}

// CreateOptions configures Create.
type CreateOptions struct {
	// Compression is the compression method applied to every entry added
	// with AddEntry. MethodNone if unset.
	Compression Method
	// BlockSize is the compression block size used for new compressed
	// entries. Defaults to maxCreateBlockSize.
	BlockSize uint32
	// Oodle is consulted whenever Compression is MethodOodle.
	Oodle OodleCodec
}

func (o *CreateOptions) applyDefaults() {
	if o.Compression == "" {
		o.Compression = MethodNone
	}
	if o.BlockSize == 0 || o.BlockSize > maxCreateBlockSize {
		o.BlockSize = maxCreateBlockSize
	}
}

// SaveOptions configures Save/SaveTo.
type SaveOptions struct {
	// PathHashSeed overrides the archive's path-hash seed. Zero means keep
	// the archive's existing seed (set at Create time from the filename
	// CRC, or inherited from a mounted archive).
	PathHashSeed uint64
}

func (o *SaveOptions) applyDefaults() {}

// Asset groups a primary asset's related entries: the main file plus the
// optional cooked export and bulk-data siblings Unreal ships alongside it.
type Asset struct {
	Main   []byte
	Export []byte
	Bulk   []byte
	// ExportPath and BulkPath record which sibling extension was found, if
	// any, so callers can tell ".ubulk" from ".uptnl".
	ExportPath string
	BulkPath   string
}

// reservedAssetExtensions are extensions that can never be requested as a
// primary asset path via GetAsset.
var reservedAssetExtensions = map[string]bool{
	".uexp":  true,
	".ubulk": true,
	".uptnl": true,
}
