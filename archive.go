// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"fmt"
	"io"
	"iter"
	"os"
	stdpath "path"
	"strings"
)

// Source is the resource a mounted archive reads from: random access for
// lazy entry loading, seekable so Mount can locate the trailer relative to
// EOF, and closable so the archive can release it deterministically.
type Source interface {
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Archive is a mounted or in-progress pak archive: an ordered set of
// entries plus the trailer/index metadata needed to save it back out.
type Archive struct {
	mountPoint         Name
	pathHashSeed       uint64
	version            Version
	subversion         int16
	compressionMethods methodTable
	defaultCompression Method
	blockSize          uint32
	oodle              OodleCodec

	entries *orderedMap

	source Source
	closed bool
}

// Mount opens path and reads the archive's trailer and index.
func Mount(path string, opts ...MountOptions) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := MountStream(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return a, nil
}

// MountStream reads the archive's trailer and index from an already-open
// source, taking ownership of it: Close (or a later Save) closes src.
func MountStream(src Source, opts ...MountOptions) (*Archive, error) {
	var o MountOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.applyDefaults()

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	trailerOffset := size - TrailerSize
	if trailerOffset < 0 {
		return nil, fmt.Errorf("%w: archive smaller than trailer size", ErrTruncated)
	}

	info, err := DecodeTrailer(io.NewSectionReader(src, trailerOffset, TrailerSize))
	if err != nil {
		return nil, err
	}

	mountPoint, pathHashSeed, entries, err := decodeIndex(src, info)
	if err != nil {
		return nil, err
	}

	return &Archive{
		mountPoint:         mountPoint,
		pathHashSeed:       pathHashSeed,
		version:            info.Version,
		subversion:         info.Subversion,
		compressionMethods: methodTable(info.CompressionMethods),
		entries:            entries,
		source:             src,
		oodle:              o.Oodle,
		blockSize:          maxCreateBlockSize,
	}, nil
}

// Create builds a new, empty archive in memory. fileName seeds the
// archive's path-hash seed (the Unreal CRC-32 of its case-folded value);
// mountPoint is the archive's logical mount point.
func Create(fileName, mountPoint string, opts ...CreateOptions) (*Archive, error) {
	var o CreateOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.applyDefaults()

	seed := uint64(NewName(fileName, EncodingASCII, 0).CRC32())

	var methods methodTable
	if o.Compression != "" && o.Compression != MethodNone {
		if _, err := methods.indexOf(o.Compression); err != nil {
			return nil, err
		}
	}

	return &Archive{
		mountPoint:         NewName(mountPoint, EncodingASCII, 0),
		pathHashSeed:       seed,
		version:            VersionLatest,
		compressionMethods: methods,
		defaultCompression: o.Compression,
		blockSize:          o.BlockSize,
		oodle:              o.Oodle,
		entries:            newOrderedMap(),
	}, nil
}

// AddEntry adds a new entry at path with the given payload bytes. path must
// not already exist in the archive.
func (a *Archive) AddEntry(path string, data []byte) error {
	if a.closed {
		return ErrArchiveClosed
	}
	if uint64(len(data)) > maxEntrySize {
		return ErrSizeOverflow
	}

	key := normalizeAddedPath(path, a.mountPoint.String())
	if a.entries.Has(key) {
		return fmt.Errorf("%w: %q", ErrDuplicateEntry, key)
	}

	name := NewName(key, EncodingASCII, a.pathHashSeed)
	e := &Entry{Path: name, Method: a.defaultCompression, BlockSize: a.blockSize}
	e.SetData(data)

	a.entries.Add(name, e)
	return nil
}

// RemoveEntry removes the entry at path.
func (a *Archive) RemoveEntry(path string) error {
	if a.closed {
		return ErrArchiveClosed
	}
	key, ok := a.resolveKey(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	a.entries.Remove(key)
	return nil
}

// HasEntry reports whether path resolves to an existing entry.
func (a *Archive) HasEntry(path string) bool {
	_, ok := a.resolveKey(path)
	return ok
}

// ReadEntry returns path's payload bytes, loading them from the backing
// source on first access.
func (a *Archive) ReadEntry(path string) ([]byte, error) {
	if a.closed {
		return nil, ErrArchiveClosed
	}
	e, ok := a.findEntry(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	return loadEntryData(e, a.oodle)
}

// WriteEntry overwrites the payload of an existing entry at path.
func (a *Archive) WriteEntry(path string, data []byte) error {
	if a.closed {
		return ErrArchiveClosed
	}
	if uint64(len(data)) > maxEntrySize {
		return ErrSizeOverflow
	}
	e, ok := a.findEntry(path)
	if !ok {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	e.SetData(data)
	return nil
}

// GetAsset reads a primary asset path plus its optional cooked-export
// (".uexp") and bulk-data (".ubulk" or ".uptnl") siblings. path must not
// itself end in a reserved bulk extension.
func (a *Archive) GetAsset(path string) (*Asset, error) {
	ext := strings.ToLower(stdpath.Ext(path))
	if reservedAssetExtensions[ext] {
		return nil, fmt.Errorf("%w: %q", ErrBulkPathRequested, path)
	}

	main, err := a.ReadEntry(path)
	if err != nil {
		return nil, err
	}
	asset := &Asset{Main: main}

	base := strings.TrimSuffix(path, ext)

	if data, err := a.ReadEntry(base + ".uexp"); err == nil {
		asset.Export = data
		asset.ExportPath = base + ".uexp"
	}

	if data, err := a.ReadEntry(base + ".ubulk"); err == nil {
		asset.Bulk = data
		asset.BulkPath = base + ".ubulk"
	} else if data, err := a.ReadEntry(base + ".uptnl"); err == nil {
		asset.Bulk = data
		asset.BulkPath = base + ".uptnl"
	}

	return asset, nil
}

// Entries iterates the archive's entry paths in insertion order.
func (a *Archive) Entries() iter.Seq[Name] {
	return func(yield func(Name) bool) {
		for i := 0; i < a.entries.Len(); i++ {
			k, _ := a.entries.At(i)
			if !yield(k) {
				return
			}
		}
	}
}

// MountPoint returns the archive's logical mount point.
func (a *Archive) MountPoint() Name { return a.mountPoint }

// Compression returns the archive's default compression method.
func (a *Archive) Compression() Method { return a.defaultCompression }

// Close releases the archive's backing source, if any.
func (a *Archive) Close() error {
	err := a.closeSource()
	a.closed = true
	return err
}

func (a *Archive) closeSource() error {
	if a.source == nil {
		return nil
	}
	err := a.source.Close()
	a.source = nil
	return err
}

// Save writes the archive to path, closing any backing source first so
// saving back over the file it was mounted from is safe.
func (a *Archive) Save(path string, opts ...SaveOptions) error {
	if err := a.materializeAll(); err != nil {
		return err
	}
	if err := a.closeSource(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return a.SaveTo(f, opts...)
}

// SaveTo writes the archive to w, an already-positioned seekable
// destination. It reads any payloads not yet loaded from the archive's
// backing source but leaves that source open.
func (a *Archive) SaveTo(w io.ReadWriteSeeker, opts ...SaveOptions) error {
	if a.closed {
		return ErrArchiveClosed
	}
	if err := a.materializeAll(); err != nil {
		return err
	}

	var o SaveOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	o.applyDefaults()

	seed := a.pathHashSeed
	if o.PathHashSeed != 0 {
		seed = o.PathHashSeed
	}

	version := a.version
	if version == 0 {
		version = VersionLatest
	}

	methods := a.compressionMethods
	for i := 0; i < a.entries.Len(); i++ {
		_, e := a.entries.At(i)
		if _, err := methods.indexOf(e.Method); err != nil {
			return err
		}
	}

	offset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	for i := 0; i < a.entries.Len(); i++ {
		_, e := a.entries.At(i)

		idx, err := methods.indexOf(e.Method)
		if err != nil {
			return err
		}

		blockSize := e.BlockSize
		if blockSize == 0 {
			blockSize = a.blockSize
		}
		if blockSize == 0 {
			blockSize = maxCreateBlockSize
		}

		n, err := saveEntryData(w, e, uint64(offset), version, blockSize, idx, a.oodle)
		if err != nil {
			return fmt.Errorf("write entry %q: %w", e.Path.String(), err)
		}
		offset += n
	}

	indexOffset, indexSize, indexSHA1, err := encodeIndex(w, a.mountPoint, a.entries, seed, version, methods)
	if err != nil {
		return err
	}

	info := PakInfo{
		Version:            version,
		Subversion:         a.subversion,
		IndexOffset:        indexOffset,
		IndexSize:          indexSize,
		IndexSHA1:          indexSHA1,
		CompressionMethods: [methodTableSlots]Method(methods),
	}
	return EncodeTrailer(w, info)
}

// materializeAll pulls every lazily-backed entry's payload into memory so
// the backing source can be closed before writing.
func (a *Archive) materializeAll() error {
	for i := 0; i < a.entries.Len(); i++ {
		_, e := a.entries.At(i)
		if e.loaded {
			continue
		}
		if _, err := loadEntryData(e, a.oodle); err != nil {
			return fmt.Errorf("load entry %q: %w", e.Path.String(), err)
		}
	}
	return nil
}

// findEntry resolves path against the archive's mount-point lookup
// variants, in priority order.
func (a *Archive) findEntry(path string) (*Entry, bool) {
	for _, cand := range findEntryCandidates(path, a.mountPoint.String()) {
		if e, ok := a.entries.Get(cand); ok {
			return e, true
		}
	}
	return nil, false
}

// resolveKey is like findEntry but returns the matched stored key.
func (a *Archive) resolveKey(path string) (string, bool) {
	for _, cand := range findEntryCandidates(path, a.mountPoint.String()) {
		if a.entries.Has(cand) {
			return cand, true
		}
	}
	return "", false
}
