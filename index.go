// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"bufio"
	"bytes"
	"crypto/sha1" //nolint:gosec // pak index format requires SHA-1.
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// dirFileEntry is one file's (name, blob offset) pair within a
// full-directory sub-index bucket.
type dirFileEntry struct {
	name       string
	blobOffset int32
}

// dirBucket is one directory's file list, in insertion order.
type dirBucket struct {
	name  string
	files []dirFileEntry
}

// decodeSubIndexHeader reads a 36-byte {offset, size, sha1} sub-header.
func decodeSubIndexHeader(r io.Reader) (SubIndexHeader, error) {
	offset, err := readI64(r)
	if err != nil {
		return SubIndexHeader{}, err
	}
	size, err := readI64(r)
	if err != nil {
		return SubIndexHeader{}, err
	}
	var sha [shaSize]byte
	if _, err := io.ReadFull(r, sha[:]); err != nil {
		return SubIndexHeader{}, fmt.Errorf("%w: read sub-index sha1: %v", ErrTruncated, err)
	}
	return SubIndexHeader{Offset: offset, Size: size, SHA1: sha}, nil
}

// encodeSubIndexHeader writes a 36-byte {offset, size, sha1} sub-header.
func encodeSubIndexHeader(w io.Writer, h SubIndexHeader) error {
	if err := writeI64(w, h.Offset); err != nil {
		return err
	}
	if err := writeI64(w, h.Size); err != nil {
		return err
	}
	_, err := w.Write(h.SHA1[:])
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// decodeIndex reads the primary index and both sub-indices, resolving the
// full-directory index (authoritative) into an insertion-ordered map of
// full logical path -> lazily-loaded Entry.
func decodeIndex(source io.ReaderAt, info PakInfo) (mountPoint Name, pathHashSeed uint64, entries *orderedMap, err error) {
	primary := bufio.NewReader(io.NewSectionReader(source, info.IndexOffset, info.IndexSize))

	mountPoint, err = DecodeName(primary, 0)
	if err != nil {
		return Name{}, 0, nil, err
	}
	entryCount, err := readI32(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}
	pathHashSeed, err = readU64(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}

	hasPathHash, err := readI32(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}
	if hasPathHash != 1 {
		return Name{}, 0, nil, fmt.Errorf("%w: has-path-hash flag", ErrMissingIndexEntry)
	}
	if _, err = decodeSubIndexHeader(primary); err != nil {
		return Name{}, 0, nil, err
	}

	hasFullDir, err := readI32(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}
	if hasFullDir != 1 {
		return Name{}, 0, nil, ErrNoFullDirectory
	}
	fullDirHeader, err := decodeSubIndexHeader(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}

	blobLen, err := readI32(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}
	blob := make([]byte, blobLen)
	if _, err = io.ReadFull(primary, blob); err != nil {
		return Name{}, 0, nil, fmt.Errorf("%w: read encoded-entries blob: %v", ErrTruncated, err)
	}

	unencodedCount, err := readI32(primary)
	if err != nil {
		return Name{}, 0, nil, err
	}
	if unencodedCount != 0 {
		return Name{}, 0, nil, ErrUnencodedEntries
	}

	methods := methodTable(info.CompressionMethods)
	relMP := relativeMountPoint(mountPoint.String())

	fullDir := bufio.NewReader(io.NewSectionReader(source, fullDirHeader.Offset, fullDirHeader.Size))
	dirCount, err := readI32(fullDir)
	if err != nil {
		return Name{}, 0, nil, err
	}

	entries = newOrderedMap()
	for d := int32(0); d < dirCount; d++ {
		dirName, err := DecodeName(fullDir, pathHashSeed)
		if err != nil {
			return Name{}, 0, nil, err
		}
		fileCount, err := readI32(fullDir)
		if err != nil {
			return Name{}, 0, nil, err
		}
		for f := int32(0); f < fileCount; f++ {
			fileName, err := DecodeName(fullDir, pathHashSeed)
			if err != nil {
				return Name{}, 0, nil, err
			}
			blobOffset, err := readI32(fullDir)
			if err != nil {
				return Name{}, 0, nil, err
			}
			if blobOffset == math.MinInt32 {
				continue
			}

			fullPath := joinDirFile(dirName.String(), fileName.String())
			if relMP != "" {
				fullPath = relMP + fullPath
			}

			meta, err := decodeEntryMeta(bytes.NewReader(blob[blobOffset:]), info.Version, methods)
			if err != nil {
				return Name{}, 0, nil, fmt.Errorf("entry %q: %w", fullPath, err)
			}
			meta.Path = NewName(fullPath, fileName.Encoding(), pathHashSeed)
			meta.source = source

			entries.Add(meta.Path, meta)
		}
	}

	_ = entryCount // informational only; the full-directory walk is authoritative

	return mountPoint, pathHashSeed, entries, nil
}

// encodeIndex writes the primary index and both sub-indices starting at w's
// current position, back-patching the two sub-index headers and computing
// the primary-index SHA-1 over the fully patched range (spec §9 Open
// Question: coverage is the full patched extent, not the pre-patch bytes).
func encodeIndex(w io.ReadWriteSeeker, mountPoint Name, entries *orderedMap, pathHashSeed uint64, version Version, methods methodTable) (indexOffset, indexSize int64, indexSHA1 [shaSize]byte, err error) {
	indexOffset, err = w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}

	blobBytes, blobOffsets, err := encodeEntriesBlob(entries, version, methods)
	if err != nil {
		return 0, 0, indexSHA1, err
	}
	buckets := buildDirectoryBuckets(entries, blobOffsets)

	if err = EncodeName(w, mountPoint); err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = writeI32(w, int32(entries.Len())); err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = writeU64(w, pathHashSeed); err != nil {
		return 0, 0, indexSHA1, err
	}

	if err = writeI32(w, 1); err != nil {
		return 0, 0, indexSHA1, err
	}
	pathHashHeaderPos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}
	if _, err = w.Write(make([]byte, 36)); err != nil {
		return 0, 0, indexSHA1, err
	}

	if err = writeI32(w, 1); err != nil {
		return 0, 0, indexSHA1, err
	}
	fullDirHeaderPos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}
	if _, err = w.Write(make([]byte, 36)); err != nil {
		return 0, 0, indexSHA1, err
	}

	if err = writeI32(w, int32(len(blobBytes))); err != nil {
		return 0, 0, indexSHA1, err
	}
	if _, err = w.Write(blobBytes); err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = writeI32(w, 0); err != nil {
		return 0, 0, indexSHA1, err
	}

	pathHashOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = writePathHashSubIndex(w, entries, blobOffsets); err != nil {
		return 0, 0, indexSHA1, err
	}
	pathHashEnd, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}

	fullDirOffset := pathHashEnd
	if err = writeFullDirectorySubIndex(w, buckets, pathHashSeed); err != nil {
		return 0, 0, indexSHA1, err
	}
	fullDirEnd, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, 0, indexSHA1, err
	}

	pathHashSHA1, err := hashRange(w, pathHashOffset, pathHashEnd-pathHashOffset)
	if err != nil {
		return 0, 0, indexSHA1, err
	}
	fullDirSHA1, err := hashRange(w, fullDirOffset, fullDirEnd-fullDirOffset)
	if err != nil {
		return 0, 0, indexSHA1, err
	}

	if _, err = w.Seek(pathHashHeaderPos, io.SeekStart); err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = encodeSubIndexHeader(w, SubIndexHeader{Offset: pathHashOffset, Size: pathHashEnd - pathHashOffset, SHA1: pathHashSHA1}); err != nil {
		return 0, 0, indexSHA1, err
	}

	if _, err = w.Seek(fullDirHeaderPos, io.SeekStart); err != nil {
		return 0, 0, indexSHA1, err
	}
	if err = encodeSubIndexHeader(w, SubIndexHeader{Offset: fullDirOffset, Size: fullDirEnd - fullDirOffset, SHA1: fullDirSHA1}); err != nil {
		return 0, 0, indexSHA1, err
	}

	indexSize = fullDirEnd - indexOffset
	indexSHA1, err = hashRange(w, indexOffset, indexSize)
	if err != nil {
		return 0, 0, indexSHA1, err
	}

	if _, err = w.Seek(fullDirEnd, io.SeekStart); err != nil {
		return 0, 0, indexSHA1, err
	}

	return indexOffset, indexSize, indexSHA1, nil
}

// hashRange computes the SHA-1 digest of the size bytes at offset, restoring
// w's original position afterward.
func hashRange(w io.ReadWriteSeeker, offset, size int64) ([shaSize]byte, error) {
	var out [shaSize]byte

	cur, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return out, err
	}
	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return out, err
	}

	h := sha1.New() //nolint:gosec // pak format requires SHA-1.
	if _, err := io.CopyN(h, w, size); err != nil {
		return out, fmt.Errorf("%w: hash back-patch range: %v", ErrSerializer, err)
	}
	copy(out[:], h.Sum(nil))

	_, err = w.Seek(cur, io.SeekStart)
	return out, err
}

// encodeEntriesBlob writes each entry's compact metadata record in
// insertion order and records its byte offset into the blob.
func encodeEntriesBlob(entries *orderedMap, version Version, methods methodTable) ([]byte, []int32, error) {
	var buf bytes.Buffer
	offsets := make([]int32, entries.Len())

	for i := 0; i < entries.Len(); i++ {
		_, e := entries.At(i)
		idx, err := methods.indexOf(e.Method)
		if err != nil {
			return nil, nil, err
		}
		offsets[i] = int32(buf.Len())
		if err := encodeEntryMeta(&buf, e, version, idx); err != nil {
			return nil, nil, fmt.Errorf("encode entry %d meta: %w", i, err)
		}
	}

	return buf.Bytes(), offsets, nil
}

// buildDirectoryBuckets groups entries by directory in first-seen order,
// seeding the root bucket first and inserting missing ancestor directories
// parent-first ahead of any entry that needs them.
func buildDirectoryBuckets(entries *orderedMap, blobOffsets []int32) []dirBucket {
	index := map[string]int{}
	var buckets []dirBucket

	ensure := func(dir string) int {
		if i, ok := index[dir]; ok {
			return i
		}
		index[dir] = len(buckets)
		buckets = append(buckets, dirBucket{name: dir})
		return len(buckets) - 1
	}
	ensure(rootDir)

	for i := 0; i < entries.Len(); i++ {
		k, _ := entries.At(i)
		path := k.String()
		dir := parentDir(path)
		file := baseName(path)

		for _, anc := range ancestors(dir) {
			ensure(anc)
		}

		di := index[dir]
		buckets[di].files = append(buckets[di].files, dirFileEntry{name: file, blobOffset: blobOffsets[i]})
	}

	return buckets
}

func writePathHashSubIndex(w io.Writer, entries *orderedMap, blobOffsets []int32) error {
	if err := writeI32(w, int32(entries.Len())); err != nil {
		return err
	}
	for i := 0; i < entries.Len(); i++ {
		k, _ := entries.At(i)
		if err := writeU64(w, k.FNV64()); err != nil {
			return err
		}
		if err := writeI32(w, blobOffsets[i]); err != nil {
			return err
		}
	}
	// Path-hash directory section is always empty; the full-directory
	// sub-index is authoritative (spec §9 Open Question).
	return writeI32(w, 0)
}

func writeFullDirectorySubIndex(w io.Writer, buckets []dirBucket, seed uint64) error {
	if err := writeI32(w, int32(len(buckets))); err != nil {
		return err
	}
	for _, bucket := range buckets {
		if err := EncodeName(w, NewName(bucket.name, EncodingASCII, seed)); err != nil {
			return err
		}
		if err := writeI32(w, int32(len(bucket.files))); err != nil {
			return err
		}
		for _, f := range bucket.files {
			if err := EncodeName(w, NewName(f.name, EncodingASCII, seed)); err != nil {
				return err
			}
			if err := writeI32(w, f.blobOffset); err != nil {
				return err
			}
		}
	}
	return nil
}
