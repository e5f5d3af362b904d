// SPDX-License-Identifier: MIT
// Copyright (c) 2026 wrenpak
// Source: github.com/wrenpak/pak

package pak

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// OodleCodec is the pluggable capability the core delegates to for
// MethodOodle payloads. The core never links an Oodle implementation
// itself; callers inject one (or leave it nil to reject Oodle entries).
type OodleCodec interface {
	// Compress compresses src and returns the compressed bytes.
	Compress(src []byte, level int) ([]byte, error)
	// Decompress decompresses src into a buffer of exactly
	// uncompressedSize bytes.
	Decompress(src []byte, uncompressedSize int) ([]byte, error)
	// MaxCompressedSize returns a safe upper bound on the compressed size
	// of an uncompressedSize-byte input.
	MaxCompressedSize(uncompressedSize int) int
}

// decompressBlock decompresses exactly len(out) bytes read from in into
// out, dispatching on method. It loops on short reads until out is full or
// the source returns zero bytes with no error, per the spec's decompress
// contract.
func decompressBlock(method Method, in io.Reader, out []byte, oodle OodleCodec) (int, error) {
	switch method {
	case MethodNone:
		return readFull(in, out)
	case MethodZlib:
		return decompressDeflateFamily(zlibReader, in, out)
	case MethodGzip:
		return decompressDeflateFamily(gzipReader, in, out)
	case MethodOodle:
		if oodle == nil {
			return 0, fmt.Errorf("%w: %s", ErrMethodNotImplemented, MethodOodle)
		}
		raw, err := io.ReadAll(in)
		if err != nil {
			return 0, fmt.Errorf("%w: read oodle block: %v", ErrSerializer, err)
		}
		decoded, err := oodle.Decompress(raw, len(out))
		if err != nil {
			return 0, fmt.Errorf("%w: oodle decompress: %v", ErrSerializer, err)
		}
		return copy(out, decoded), nil
	case MethodLZ4, MethodCustom:
		return 0, fmt.Errorf("%w: %s", ErrMethodNotImplemented, method)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// compressBlock compresses in[offset:offset+length] and writes the
// compressed bytes to out, returning the number of bytes written.
func compressBlock(method Method, in []byte, offset, length int, out io.Writer, oodle OodleCodec) (int, error) {
	src := in[offset : offset+length]

	switch method {
	case MethodNone:
		return out.Write(src)
	case MethodZlib:
		return compressDeflateFamily(newZlibWriter, src, out)
	case MethodGzip:
		return compressDeflateFamily(newGzipWriter, src, out)
	case MethodOodle:
		if oodle == nil {
			return 0, fmt.Errorf("%w: %s", ErrMethodNotImplemented, MethodOodle)
		}
		compressed, err := oodle.Compress(src, 0)
		if err != nil {
			return 0, fmt.Errorf("%w: oodle compress: %v", ErrSerializer, err)
		}
		return out.Write(compressed)
	case MethodLZ4, MethodCustom:
		return 0, fmt.Errorf("%w: %s", ErrMethodNotImplemented, method)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// readFull reads into out until it is full, looping on short reads and
// treating a zero-byte, nil-error read as end of input. Input that ends
// after at least one byte yields the short count with a nil error; input
// that ends before any byte is reported as io.EOF.
func readFull(in io.Reader, out []byte) (int, error) {
	total := 0
	for total < len(out) {
		n, err := in.Read(out[total:])
		total += n
		if err == io.EOF && total == 0 {
			return 0, io.EOF
		}
		if err != nil && err != io.EOF {
			return total, err
		}
		if err == io.EOF || n == 0 {
			break
		}
	}
	return total, nil
}

type deflateReaderFactory func(io.Reader) (io.ReadCloser, error)

func zlibReader(r io.Reader) (io.ReadCloser, error) { return zlib.NewReader(r) }
func gzipReader(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }

// decompressDeflateFamily decompresses a zlib/gzip stream, looping until
// out is full or the underlying reader is exhausted.
func decompressDeflateFamily(factory deflateReaderFactory, in io.Reader, out []byte) (int, error) {
	zr, err := factory(in)
	if err != nil {
		return 0, fmt.Errorf("%w: open compressed stream: %v", ErrSerializer, err)
	}
	defer func() { _ = zr.Close() }()

	total := 0
	for total < len(out) {
		n, err := zr.Read(out[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return total, fmt.Errorf("%w: decompress: %v", ErrSerializer, err)
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

type deflateWriterFactory func(io.Writer) (io.WriteCloser, error)

func newZlibWriter(w io.Writer) (io.WriteCloser, error) { return zlib.NewWriter(w), nil }
func newGzipWriter(w io.Writer) (io.WriteCloser, error) { return gzip.NewWriter(w), nil }

// compressDeflateFamily compresses src into a scratch buffer via factory
// and copies the result to out, returning the compressed length.
func compressDeflateFamily(factory deflateWriterFactory, src []byte, out io.Writer) (int, error) {
	var buf bytes.Buffer
	zw, err := factory(&buf)
	if err != nil {
		return 0, fmt.Errorf("%w: open compressor: %v", ErrSerializer, err)
	}
	if _, err := zw.Write(src); err != nil {
		return 0, fmt.Errorf("%w: compress: %v", ErrSerializer, err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("%w: flush compressor: %v", ErrSerializer, err)
	}
	return out.Write(buf.Bytes())
}
