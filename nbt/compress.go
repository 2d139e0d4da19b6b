package nbt

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

var ErrInvalidCompression = errors.New("nbt: invalid compression format")

type Compression byte

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZlib
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	}
	return fmt.Sprintf("compression(%d)", byte(c))
}

func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "raw":
		return CompressionNone, nil
	case "gzip", "":
		return CompressionGzip, nil
	case "zlib", "deflate":
		return CompressionZlib, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCompression, name)
}

// Sniff reports which compression the stream behind r uses without consuming
// any of it. Anything that is not a gzip or zlib header is treated as raw tag
// data; a raw document always starts with a tag id below 12 so the two can
// not be confused.
func Sniff(r *bufio.Reader) Compression {
	magic, err := r.Peek(2)
	if err != nil || len(magic) < 2 {
		return CompressionNone
	}
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return CompressionGzip
	case magic[0] == 0x78 && (uint16(magic[0])<<8|uint16(magic[1]))%31 == 0:
		return CompressionZlib
	}
	return CompressionNone
}

// NewReader returns a reader yielding the uncompressed tag bytes of source.
// Closing the returned reader does not close source.
func NewReader(source io.Reader) (io.ReadCloser, Compression, error) {
	buffered, ok := source.(*bufio.Reader)
	if !ok {
		buffered = bufio.NewReader(source)
	}
	switch c := Sniff(buffered); c {
	case CompressionGzip:
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, c, fmt.Errorf("%w: gzip header: %s", ErrMalformed, err.Error())
		}
		return gz, c, nil
	case CompressionZlib:
		zr, err := zlib.NewReader(buffered)
		if err != nil {
			return nil, c, fmt.Errorf("%w: zlib header: %s", ErrMalformed, err.Error())
		}
		return zr, c, nil
	default:
		return io.NopCloser(buffered), CompressionNone, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps sink with the given compressor. Close flushes the compressor
// but leaves sink open.
func NewWriter(sink io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{sink}, nil
	case CompressionGzip:
		return gzip.NewWriter(sink), nil
	case CompressionZlib:
		return zlib.NewWriter(sink), nil
	}
	return nil, ErrInvalidCompression
}

// ReadCompressed decodes a root tag from a stream that may or may not be
// compressed.
func ReadCompressed(source io.Reader) (root NamedTag, c Compression, err error) {
	r, c, err := NewReader(source)
	if err != nil {
		return
	}
	defer r.Close()
	root, err = Decode(r)
	return
}

func WriteCompressed(sink io.Writer, root NamedTag, c Compression) (err error) {
	w, err := NewWriter(sink, c)
	if err != nil {
		return
	}
	if err = NewEncoder(w).Encode(root); err != nil {
		return
	}
	return w.Close()
}

func isCorrupt(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.As(err, &corrupt) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, zlib.ErrChecksum) ||
		errors.Is(err, zlib.ErrHeader)
}
