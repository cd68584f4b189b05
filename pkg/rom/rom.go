// Package rom loads program images from disk, unpacking common archive and
// compression formats by file extension.
package rom

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"gochip8/pkg/cpu"
)

var (
	ErrEmptyArchive      = errors.New("archive contains no files")
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)

// Load reads the file at path and unpacks it according to its extension:
// .zip and .7z yield their first file, .gz, .xz, .zst and .lz4 are
// decompressed, and anything else is returned as is. The result is validated
// against the interpreter's program area.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data, err = Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// Decode unpacks data as the format named by ext (case-insensitive, with the
// leading dot).
func Decode(ext string, data []byte) ([]byte, error) {
	var decoder io.Reader
	var err error

	switch strings.ToLower(ext) {
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		for _, f := range zr.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return readLimited(rc)
		}
		return nil, ErrEmptyArchive

	case ".7z":
		r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, err
		}
		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return readLimited(rc)
		}
		return nil, ErrEmptyArchive

	case ".gz":
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		decoder = gr

	case ".xz":
		decoder, err = xz.NewReader(bytes.NewReader(data))

	case ".zst":
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		decoder = zr

	case ".lz4":
		decoder = lz4.NewReader(bytes.NewReader(data))

	case ".rar", ".bz2", ".tar":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)

	default:
		return data, nil
	}

	if err != nil {
		return nil, err
	}
	return readLimited(decoder)
}

// readLimited reads r until EOF, stopping one byte past the program area so
// an oversized or highly compressed payload is never fully expanded.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, cpu.MaxProgramSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > cpu.MaxProgramSize {
		return nil, fmt.Errorf("%w: more than %d bytes", cpu.ErrProgramTooLarge, cpu.MaxProgramSize)
	}
	return data, nil
}

// Read reads a raw program image from r.
func Read(r io.Reader) ([]byte, error) {
	return readLimited(r)
}

// Validate checks that data fits in the program area.
func Validate(data []byte) error {
	if len(data) > cpu.MaxProgramSize {
		return fmt.Errorf("%w: %d bytes > %d bytes", cpu.ErrProgramTooLarge, len(data), cpu.MaxProgramSize)
	}
	return nil
}

// Fingerprint identifies a program image in logs.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
