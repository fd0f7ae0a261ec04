// Package lodfile reads and writes .plod containers holding a LOD stream.
//
// Layout (little-endian):
//
//	magic       "PLOD"
//	version     uint8
//	compression uint8 (0 = none, 1 = zstd)
//	payload     stream body, compressed as flagged
//	checksum    uint64 xxhash64 of the uncompressed payload
package lodfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/midgard-lod/pkg/lod"
)

const (
	magic   = "PLOD"
	version = 1

	headerSize  = 6
	trailerSize = 8
)

// Container errors.
var (
	ErrInvalidMagic           = errors.New("not a .plod file")
	ErrUnsupportedVersion     = errors.New("unsupported .plod version")
	ErrUnsupportedCompression = errors.New("unsupported .plod compression")
	ErrChecksum               = errors.New(".plod checksum mismatch")
	ErrTruncated              = errors.New("truncated .plod data")
	ErrCorrupt                = errors.New("corrupt .plod stream")
)

// Compression selects how the payload is stored.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// String returns the config name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a config name to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, name)
	}
}

// Info describes a container without its stream.
type Info struct {
	Version     uint8
	Compression Compression
	PayloadSize int // uncompressed
	StoredSize  int // as written
	Checksum    uint64
}

// Encode serializes st into a .plod container.
func Encode(st *lod.Stream, comp Compression) ([]byte, error) {
	payload := encodeStream(st)

	var stored []byte
	switch comp {
	case CompressionNone:
		stored = payload
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		stored = enc.EncodeAll(payload, nil)
		enc.Close()
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, comp)
	}

	var out bytes.Buffer
	out.Grow(headerSize + len(stored) + trailerSize)
	out.WriteString(magic)
	out.WriteByte(version)
	out.WriteByte(byte(comp))
	out.Write(stored)
	_ = binary.Write(&out, binary.LittleEndian, xxhash.Sum64(payload))
	return out.Bytes(), nil
}

// Decode parses a .plod container and verifies its checksum.
func Decode(data []byte) (*lod.Stream, Info, error) {
	info, payload, err := unpack(data)
	if err != nil {
		return nil, info, err
	}
	st, err := decodeStream(payload)
	if err != nil {
		return nil, info, err
	}
	return st, info, nil
}

// Inspect verifies a container and returns its Info without decoding the stream.
func Inspect(data []byte) (Info, error) {
	info, _, err := unpack(data)
	return info, err
}

func unpack(data []byte) (Info, []byte, error) {
	var info Info
	if len(data) < 4 || string(data[:4]) != magic {
		return info, nil, ErrInvalidMagic
	}
	if len(data) < headerSize+trailerSize {
		return info, nil, ErrTruncated
	}
	info.Version = data[4]
	if info.Version != version {
		return info, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, info.Version)
	}
	info.Compression = Compression(data[5])

	stored := data[headerSize : len(data)-trailerSize]
	info.StoredSize = len(stored)
	info.Checksum = binary.LittleEndian.Uint64(data[len(data)-trailerSize:])

	var payload []byte
	switch info.Compression {
	case CompressionNone:
		payload = stored
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return info, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(stored, nil)
		if err != nil {
			return info, nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	default:
		return info, nil, fmt.Errorf("%w: %d", ErrUnsupportedCompression, info.Compression)
	}
	info.PayloadSize = len(payload)

	if sum := xxhash.Sum64(payload); sum != info.Checksum {
		return info, nil, fmt.Errorf("%w: stored %016x, computed %016x", ErrChecksum, info.Checksum, sum)
	}
	return info, payload, nil
}

// WriteFile encodes st and writes it to path.
func WriteFile(path string, st *lod.Stream, comp Compression) error {
	data, err := Encode(st, comp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes the container at path.
func ReadFile(path string) (*lod.Stream, Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("reading %s: %w", path, err)
	}
	st, info, err := Decode(data)
	if err != nil {
		return nil, info, fmt.Errorf("decoding %s: %w", path, err)
	}
	return st, info, nil
}
