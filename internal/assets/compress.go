package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	// ErrUnknownCompression is returned for a compression name that is not supported.
	ErrUnknownCompression = errors.New("unknown compression")
	// ErrTooLarge is returned when a payload decompresses to more than
	// MaxDecompressedSize bytes.
	ErrTooLarge = errors.New("decompressed payload too large")
)

// MaxDecompressedSize caps the output of Decompress. It matches the largest
// message the server accepts.
const MaxDecompressedSize = 64 << 20

var decompressLimit int64 = MaxDecompressedSize

// Compression identifies the algorithm applied to an uploaded payload. The
// names are sent on the wire in the upload request.
type Compression uint8

const (
	CompressionNone Compression = iota
	// CompressionGzip is the default and is implied by compressed=true with
	// no compression field.
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression name. The empty string is gzip.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "", "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// UnmarshalText lets Compression be read from YAML and flags.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Compress returns data compressed with c. Every algorithm produces a self
// describing stream so Decompress needs no size hint.
func Compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		return compressGzip(data)
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		return compressLZ4(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

// Decompress reverses Compress. Output larger than MaxDecompressedSize fails
// with ErrTooLarge.
func Decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer r.Close()
		return readAll("gzip", r)
	case CompressionZstd:
		d, err := zstd.NewReader(bytes.NewReader(data),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(decompressLimit)+1))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		defer d.Close()
		out, err := readAll("zstd", d)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("zstd decompress: %w: limit %d bytes", ErrTooLarge, decompressLimit)
		}
		return out, err
	case CompressionLZ4:
		return readAll("lz4", lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCompression, c)
	}
}

func compressGzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}

	return buf.Bytes(), nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	return buf.Bytes(), nil
}

func readAll(name string, r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, decompressLimit+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", name, err)
	}
	if int64(len(out)) > decompressLimit {
		return nil, fmt.Errorf("%s decompress: %w: limit %d bytes", name, ErrTooLarge, decompressLimit)
	}
	return out, nil
}

// zstd.Encoder is safe for concurrent use with EncodeAll.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("assets: zstd encoder initialization failed: " + err.Error())
	}
}
