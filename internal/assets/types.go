// Package assets prepares binary assets for upload: optional compression,
// a CRC-64/NVME checksum of the original bytes and base64 encoding.
//
// Format conversion is not implemented. Requesting a target format leaves
// the bytes unchanged; the format is still forwarded to the server.
package assets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

// ErrChecksumMismatch is returned by Decode when the payload does not match its checksum.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Payload is an asset ready to be placed in an upload request.
type Payload struct {
	// Data is the standard base64 encoding of the possibly compressed bytes
	Data       string
	Compressed bool
	// Compression is the wire name of the algorithm, empty for gzip and none
	Compression string
	Format      string
	Checksum    string
	// Size is the length of the original bytes
	Size int
}

// Pipeline turns raw asset bytes into upload payloads.
type Pipeline struct {
	config Config
}

// New creates a new asset pipeline with the given configuration
func New(config Config) *Pipeline {
	return &Pipeline{
		config: config,
	}
}

// Prepare builds the payload for data. compress selects whether the
// configured compression is applied; format overrides the configured
// target format when not empty.
func (p *Pipeline) Prepare(data []byte, compress bool, format string) (*Payload, error) {
	if format == "" {
		format = p.config.Format
	}

	converted := Convert(data, format)

	payload := &Payload{
		Format:   format,
		Checksum: Checksum(converted),
		Size:     len(converted),
	}

	body := converted
	if compress && p.config.Compression != CompressionNone {
		var err error
		body, err = Compress(converted, p.config.Compression)
		if err != nil {
			return nil, err
		}
		payload.Compressed = true
		if p.config.Compression != CompressionGzip {
			payload.Compression = p.config.Compression.String()
		}
	}

	payload.Data = base64.StdEncoding.EncodeToString(body)

	log.Debug().
		Int("size", payload.Size).
		Int("encoded_size", len(payload.Data)).
		Bool("compressed", payload.Compressed).
		Str("compression", p.config.Compression.String()).
		Msg("prepared asset payload")

	return payload, nil
}

// Convert is the format conversion hook. It returns data unchanged.
func Convert(data []byte, format string) []byte {
	if format != "" {
		log.Warn().Str("format", format).Msg("format conversion is not implemented, uploading unchanged bytes")
	}
	return data
}

// Checksum returns the CRC-64/NVME of data as 16 hex digits.
func Checksum(data []byte) string {
	h := crc64nvme.New()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Encode returns the standard base64 encoding used for asset_data fields.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Prepare on the receiving side. An empty checksum is not
// verified.
func Decode(data string, compressed bool, compression, checksum string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	if compressed {
		c, err := ParseCompression(compression)
		if err != nil {
			return nil, err
		}
		if raw, err = Decompress(raw, c); err != nil {
			return nil, err
		}
	}

	if checksum != "" {
		want, err := strconv.ParseUint(checksum, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid checksum %q", ErrChecksumMismatch, checksum)
		}
		h := crc64nvme.New()
		h.Write(raw)
		if got := h.Sum64(); got != want {
			return nil, fmt.Errorf("%w: got %016x want %016x", ErrChecksumMismatch, got, want)
		}
	}

	return raw, nil
}
