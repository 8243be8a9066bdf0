package assets

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []byte {
	return bytes.Repeat([]byte("mesh vertex data 0123456789 "), 64)
}

func TestCompressRoundTrip(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			data := sample()

			compressed, err := Compress(data, c)
			require.NoError(t, err)
			if c != CompressionNone {
				assert.Less(t, len(compressed), len(data))
			}

			out, err := Decompress(compressed, c)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestCompressEmpty(t *testing.T) {
	compressed, err := Compress(nil, CompressionGzip)
	require.NoError(t, err)

	out, err := Decompress(compressed, CompressionGzip)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDecompress_Limit(t *testing.T) {
	defer func(limit int64) { decompressLimit = limit }(decompressLimit)
	decompressLimit = 1024

	for _, c := range []Compression{CompressionGzip, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			atLimit, err := Compress(bytes.Repeat([]byte{'a'}, 1024), c)
			require.NoError(t, err)
			out, err := Decompress(atLimit, c)
			require.NoError(t, err)
			assert.Len(t, out, 1024)

			overLimit, err := Compress(bytes.Repeat([]byte{'a'}, 1<<20), c)
			require.NoError(t, err)
			_, err = Decompress(overLimit, c)
			require.ErrorIs(t, err, ErrTooLarge)
		})
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]Compression{
		"":     CompressionGzip,
		"gzip": CompressionGzip,
		"none": CompressionNone,
		"zstd": CompressionZstd,
		"lz4":  CompressionLZ4,
	}
	for name, want := range cases {
		got, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("brotli")
	require.ErrorIs(t, err, ErrUnknownCompression)

	var c Compression
	require.NoError(t, c.UnmarshalText([]byte("zstd")))
	assert.Equal(t, CompressionZstd, c)
	require.Error(t, c.UnmarshalText([]byte("rar")))
}

func TestPipeline_Prepare(t *testing.T) {
	data := sample()

	t.Run("gzip by default", func(t *testing.T) {
		p := New(DefaultConfig())

		payload, err := p.Prepare(data, true, "")
		require.NoError(t, err)
		assert.True(t, payload.Compressed)
		assert.Empty(t, payload.Compression)
		assert.Equal(t, len(data), payload.Size)
		assert.Len(t, payload.Checksum, 16)

		out, err := Decode(payload.Data, payload.Compressed, payload.Compression, payload.Checksum)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("uncompressed when not asked", func(t *testing.T) {
		p := New(DefaultConfig())

		payload, err := p.Prepare(data, false, "")
		require.NoError(t, err)
		assert.False(t, payload.Compressed)
		assert.Equal(t, base64.StdEncoding.EncodeToString(data), payload.Data)
	})

	t.Run("named algorithm", func(t *testing.T) {
		p := New(Config{Compression: CompressionLZ4})

		payload, err := p.Prepare(data, true, "")
		require.NoError(t, err)
		assert.Equal(t, "lz4", payload.Compression)

		out, err := Decode(payload.Data, true, payload.Compression, payload.Checksum)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("format conversion is identity", func(t *testing.T) {
		p := New(Config{Compression: CompressionNone, Format: "glb"})

		payload, err := p.Prepare(data, true, "")
		require.NoError(t, err)
		assert.Equal(t, "glb", payload.Format)
		assert.False(t, payload.Compressed)
		assert.Equal(t, Encode(data), payload.Data)

		payload, err = p.Prepare(data, false, "png")
		require.NoError(t, err)
		assert.Equal(t, "png", payload.Format)
	})
}

func TestDecode_Checksum(t *testing.T) {
	data := []byte("texture")
	encoded := Encode(data)

	_, err := Decode(encoded, false, "", Checksum([]byte("other")))
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = Decode(encoded, false, "", "not-hex")
	require.ErrorIs(t, err, ErrChecksumMismatch)

	out, err := Decode(encoded, false, "", "")
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = Decode("%%%", false, "", "")
	require.Error(t, err)
}
