package assets

type Config struct {
	// Compression applied before upload when the caller asks for it
	Compression Compression
	// Target format passed through to the server, e.g. "glb" or "png"
	Format string
}

// DefaultConfig returns gzip compression and no format conversion.
func DefaultConfig() Config {
	return Config{
		Compression: CompressionGzip,
	}
}
