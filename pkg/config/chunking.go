package config

import "fmt"

// ChunkingConfig configures the structure-aware chunkers.
type ChunkingConfig struct {
	// MaxTokens is the per-chunk token budget; oversized chunks are
	// split sentence-aware. Default: 8000
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// SubChunkSize is the target token size for sub-chunks.
	// Default: 1024
	SubChunkSize int `yaml:"sub_chunk_size,omitempty"`

	// SubChunkOverlap is the token overlap between consecutive
	// sub-chunks. Default: 200
	SubChunkOverlap int `yaml:"sub_chunk_overlap,omitempty"`

	// MaxHeaderLevel bounds how deep markdown headers split sections.
	// Default: 4
	MaxHeaderLevel int `yaml:"max_header_level,omitempty"`

	// Encoding is the BPE encoding used for token counting.
	// Default: cl100k_base
	Encoding string `yaml:"encoding,omitempty"`
}

// SetDefaults applies default values to ChunkingConfig.
func (c *ChunkingConfig) SetDefaults() {
	if c.MaxTokens == 0 {
		c.MaxTokens = 8000
	}
	if c.SubChunkSize == 0 {
		c.SubChunkSize = 1024
	}
	if c.SubChunkOverlap == 0 {
		c.SubChunkOverlap = 200
	}
	if c.MaxHeaderLevel == 0 {
		c.MaxHeaderLevel = 4
	}
	if c.Encoding == "" {
		c.Encoding = "cl100k_base"
	}
}

// Validate checks the chunking configuration.
func (c *ChunkingConfig) Validate() error {
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", c.MaxTokens)
	}
	if c.SubChunkSize < 1 {
		return fmt.Errorf("sub_chunk_size must be at least 1, got %d", c.SubChunkSize)
	}
	if c.SubChunkOverlap < 0 {
		return fmt.Errorf("sub_chunk_overlap cannot be negative")
	}
	if c.SubChunkOverlap >= c.SubChunkSize {
		return fmt.Errorf("sub_chunk_overlap (%d) must be smaller than sub_chunk_size (%d)",
			c.SubChunkOverlap, c.SubChunkSize)
	}
	if c.MaxHeaderLevel < 1 || c.MaxHeaderLevel > 6 {
		return fmt.Errorf("max_header_level must be between 1 and 6, got %d", c.MaxHeaderLevel)
	}
	return nil
}
