package config

import "fmt"

// VectorProvider identifies the vector store backing.
type VectorProvider string

const (
	VectorProviderChromem  VectorProvider = "chromem"
	VectorProviderQdrant   VectorProvider = "qdrant"
	VectorProviderPinecone VectorProvider = "pinecone"
)

// VectorStoreConfig configures the per-category vector collections.
type VectorStoreConfig struct {
	// Provider selects the store: chromem (embedded, persistent dir),
	// qdrant (gRPC), pinecone (managed). Default: chromem
	Provider VectorProvider `yaml:"provider,omitempty"`

	// Path is the persistence directory for the chromem provider.
	// Default: <data_dir>/vector
	Path string `yaml:"path,omitempty"`

	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone PineconeConfig `yaml:"pinecone,omitempty"`
}

// QdrantConfig configures the qdrant vector store client.
type QdrantConfig struct {
	// Host of the qdrant gRPC endpoint. Default: localhost
	Host string `yaml:"host,omitempty"`

	// Port of the qdrant gRPC endpoint. Default: 6334
	Port int `yaml:"port,omitempty"`

	// APIKey for qdrant cloud.
	APIKey string `yaml:"api_key,omitempty"`

	// UseTLS enables transport security (required for qdrant cloud).
	UseTLS bool `yaml:"use_tls,omitempty"`
}

// PineconeConfig configures the pinecone vector store client.
type PineconeConfig struct {
	// APIKey authenticates against pinecone. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty"`

	// IndexHost is the host of the target serverless index.
	IndexHost string `yaml:"index_host,omitempty"`
}

// SetDefaults applies default values to VectorStoreConfig.
func (c *VectorStoreConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = VectorProviderChromem
	}
	if c.Path == "" {
		c.Path = "./data/vector"
	}
	if c.Qdrant.Host == "" {
		c.Qdrant.Host = "localhost"
	}
	if c.Qdrant.Port == 0 {
		c.Qdrant.Port = 6334
	}
}

// Validate checks the vector store configuration.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case VectorProviderChromem:
		if c.Path == "" {
			return fmt.Errorf("path is required for the chromem provider")
		}
	case VectorProviderQdrant:
		if c.Qdrant.Host == "" {
			return fmt.Errorf("qdrant.host is required for the qdrant provider")
		}
		if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
			return fmt.Errorf("qdrant.port must be a valid port, got %d", c.Qdrant.Port)
		}
	case VectorProviderPinecone:
		if c.Pinecone.APIKey == "" {
			return fmt.Errorf("pinecone.api_key is required for the pinecone provider")
		}
		if c.Pinecone.IndexHost == "" {
			return fmt.Errorf("pinecone.index_host is required for the pinecone provider")
		}
	default:
		return fmt.Errorf("invalid vector provider %q (valid: chromem, qdrant, pinecone)", c.Provider)
	}
	return nil
}
