// Copyright 2025 Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"fmt"

	"github.com/mentorvn/mentor/pkg/config"
)

// NewProvider creates a vector store provider from configuration.
// A nil config yields the NilProvider, which searches empty and rejects
// writes.
func NewProvider(cfg *config.VectorStoreConfig) (Provider, error) {
	if cfg == nil {
		return NilProvider{}, nil
	}

	switch cfg.Provider {
	case config.VectorProviderChromem:
		return NewChromemProvider(cfg.Path)
	case config.VectorProviderQdrant:
		return NewQdrantProvider(cfg.Qdrant)
	case config.VectorProviderPinecone:
		return NewPineconeProvider(cfg.Pinecone)
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Provider)
	}
}
