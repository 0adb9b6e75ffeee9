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

// Package vector abstracts the dense vector stores behind one Provider
// interface. The embed-index pipeline stage writes chunk vectors through
// it and the retrieval engine queries it; collections map to document
// categories (regulation, curriculum).
package vector

import (
	"context"
	"fmt"
)

// Document is one vector store entry.
type Document struct {
	// ID uniquely identifies the entry within its collection.
	ID string

	// Content is the chunk text, stored alongside the vector so search
	// results carry it back without a second lookup.
	Content string

	// Vector is the pre-computed embedding.
	Vector []float32

	// Metadata holds filterable chunk attributes.
	Metadata map[string]any
}

// Result is one similarity search hit.
type Result struct {
	// ID of the matched document.
	ID string

	// Score is the similarity score, higher is closer.
	Score float32

	// Content is the stored chunk text.
	Content string

	// Vector is the stored embedding, when the provider returns it.
	Vector []float32

	// Metadata holds the stored chunk attributes.
	Metadata map[string]any
}

// Provider is the vector store interface.
type Provider interface {
	// Upsert adds or updates a document with its vector.
	Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error

	// UpsertBatch adds or updates many documents in one call.
	UpsertBatch(ctx context.Context, collection string, docs []Document) error

	// Search finds the topK most similar vectors.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// SearchWithFilter combines vector similarity with metadata filtering.
	SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error)

	// Delete removes a document by ID.
	Delete(ctx context.Context, collection string, id string) error

	// DeleteByFilter removes all documents matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error

	// CreateCollection creates a collection sized for vectorDimension.
	CreateCollection(ctx context.Context, collection string, vectorDimension int) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Name returns the provider name.
	Name() string

	// Close releases provider resources.
	Close() error
}

// NilProvider is the no-op provider used when no vector store is
// configured. Searches come back empty; writes fail loudly.
type NilProvider struct{}

func (NilProvider) Upsert(ctx context.Context, collection string, id string, vector []float32, metadata map[string]any) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) UpsertBatch(ctx context.Context, collection string, docs []Document) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	return nil, nil
}

func (NilProvider) SearchWithFilter(ctx context.Context, collection string, vector []float32, topK int, filter map[string]any) ([]Result, error) {
	return nil, nil
}

func (NilProvider) Delete(ctx context.Context, collection string, id string) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) DeleteByFilter(ctx context.Context, collection string, filter map[string]any) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) CreateCollection(ctx context.Context, collection string, vectorDimension int) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) DeleteCollection(ctx context.Context, collection string) error {
	return fmt.Errorf("no vector store configured")
}

func (NilProvider) Name() string { return "nil" }

func (NilProvider) Close() error { return nil }

// Ensure NilProvider implements Provider.
var _ Provider = NilProvider{}
