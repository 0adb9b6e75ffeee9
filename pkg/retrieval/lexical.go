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

package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mentorvn/mentor/pkg/chunker"
	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/utils"
)

// chunksArtifact is the chunk-stage output file inside each processed
// document directory. The lexical index mirrors exactly what the
// embed-index stage pushed to the vector store, chunk IDs included, so
// merged dense and lexical hits deduplicate by ID.
const chunksArtifact = "chunks.json"

const lexicalSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
	content,
	chunk_id UNINDEXED,
	collection UNINDEXED,
	document_id UNINDEXED,
	metadata UNINDEXED,
	tokenize = 'unicode61 remove_diacritics 2'
);`

// LexicalIndex is a BM25 index over chunk text, backed by SQLite FTS5.
// The unicode61 tokenizer with remove_diacritics 2 matches Vietnamese
// queries typed without diacritics against diacritized content.
//
// LexicalIndex implements LexicalSearcher.
type LexicalIndex struct {
	db   *sql.DB
	path string
}

// OpenLexicalIndex opens (and creates if needed) an FTS5 index at path.
// ":memory:" is accepted for tests and ephemeral setups.
func OpenLexicalIndex(path string) (*LexicalIndex, error) {
	dsn := path
	if path != ":memory:" {
		if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("create lexical index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open lexical index %s: %w", path, err)
	}

	// An in-memory SQLite database is private to its connection, so the
	// pool must not grow past one or statements land in empty databases.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(lexicalSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create FTS5 table: %w", err)
	}

	return &LexicalIndex{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (ix *LexicalIndex) Close() error {
	return ix.db.Close()
}

// Rebuild replaces the collection's rows with the given chunks in one
// transaction. Chunks without text are skipped.
func (ix *LexicalIndex) Rebuild(ctx context.Context, collection string, chunks []chunker.Chunk) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lexical rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks_fts WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("clear collection %s: %w", collection, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks_fts (content, chunk_id, collection, document_id, metadata)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lexical insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %s: %w", c.ID, err)
		}
		documentID := metaString(c.Metadata, "document_id")
		if _, err := stmt.ExecContext(ctx,
			c.Text, c.ID, collection, documentID, string(metaJSON)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lexical rebuild: %w", err)
	}

	slog.Debug("Rebuilt lexical collection",
		"collection", collection, "chunks", inserted)
	return nil
}

// Count returns the number of indexed chunks in a collection.
func (ix *LexicalIndex) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx,
		"SELECT count(*) FROM chunks_fts WHERE collection = ?", collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return n, nil
}

// Search runs a BM25 query over one collection. Raw bm25() ranks are
// negative (more negative is better); they are min-max normalized over
// the candidate set so lexical scores land in [0, 1] and blend with
// dense similarity scores.
func (ix *LexicalIndex) Search(ctx context.Context, collection, query string, topK int) ([]Node, error) {
	ftsQuery, err := prepareFTSQuery(query)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 20
	}

	rows, err := ix.db.QueryContext(ctx, `
SELECT chunk_id, document_id, content, metadata, bm25(chunks_fts) AS rank
FROM chunks_fts
WHERE chunks_fts MATCH ? AND collection = ?
ORDER BY rank
LIMIT ?`, ftsQuery, collection, topK)
	if err != nil {
		return nil, fmt.Errorf("lexical search in %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []Node
	var ranks []float64
	for rows.Next() {
		var chunkID, documentID, content, metaJSON string
		var rank float64
		if err := rows.Scan(&chunkID, &documentID, &content, &metaJSON, &rank); err != nil {
			return nil, fmt.Errorf("scan lexical row: %w", err)
		}

		md := map[string]any{}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &md); err != nil {
				slog.Warn("Dropping unreadable chunk metadata from lexical index",
					"chunk_id", chunkID, "error", err)
				md = map[string]any{}
			}
		}
		if documentID != "" {
			md["document_id"] = documentID
		}

		nodes = append(nodes, Node{ID: chunkID, Text: content, Metadata: md})
		ranks = append(ranks, -rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical rows: %w", err)
	}

	normalizeScores(nodes, ranks)
	return nodes, nil
}

// normalizeScores min-max normalizes raw relevance values onto node
// scores. A degenerate candidate set (single hit, or all ties) scores
// 1.0 across the board.
func normalizeScores(nodes []Node, relevance []float64) {
	if len(nodes) == 0 {
		return
	}
	min, max := relevance[0], relevance[0]
	for _, v := range relevance {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	for i := range nodes {
		score := 1.0
		if max > min {
			score = (relevance[i] - min) / (max - min)
		}
		nodes[i].Score = score
	}
}

// prepareFTSQuery escapes FTS5 operator characters outside quoted
// phrases and OR-joins bare multi-term queries for recall.
func prepareFTSQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("lexical query cannot be empty")
	}

	var b strings.Builder
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch ch {
		case '"':
			inQuote = !inQuote
			b.WriteByte(ch)
		case '*', '(', ')', '{', '}', '[', ']', '^', ':':
			if !inQuote {
				b.WriteByte('"')
				b.WriteByte(ch)
				b.WriteByte('"')
			} else {
				b.WriteByte(ch)
			}
		default:
			b.WriteByte(ch)
		}
	}

	// Bare multi-term queries are OR-joined for recall. Queries carrying
	// quotes or explicit operators keep their own structure.
	escaped := b.String()
	upper := strings.ToUpper(escaped)
	if !strings.Contains(escaped, `"`) &&
		!strings.Contains(upper, " AND ") && !strings.Contains(upper, " OR ") {
		terms := strings.Fields(escaped)
		if len(terms) > 1 {
			escaped = strings.Join(terms, " OR ")
		}
	}
	return escaped, nil
}

// IndexPipelineArtifacts rebuilds every collection from the chunk
// artifacts under the pipeline's processed directories. Collections are
// named after pipeline categories; documents that have not reached the
// chunk stage are silently absent.
func (ix *LexicalIndex) IndexPipelineArtifacts(ctx context.Context, cfg *config.PipelineConfig) error {
	for category, cat := range cfg.Categories {
		chunks, err := loadCategoryChunks(cat.ProcessedDir)
		if err != nil {
			return fmt.Errorf("load chunks for %s: %w", category, err)
		}
		if err := ix.Rebuild(ctx, category, chunks); err != nil {
			return err
		}
		slog.Info("Indexed lexical collection",
			"collection", category, "chunks", len(chunks), "path", ix.path)
	}
	return nil
}

// loadCategoryChunks reads every <processedDir>/<doc>/chunks.json. A
// missing processed directory yields an empty corpus, not an error.
func loadCategoryChunks(processedDir string) ([]chunker.Chunk, error) {
	entries, err := os.ReadDir(processedDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var all []chunker.Chunk
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(processedDir, entry.Name(), chunksArtifact)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		var chunks []chunker.Chunk
		if err := json.Unmarshal(data, &chunks); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}
