// Package mentor provides the knowledge-processing and retrieval substrate
// behind a university student-advisor agent.
//
// Mentor turns heterogeneous source documents (decision PDFs, curriculum
// spreadsheets, exported DOCX files) into a queryable knowledge base and
// answers retrieval requests with structured, reranked passages. It covers
// two halves of that job:
//
//   - A resumable multi-stage document pipeline: parse, clean, normalize,
//     quality-filter, LLM markdown repair, metadata extraction, hierarchical
//     chunking, and embedding into per-category vector collections. Every
//     document keeps a JSON state sidecar with per-stage hashes, costs, and
//     manual-edit locks, so reruns only redo what changed.
//
//   - A blended retrieval engine: query refinement, optional HyDE expansion,
//     dense vector search plus a BM25 lexical index, deduplication, remote
//     reranking, program-disambiguation filtering, and structured result
//     formatting, exposed to agents as tools over MCP and HTTP.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/mentorvn/mentor/cmd/mentor@latest
//
// Ingest a category of documents:
//
//	mentor pipeline run --category regulation --all
//
// Ask a question:
//
//	mentor query "điều kiện tốt nghiệp"
//
// Serve the tool host:
//
//	mentor serve --http :8080 --mcp
//
// # Using as a Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/mentorvn/mentor/pkg/pipeline"
//	    "github.com/mentorvn/mentor/pkg/retrieval"
//	    "github.com/mentorvn/mentor/pkg/config"
//	)
//
// # Architecture
//
// Data flow at ingest time:
//
//	raw file → parse → clean → normalize → filter → fix → metadata
//	         → chunk → embed-index → vector collection
//
// At query time:
//
//	query → router → retriever (dense ⊕ lexical → dedupe → rerank
//	      → program filter) → formatter → structured result
//
// The pipeline is single-writer per document; retrieval components are
// stateless per request and safe to share once built.
package mentor
