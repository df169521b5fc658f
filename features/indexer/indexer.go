package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultBatchSize is applied to both embedding chunks and write sub-batches
// when the caller does not override it.
const DefaultBatchSize = 100

// Document is a single unit of content to be indexed. Metadata is
// caller-owned and never mutated by the pipeline.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// indexedDocument is the transient, embedded form of a Document. It exists
// only for the duration of one Index call.
type indexedDocument struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]any
}

// TableConfig maps the pipeline onto an existing table. Exactly one of
// MetadataColumns and IgnoreMetadataColumns may be set.
type TableConfig struct {
	Schema             string
	Table              string
	IDColumn           string
	ContentColumn      string
	EmbeddingColumn    string
	MetadataJSONColumn string

	// MetadataColumns is the allow-list of per-document metadata columns,
	// written in this order after the fixed columns.
	MetadataColumns []string

	// IgnoreMetadataColumns is the deny-list alternative: every live column
	// except the fixed ones and these becomes a metadata column.
	IgnoreMetadataColumns []string
}

// WithDefaults fills in the conventional schema and column names.
func (c TableConfig) WithDefaults() TableConfig {
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	if c.ContentColumn == "" {
		c.ContentColumn = "content"
	}
	if c.EmbeddingColumn == "" {
		c.EmbeddingColumn = "embedding"
	}
	return c
}

// Options tune a single Index call. BatchSize applies to both the embedding
// chunking and the write sub-batching.
type Options struct {
	BatchSize int `json:"batchSize,omitempty"`
}

type Result struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

// Embedder turns a batch of texts into embedding vectors, one per input,
// in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// Indexer embeds documents and upserts them into a pgvector-backed table.
// The *sql.DB pool is owned by the caller; the Indexer never closes it.
type Indexer struct {
	db       *sql.DB
	embedder Embedder
	cfg      TableConfig

	// Serializes Index calls; the reconciled metadata column set is
	// per-call state and concurrent calls against one table are not
	// supported.
	mu sync.Mutex
}

func New(db *sql.DB, embedder Embedder, cfg TableConfig) (*Indexer, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database handle is required", ErrConfiguration)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrConfiguration)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: table name is required", ErrConfiguration)
	}
	if len(cfg.MetadataColumns) > 0 && len(cfg.IgnoreMetadataColumns) > 0 {
		return nil, fmt.Errorf("%w: metadata allow-list and ignore-list are mutually exclusive", ErrConfiguration)
	}
	return &Indexer{db: db, embedder: embedder, cfg: cfg.WithDefaults()}, nil
}

// Index validates the live table schema, generates embeddings for every
// document and upserts them keyed on the id column. The returned count
// equals len(docs); re-indexing documents with the same ids is idempotent.
//
// Each write sub-batch is its own atomic unit: a failure mid-way leaves
// earlier sub-batches committed and surfaces ErrWrite.
func (ix *Indexer) Index(ctx context.Context, docs []Document, opts *Options) (*Result, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batchSize := DefaultBatchSize
	if opts != nil && opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}

	// Reconciled fresh on every call so schema drift is picked up.
	cfg, err := ix.reconcileSchema(ctx)
	if err != nil {
		return nil, err
	}

	// All chunks are embedded before any write happens.
	indexed, err := ix.generateEmbeddings(ctx, docs, batchSize)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(indexed); start += batchSize {
		end := start + batchSize
		if end > len(indexed) {
			end = len(indexed)
		}
		if err := ix.writeBatch(ctx, cfg, indexed[start:end]); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "documents indexed", "schema", cfg.Schema, "table", cfg.Table, "count", len(docs))
	return &Result{Success: true, Count: len(docs)}, nil
}
