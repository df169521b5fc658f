package retriever

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"vectorpg/features/indexer"
)

// DistanceStrategy is the pgvector operator used to rank results.
type DistanceStrategy string

const (
	CosineDistance    DistanceStrategy = "<=>"
	EuclideanDistance DistanceStrategy = "<->"
	InnerProduct      DistanceStrategy = "<#>"
)

const DefaultLimit = 4

type Result struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`
}

// Retriever runs nearest-neighbor queries against the same table layout the
// indexer writes to.
type Retriever struct {
	db       *sql.DB
	embedder indexer.Embedder
	cfg      indexer.TableConfig
	strategy DistanceStrategy
}

func New(db *sql.DB, embedder indexer.Embedder, cfg indexer.TableConfig, strategy DistanceStrategy) (*Retriever, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database handle is required", indexer.ErrConfiguration)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", indexer.ErrConfiguration)
	}
	if cfg.Table == "" {
		return nil, fmt.Errorf("%w: table name is required", indexer.ErrConfiguration)
	}
	if strategy == "" {
		strategy = CosineDistance
	}
	switch strategy {
	case CosineDistance, EuclideanDistance, InnerProduct:
	default:
		return nil, fmt.Errorf("%w: unknown distance strategy %q", indexer.ErrConfiguration, strategy)
	}
	return &Retriever{db: db, embedder: embedder, cfg: cfg.WithDefaults(), strategy: strategy}, nil
}

// Retrieve embeds the query text and returns the k nearest documents,
// closest first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = DefaultLimit
	}

	embeddings, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", indexer.ErrEmbedding, err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: provider returned %d embeddings for 1 input", indexer.ErrEmbedding, len(embeddings))
	}

	cols := []string{
		pq.QuoteIdentifier(r.cfg.IDColumn),
		pq.QuoteIdentifier(r.cfg.ContentColumn),
	}
	if r.cfg.MetadataJSONColumn != "" {
		cols = append(cols, pq.QuoteIdentifier(r.cfg.MetadataJSONColumn))
	}
	for _, name := range r.cfg.MetadataColumns {
		cols = append(cols, pq.QuoteIdentifier(name))
	}

	operator := string(r.strategy)
	stmt := fmt.Sprintf("SELECT %s, %s %s $1 AS distance FROM %s.%s ORDER BY distance LIMIT $2",
		strings.Join(cols, ", "),
		pq.QuoteIdentifier(r.cfg.EmbeddingColumn),
		operator,
		pq.QuoteIdentifier(r.cfg.Schema),
		pq.QuoteIdentifier(r.cfg.Table))

	rows, err := r.db.QueryContext(ctx, stmt, pgvector.NewVector(embeddings[0]), k)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		var encoded []byte
		dest := []any{&res.ID, &res.Content}
		if r.cfg.MetadataJSONColumn != "" {
			dest = append(dest, &encoded)
		}
		metaVals := make([]any, len(r.cfg.MetadataColumns))
		for i := range metaVals {
			dest = append(dest, &metaVals[i])
		}
		dest = append(dest, &res.Distance)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		if len(encoded) > 0 {
			if err := json.Unmarshal(encoded, &res.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %q: %w", res.ID, err)
			}
		}
		for i, name := range r.cfg.MetadataColumns {
			v := metaVals[i]
			if v == nil {
				continue
			}
			if res.Metadata == nil {
				res.Metadata = make(map[string]any, len(r.cfg.MetadataColumns))
			}
			// lib/pq hands text columns back as raw bytes
			if b, ok := v.([]byte); ok {
				res.Metadata[name] = string(b)
			} else {
				res.Metadata[name] = v
			}
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading result rows: %w", err)
	}

	slog.DebugContext(ctx, "documents retrieved", "table", r.cfg.Table, "requested", k, "returned", len(results))
	return results, nil
}
