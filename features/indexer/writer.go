package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// writeBatch upserts one sub-batch as a single multi-row INSERT with an
// ON CONFLICT clause on the id column. Content, embedding and the JSON
// metadata column are refreshed on conflict; plain metadata columns are
// written on first insert only. Embeddings are bound as native vector
// parameters, not text-encoded.
//
// Each call is one statement and therefore one atomic unit of work.
func (ix *Indexer) writeBatch(ctx context.Context, cfg TableConfig, batch []indexedDocument) error {
	if len(batch) == 0 {
		return nil
	}

	columns := []string{cfg.IDColumn, cfg.ContentColumn, cfg.EmbeddingColumn}
	if cfg.MetadataJSONColumn != "" {
		columns = append(columns, cfg.MetadataJSONColumn)
	}
	columns = append(columns, cfg.MetadataColumns...)

	args := make([]any, 0, len(batch)*len(columns))
	valueRows := make([]string, 0, len(batch))
	for _, doc := range batch {
		args = append(args, doc.ID, doc.Content, pgvector.NewVector(doc.Embedding))
		if cfg.MetadataJSONColumn != "" {
			encoded, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("%w: encoding metadata for %q: %w", ErrWrite, doc.ID, err)
			}
			args = append(args, encoded)
		}
		for _, col := range cfg.MetadataColumns {
			if v, ok := doc.Metadata[col]; ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}

		placeholders := make([]string, len(columns))
		base := len(args) - len(columns)
		for i := range columns {
			placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		}
		valueRows = append(valueRows, "("+strings.Join(placeholders, ", ")+")")
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}

	updates := []string{
		fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(cfg.ContentColumn), pq.QuoteIdentifier(cfg.ContentColumn)),
		fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(cfg.EmbeddingColumn), pq.QuoteIdentifier(cfg.EmbeddingColumn)),
	}
	if cfg.MetadataJSONColumn != "" {
		updates = append(updates,
			fmt.Sprintf("%s = EXCLUDED.%s", pq.QuoteIdentifier(cfg.MetadataJSONColumn), pq.QuoteIdentifier(cfg.MetadataJSONColumn)))
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		pq.QuoteIdentifier(cfg.Schema),
		pq.QuoteIdentifier(cfg.Table),
		strings.Join(quoted, ", "),
		strings.Join(valueRows, ", "),
		pq.QuoteIdentifier(cfg.IDColumn),
		strings.Join(updates, ", "))

	if _, err := ix.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
