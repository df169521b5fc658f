package indexer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// generateEmbeddings partitions docs into contiguous chunks of at most
// batchSize, issues one provider call per chunk and zips documents with
// their same-index embeddings. Any chunk failure aborts the whole call;
// nothing is written in that case because writes only start once every
// chunk has been embedded.
func (ix *Indexer) generateEmbeddings(ctx context.Context, docs []Document, batchSize int) ([]indexedDocument, error) {
	indexed := make([]indexedDocument, 0, len(docs))

	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		texts := make([]string, len(chunk))
		for i, d := range chunk {
			texts[i] = d.Content
		}

		embeddings, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		if len(embeddings) != len(chunk) {
			return nil, fmt.Errorf("%w: provider returned %d embeddings for %d inputs",
				ErrEmbedding, len(embeddings), len(chunk))
		}

		for i, d := range chunk {
			indexed = append(indexed, indexedDocument{
				ID:        documentID(d, ix.cfg.IDColumn),
				Content:   d.Content,
				Embedding: embeddings[i],
				Metadata:  d.Metadata,
			})
		}
	}

	return indexed, nil
}

// documentID takes the id from document metadata when present and non-empty,
// otherwise generates a fresh v4 UUID.
func documentID(d Document, idColumn string) string {
	if v, ok := d.Metadata[idColumn]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return uuid.New().String()
}
