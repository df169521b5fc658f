package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorpg/features/indexer"
)

func TestChunkDocuments_DropsConfiguredIDColumn(t *testing.T) {
	content := strings.Repeat("aaaa ", 8) + "\n\n" + strings.Repeat("bbbb ", 8)
	docs := []indexer.Document{{
		Content:  content,
		Metadata: map[string]any{"doc_id": "explicit-id", "source": "web"},
	}}

	out := chunkDocuments(docs, 45, "doc_id")

	require.Len(t, out, 2)
	for _, d := range out {
		// Each piece must get its own generated id, so the explicit one
		// cannot survive under the configured id column.
		assert.NotContains(t, d.Metadata, "doc_id")
		assert.Equal(t, "web", d.Metadata["source"])
	}
}

func TestChunkDocuments_SinglePieceKeepsID(t *testing.T) {
	docs := []indexer.Document{{
		Content:  "short",
		Metadata: map[string]any{"doc_id": "explicit-id"},
	}}

	out := chunkDocuments(docs, 100, "doc_id")

	require.Len(t, out, 1)
	assert.Equal(t, "explicit-id", out[0].Metadata["doc_id"])
}

func TestChunkDocuments_InputNotMutated(t *testing.T) {
	meta := map[string]any{"id": "explicit-id", "lang": "en"}
	content := strings.Repeat("word ", 30)
	docs := []indexer.Document{{Content: content, Metadata: meta}}

	chunkDocuments(docs, 40, "id")

	assert.Equal(t, "explicit-id", meta["id"])
	assert.Equal(t, content, docs[0].Content)
}
