package indexer

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBatch_ColumnOrderAndConflictClause(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := TableConfig{
		Table:              "documents",
		MetadataJSONColumn: "metadata",
		MetadataColumns:    []string{"source", "language"},
	}.WithDefaults()

	ix, err := New(db, nopEmbedder(), cfg)
	require.NoError(t, err)

	query := `INSERT INTO "public"."documents" ("id", "content", "embedding", "metadata", "source", "language") ` +
		`VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12) ` +
		`ON CONFLICT ("id") DO UPDATE SET "content" = EXCLUDED."content", ` +
		`"embedding" = EXCLUDED."embedding", "metadata" = EXCLUDED."metadata"`

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(
			"doc-1", "hello", pgvector.NewVector([]float32{0.1, 0.2}),
			[]byte(`{"source":"web"}`), "web", nil,
			"doc-2", "world", pgvector.NewVector([]float32{0.3, 0.4}),
			[]byte(`null`), nil, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	batch := []indexedDocument{
		{
			ID:        "doc-1",
			Content:   "hello",
			Embedding: []float32{0.1, 0.2},
			Metadata:  map[string]any{"source": "web"},
		},
		{
			ID:        "doc-2",
			Content:   "world",
			Embedding: []float32{0.3, 0.4},
		},
	}

	err = ix.writeBatch(context.Background(), cfg, batch)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteBatch_NoJSONColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := TableConfig{Table: "documents"}.WithDefaults()
	ix, err := New(db, nopEmbedder(), cfg)
	require.NoError(t, err)

	query := `INSERT INTO "public"."documents" ("id", "content", "embedding") VALUES ($1, $2, $3) ` +
		`ON CONFLICT ("id") DO UPDATE SET "content" = EXCLUDED."content", "embedding" = EXCLUDED."embedding"`

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("doc-1", "hello", pgvector.NewVector([]float32{0.5})).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ix.writeBatch(context.Background(), cfg, []indexedDocument{
		{ID: "doc-1", Content: "hello", Embedding: []float32{0.5}},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteBatch_DriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := TableConfig{Table: "documents"}.WithDefaults()
	ix, err := New(db, nopEmbedder(), cfg)
	require.NoError(t, err)

	boom := errors.New("duplicate key value violates unique constraint")
	mock.ExpectExec("INSERT INTO").WillReturnError(boom)

	err = ix.writeBatch(context.Background(), cfg, []indexedDocument{
		{ID: "doc-1", Content: "hello", Embedding: []float32{0.5}},
	})
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, boom)
}

func TestWriteBatch_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := TableConfig{Table: "documents"}.WithDefaults()
	ix, err := New(db, nopEmbedder(), cfg)
	require.NoError(t, err)

	err = ix.writeBatch(context.Background(), cfg, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
