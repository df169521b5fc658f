package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"vectorpg/internal/adapter/gemini"
)

func TestNewEmbedder_MissingAPIKey(t *testing.T) {
	_, err := gemini.NewEmbedder(context.Background(), "", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestEmbedBatch(t *testing.T) {
	// Fake the batch embedding endpoint; the response carries one embedding
	// per requested content, in request order.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{
				{"values": []float32{0.1, 0.2, 0.3}},
				{"values": []float32{0.4, 0.5, 0.6}},
			},
		})
	}))
	defer ts.Close()

	embedder, err := gemini.NewEmbedder(context.Background(), "test-key", "",
		option.WithEndpoint(ts.URL),
	)
	require.NoError(t, err)
	defer embedder.Close()

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"hello", "world"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, vectors[1])
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embeddings": []map[string]interface{}{
				{"values": []float32{0.1}},
			},
		})
	}))
	defer ts.Close()

	embedder, err := gemini.NewEmbedder(context.Background(), "test-key", "",
		option.WithEndpoint(ts.URL),
	)
	require.NoError(t, err)
	defer embedder.Close()

	_, err = embedder.EmbedBatch(context.Background(), []string{"hello", "world"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "got 1 embeddings for 2 inputs")
}
