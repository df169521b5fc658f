package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vectorpg/features/indexer"
	"vectorpg/features/job"
	"vectorpg/features/retriever"
	"vectorpg/features/stats"
	"vectorpg/internal/adapter/gemini"
	"vectorpg/internal/config"
	"vectorpg/internal/middleware"
	"vectorpg/internal/registry"
	"vectorpg/internal/text"
	"vectorpg/internal/worker"
)

// EmbedderSpec selects exactly one embedding capability: a named hosted
// model, or a caller-supplied function.
type EmbedderSpec struct {
	Model string
	Func  indexer.EmbedderFunc
}

// ResolveEmbedder dispatches an EmbedderSpec explicitly. Named models are
// served by the Gemini adapter.
func ResolveEmbedder(ctx context.Context, cfg *config.Config, spec EmbedderSpec) (indexer.Embedder, error) {
	switch {
	case spec.Model != "" && spec.Func != nil:
		return nil, fmt.Errorf("%w: embedder model and function are mutually exclusive", indexer.ErrConfiguration)
	case spec.Func != nil:
		return spec.Func, nil
	case spec.Model != "":
		return gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, spec.Model)
	default:
		return nil, fmt.Errorf("%w: an embedder model or function is required", indexer.ErrConfiguration)
	}
}

// IndexRequest is the body of the postgres/<table> action. A positive
// ChunkSize splits each document into pieces of at most that many characters
// before embedding.
type IndexRequest struct {
	Documents []indexer.Document `json:"documents"`
	Options   *indexer.Options   `json:"options,omitempty"`
	ChunkSize int                `json:"chunk_size,omitempty"`
}

// RetrieveRequest is the body of the postgres/<table>/retrieve action.
type RetrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type App struct {
	Handler  http.Handler
	Registry *registry.Registry
	Indexer  *indexer.Indexer
	Consumer *worker.IndexConsumer
	Jobs     *job.Service
}

func New(cfg *config.Config, db *sql.DB, embedder indexer.Embedder, publisher worker.ResultPublisher) (*App, error) {
	tableCfg := indexer.TableConfig{
		Schema:                cfg.TableSchema,
		Table:                 cfg.TableName,
		IDColumn:              cfg.IDColumn,
		ContentColumn:         cfg.ContentColumn,
		EmbeddingColumn:       cfg.EmbeddingColumn,
		MetadataJSONColumn:    cfg.MetadataJSONColumn,
		MetadataColumns:       cfg.MetadataColumns,
		IgnoreMetadataColumns: cfg.IgnoreMetadata,
	}

	ix, err := indexer.New(db, embedder, tableCfg)
	if err != nil {
		return nil, err
	}
	ret, err := retriever.New(db, embedder, tableCfg, retriever.CosineDistance)
	if err != nil {
		return nil, err
	}

	fullCfg := tableCfg.WithDefaults()

	reg := registry.New()
	if err := reg.Define("postgres/"+cfg.TableName, indexAction(ix, fullCfg.IDColumn)); err != nil {
		return nil, err
	}
	if err := reg.Define("postgres/"+cfg.TableName+"/retrieve", retrieveAction(ret)); err != nil {
		return nil, err
	}

	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo, publisher)
	jobHandler := job.NewHandler(jobService)

	statsHandler := stats.NewHandler(
		stats.NewPostgresDocumentCounter(db, fullCfg.Schema, fullCfg.Table),
		jobService,
	)

	a := &App{
		Registry: reg,
		Indexer:  ix,
		Consumer: worker.NewIndexConsumer(ix, publisher, jobRepo),
		Jobs:     jobService,
	}

	mux := http.NewServeMux()
	mux.Handle("POST /actions/{name...}", middleware.CorrelationID(http.HandlerFunc(a.handleAction)))
	mux.Handle("GET /jobs", middleware.CorrelationID(http.HandlerFunc(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(http.HandlerFunc(jobHandler.Retry)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	a.Handler = mux

	return a, nil
}

func indexAction(ix *indexer.Indexer, idColumn string) registry.ActionFunc {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		var req IndexRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", indexer.ErrConfiguration, err)
		}
		docs := req.Documents
		if req.ChunkSize > 0 {
			docs = chunkDocuments(docs, req.ChunkSize, idColumn)
		}
		return ix.Index(ctx, docs, req.Options)
	}
}

// chunkDocuments splits each document's content into pieces of at most
// maxChars characters. A document that yields several pieces loses any
// explicit id (the metadata key named by the configured id column) so each
// piece gets its own row; the remaining metadata is copied onto every piece.
func chunkDocuments(docs []indexer.Document, maxChars int, idColumn string) []indexer.Document {
	out := make([]indexer.Document, 0, len(docs))
	for _, doc := range docs {
		pieces := text.Chunk(doc.Content, maxChars)
		if len(pieces) <= 1 {
			out = append(out, doc)
			continue
		}
		for _, piece := range pieces {
			chunked := indexer.Document{Content: piece}
			if doc.Metadata != nil {
				meta := make(map[string]any, len(doc.Metadata))
				for k, v := range doc.Metadata {
					if k == idColumn {
						continue
					}
					meta[k] = v
				}
				chunked.Metadata = meta
			}
			out = append(out, chunked)
		}
	}
	return out
}

func retrieveAction(ret *retriever.Retriever) registry.ActionFunc {
	return func(ctx context.Context, input json.RawMessage) (any, error) {
		var req RetrieveRequest
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", indexer.ErrConfiguration, err)
		}
		if req.Query == "" {
			return nil, fmt.Errorf("%w: query is required", indexer.ErrConfiguration)
		}
		results, err := ret.Retrieve(ctx, req.Query, req.K)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results}, nil
	}
}

func (a *App) handleAction(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	out, err := a.Registry.Run(r.Context(), name, body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var missing *indexer.MissingColumnsError
	var invalid *indexer.InvalidColumnTypeError
	switch {
	case errors.Is(err, registry.ErrUnknownAction):
		status = http.StatusNotFound
	case errors.Is(err, indexer.ErrConfiguration),
		errors.Is(err, indexer.ErrTableNotFound),
		errors.As(err, &missing),
		errors.As(err, &invalid):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
