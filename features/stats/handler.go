package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lib/pq"

	"vectorpg/internal/middleware"
)

// DocumentCounter reports how many rows the indexed table holds.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// JobCounter reports the dead-letter queue depth.
type JobCounter interface {
	Count(ctx context.Context) (int, error)
}

// PostgresDocumentCounter counts rows in the configured embedding table.
type PostgresDocumentCounter struct {
	db     *sql.DB
	schema string
	table  string
}

func NewPostgresDocumentCounter(db *sql.DB, schema, table string) *PostgresDocumentCounter {
	return &PostgresDocumentCounter{db: db, schema: schema, table: table}
}

func (c *PostgresDocumentCounter) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s",
		pq.QuoteIdentifier(c.schema), pq.QuoteIdentifier(c.table))
	var count int
	err := c.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

type Handler struct {
	documents DocumentCounter
	jobs      JobCounter
}

func NewHandler(d DocumentCounter, j JobCounter) *Handler {
	return &Handler{documents: d, jobs: j}
}

type StatsResponse struct {
	Documents  int `json:"documents"`
	FailedJobs int `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dCount, err := h.documents.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count documents", http.StatusInternalServerError)
		return
	}

	jCount, err := h.jobs.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count dead-letter jobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count dead-letter jobs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Documents:  dCount,
		FailedJobs: jCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
