package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"vectorpg/features/indexer"
	"vectorpg/features/job"
	"vectorpg/internal/config"
	"vectorpg/internal/middleware"
)

const (
	defaultIndexTimeout = 120 * time.Second

	// maxIndexAttempts bounds NSQ redelivery before a request is parked in
	// the dead-letter store.
	maxIndexAttempts = 5
)

// Pipeline is the indexing entry point the consumer drives.
type Pipeline interface {
	Index(ctx context.Context, docs []indexer.Document, opts *indexer.Options) (*indexer.Result, error)
}

// ResultPublisher publishes indexing outcomes; *nsq.Producer satisfies it.
type ResultPublisher interface {
	Publish(topic string, body []byte) error
}

// DeadLetter stores requests that cannot be retried automatically.
type DeadLetter interface {
	Save(ctx context.Context, j *job.Job) error
}

// IndexConsumer handles async indexing requests from NSQ. NSQ redelivery is
// the retry layer for transient errors; schema and configuration errors
// never heal on retry, so those requests go straight to the dead-letter
// store, as do requests that exhaust their delivery attempts.
type IndexConsumer struct {
	pipeline   Pipeline
	publisher  ResultPublisher
	deadLetter DeadLetter
	timeout    time.Duration
}

func NewIndexConsumer(p Pipeline, publisher ResultPublisher, deadLetter DeadLetter) *IndexConsumer {
	return &IndexConsumer{
		pipeline:   p,
		publisher:  publisher,
		deadLetter: deadLetter,
		timeout:    defaultIndexTimeout,
	}
}

func (c *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload IndexRequestPayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison Pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	ctx := context.Background()
	if payload.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, payload.CorrelationID)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	docs := make([]indexer.Document, len(payload.Documents))
	for i, d := range payload.Documents {
		docs[i] = indexer.Document{Content: d.Content, Metadata: d.Metadata}
	}

	var opts *indexer.Options
	if payload.BatchSize > 0 {
		opts = &indexer.Options{BatchSize: payload.BatchSize}
	}

	res, err := c.pipeline.Index(ctx, docs, opts)
	if err != nil {
		slog.ErrorContext(ctx, "indexing failed", "error", err, "documents", len(docs), "attempt", m.Attempts)
		c.publishResult(ctx, IndexResultPayload{
			Error:         err.Error(),
			CorrelationID: payload.CorrelationID,
		})

		if isRetryable(err) && int(m.Attempts) < maxIndexAttempts {
			return err // Retry
		}
		c.park(ctx, m, err)
		return nil
	}

	slog.InfoContext(ctx, "documents indexed", "count", res.Count)
	c.publishResult(ctx, IndexResultPayload{
		Success:       res.Success,
		Count:         res.Count,
		CorrelationID: payload.CorrelationID,
	})
	return nil
}

// isRetryable reports whether a later attempt could succeed. Schema and
// configuration errors require operator intervention first.
func isRetryable(err error) bool {
	var missing *indexer.MissingColumnsError
	var invalid *indexer.InvalidColumnTypeError
	switch {
	case errors.Is(err, indexer.ErrConfiguration),
		errors.Is(err, indexer.ErrTableNotFound),
		errors.As(err, &missing),
		errors.As(err, &invalid):
		return false
	}
	return true
}

func (c *IndexConsumer) park(ctx context.Context, m *nsq.Message, cause error) {
	if c.deadLetter == nil {
		return
	}
	failed := &job.Job{
		Action:  config.TopicIndexRequest,
		Payload: m.Body,
		Error:   cause.Error(),
	}
	if err := c.deadLetter.Save(ctx, failed); err != nil {
		slog.ErrorContext(ctx, "failed to save dead-letter job", "error", err)
		return
	}
	slog.InfoContext(ctx, "request parked for manual retry", "job_id", failed.ID)
}

func (c *IndexConsumer) publishResult(ctx context.Context, payload IndexResultPayload) {
	if c.publisher == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "encoding index result failed", "error", err)
		return
	}
	if err := c.publisher.Publish(config.TopicIndexResult, body); err != nil {
		slog.WarnContext(ctx, "publishing index result failed", "error", err)
	}
}
