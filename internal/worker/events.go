package worker

// DocumentPayload is one document in an async indexing request.
type DocumentPayload struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IndexRequestPayload is the message body published to the index.request
// topic.
type IndexRequestPayload struct {
	Documents []DocumentPayload `json:"documents"`
	BatchSize int               `json:"batch_size,omitempty"`

	CorrelationID string `json:"correlation_id,omitempty"`
}

// IndexResultPayload is published to index.result after a request completes.
type IndexResultPayload struct {
	Success       bool   `json:"success"`
	Count         int    `json:"count"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
