package job

import (
	"encoding/json"
	"time"
)

// Job is an indexing request that exhausted its delivery attempts or hit a
// non-retryable error. The original payload is kept verbatim so the request
// can be replayed.
type Job struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
