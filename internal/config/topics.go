package config

const (
	// TopicIndexRequest is the NSQ topic carrying async document indexing
	// requests.
	TopicIndexRequest = "index.request"

	// TopicIndexResult is the NSQ topic for indexing outcomes.
	TopicIndexResult = "index.result"
)
