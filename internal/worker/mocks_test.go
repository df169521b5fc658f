package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vectorpg/features/indexer"
	"vectorpg/features/job"
)

// Mocks

type MockPipeline struct{ mock.Mock }

func (m *MockPipeline) Index(ctx context.Context, docs []indexer.Document, opts *indexer.Options) (*indexer.Result, error) {
	args := m.Called(ctx, docs, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*indexer.Result), args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockDeadLetter struct{ mock.Mock }

func (m *MockDeadLetter) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}
