package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vectorpg/internal/registry"
)

func TestRegistry_DefineAndRun(t *testing.T) {
	reg := registry.New()

	err := reg.Define("postgres/documents", func(ctx context.Context, input json.RawMessage) (any, error) {
		var req struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(input, &req); err != nil {
			return nil, err
		}
		return map[string]any{"count": req.Count}, nil
	})
	require.NoError(t, err)

	out, err := reg.Run(context.Background(), "postgres/documents", json.RawMessage(`{"count": 7}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 7}, out)
}

func TestRegistry_DuplicateDefine(t *testing.T) {
	reg := registry.New()
	noop := func(ctx context.Context, input json.RawMessage) (any, error) { return nil, nil }

	require.NoError(t, reg.Define("postgres/documents", noop))
	err := reg.Define("postgres/documents", noop)
	assert.ErrorIs(t, err, registry.ErrDuplicateAction)
}

func TestRegistry_UnknownAction(t *testing.T) {
	reg := registry.New()

	_, err := reg.Run(context.Background(), "postgres/missing", nil)
	assert.ErrorIs(t, err, registry.ErrUnknownAction)
}

func TestRegistry_ActionErrorPropagates(t *testing.T) {
	reg := registry.New()
	boom := errors.New("schema validation failed")

	require.NoError(t, reg.Define("postgres/documents", func(ctx context.Context, input json.RawMessage) (any, error) {
		return nil, boom
	}))

	_, err := reg.Run(context.Background(), "postgres/documents", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_Names(t *testing.T) {
	reg := registry.New()
	noop := func(ctx context.Context, input json.RawMessage) (any, error) { return nil, nil }

	require.NoError(t, reg.Define("postgres/documents/retrieve", noop))
	require.NoError(t, reg.Define("postgres/documents", noop))

	assert.Equal(t, []string{"postgres/documents", "postgres/documents/retrieve"}, reg.Names())
}
