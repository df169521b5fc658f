package job

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", h.List)
	mux.HandleFunc("POST /jobs/{id}/retry", h.Retry)
	return mux
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return([]Job{
		{ID: "job-1", Action: "postgres/documents", Error: "timeout"},
	}, nil)

	h := NewHandler(NewService(repo, nil))
	rec := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job-1"`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHandler_ListEmptyIsArray(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return(nil, nil)

	h := NewHandler(NewService(repo, nil))
	rec := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestHandler_Retry(t *testing.T) {
	repo := new(MockRepo)
	pub := new(MockPublisher)
	repo.On("Get", mock.Anything, "job-1").Return(&Job{ID: "job-1", Payload: []byte(`{}`)}, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
	repo.On("Delete", mock.Anything, "job-1").Return(nil)

	h := NewHandler(NewService(repo, pub))
	rec := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/job-1/retry", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "job retried")
	repo.AssertExpectations(t)
}

func TestHandler_RetryNotFound(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	h := NewHandler(NewService(repo, new(MockPublisher)))
	rec := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/missing/retry", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestHandler_ListError(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return(nil, errors.New("connection reset"))

	h := NewHandler(NewService(repo, nil))
	rec := httptest.NewRecorder()
	newTestMux(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil).
		WithContext(context.Background()))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
