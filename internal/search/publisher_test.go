package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ckriutz/dr-video/internal/insights"
)

// fakeIndexStore accepts index batches and keeps at most one document per key,
// mimicking upsert semantics of the real document store.
type fakeIndexStore struct {
	docs map[string]map[string]any
}

func (f *fakeIndexStore) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "secret-key", r.Header.Get("api-key"))

		var batch struct {
			Value []map[string]any `json:"value"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))

		type result struct {
			Key    string `json:"key"`
			Status bool   `json:"status"`
		}
		results := make([]result, 0, len(batch.Value))
		for _, doc := range batch.Value {
			require.Equal(t, "mergeOrUpload", doc["@search.action"])
			id := doc["id"].(string)
			f.docs[id] = doc
			results = append(results, result{Key: id, Status: true})
		}

		json.NewEncoder(w).Encode(map[string]any{"value": results}) //nolint:errcheck
	}
}

func newTestPublisher(srvURL string) *Publisher {
	return NewPublisher(Config{
		Endpoint:   srvURL,
		IndexName:  "video-insights",
		APIKey:     "secret-key",
		APIVersion: "2023-11-01",
	}, zap.NewNop())
}

func TestPublish_UpsertIsIdempotent(t *testing.T) {
	store := &fakeIndexStore{docs: map[string]map[string]any{}}
	srv := httptest.NewServer(store.handler(t))
	defer srv.Close()

	p := newTestPublisher(srv.URL)

	doc := insights.SearchDocument{
		ID:        "vid-1",
		VideoID:   "vid-1",
		Name:      "clip.mp4",
		IndexedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	first := p.Publish(context.Background(), doc)
	require.True(t, first.Succeeded, first.ErrorDetail)

	doc.IndexedAt = doc.IndexedAt.Add(time.Hour)
	second := p.Publish(context.Background(), doc)
	require.True(t, second.Succeeded, second.ErrorDetail)

	// Exactly one document per id, carrying the latest indexedAt.
	require.Len(t, store.docs, 1)
	stored := store.docs["vid-1"]
	assert.Equal(t, doc.IndexedAt.Format(time.RFC3339), stored["indexedAt"])
}

func TestPublish_RejectionIsReportedNotThrown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"field mismatch"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newTestPublisher(srv.URL)

	outcome := p.Publish(context.Background(), insights.SearchDocument{ID: "vid-1"})
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, http.StatusBadRequest, outcome.StatusCode)
	assert.Contains(t, outcome.ErrorDetail, "field mismatch")
}

func TestPublish_PerDocumentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`{"value":[{"key":"vid-1","status":false,"errorMessage":"key too long","statusCode":422}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	p := newTestPublisher(srv.URL)

	outcome := p.Publish(context.Background(), insights.SearchDocument{ID: "vid-1"})
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, 422, outcome.StatusCode)
	assert.Contains(t, outcome.ErrorDetail, "key too long")
}

func TestEnsureIndex_PutsSchema(t *testing.T) {
	var gotPath string
	var gotSchema map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotSchema))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p := newTestPublisher(srv.URL)
	require.NoError(t, p.EnsureIndex(context.Background()))

	assert.Equal(t, "/indexes/video-insights", gotPath)
	assert.Equal(t, "video-insights", gotSchema["name"])

	fields := gotSchema["fields"].([]any)
	byName := map[string]map[string]any{}
	for _, f := range fields {
		fm := f.(map[string]any)
		byName[fm["name"].(string)] = fm
	}

	// String-typed flattened list fields, in lockstep with the mapper.
	assert.Equal(t, "Edm.String", byName["keywords"]["type"])
	assert.Equal(t, "Edm.String", byName["topics"]["type"])
	assert.Equal(t, "Edm.String", byName["faces"]["type"])
	assert.Equal(t, "Edm.String", byName["labels"]["type"])
	assert.Equal(t, "Collection(Edm.ComplexType)", byName["transcriptEntries"]["type"])
	assert.Equal(t, true, byName["id"]["key"])
}
