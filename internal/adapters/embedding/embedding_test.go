package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaEmbed(t *testing.T) {
	var gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, gotPrompt = req.Model, req.Prompt
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	adapter := NewOllamaAdapter(srv.URL, "nomic-embed-text", 0, nil)
	vec, err := adapter.Embed(context.Background(), "refund window")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "nomic-embed-text", gotModel)
	assert.Equal(t, "refund window", gotPrompt)
}

func TestOllamaEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaAdapter(srv.URL, "", 0, nil).Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaEmbed_EmptyEmbeddingIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{})
	}))
	defer srv.Close()

	_, err := NewOllamaAdapter(srv.URL, "", 0, nil).Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestOllamaEmbedBatch_SequentialCalls(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{float32(calls)}})
	}))
	defer srv.Close()

	vecs, err := NewOllamaAdapter(srv.URL, "", 0, nil).EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 3, calls)
}

func TestOpenAIEmbedBatch(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openaiEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := openaiEmbedResponse{}
		for range req.Input {
			out.Data = append(out.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{1, 2}})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"}, nil)
	require.NoError(t, err)

	vecs, err := adapter.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{1, 2}, vecs[0])
}

func TestOpenAIEmbedBatch_CountMismatchIsError(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiEmbedResponse{})
	}))
	defer srv.Close()

	adapter, err := NewOpenAIAdapter(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_EMBED_KEY"}, nil)
	require.NoError(t, err)

	_, err = adapter.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestNewOpenAIAdapter_MissingKeyFails(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	_, err := NewOpenAIAdapter(OpenAIConfig{APIKeyEnv: "TEST_EMBED_KEY"}, nil)
	assert.Error(t, err)
}
