package nerdgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{Endpoint: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return c
}

func spec() backend.QuerySpec {
	return backend.QuerySpec{
		Kind:      visibility.KindIngestion,
		Statement: "query($accountId: Int!) { actor { account(id: $accountId) { nrql } } }",
		Variables: map[string]any{"accountId": 1},
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_DefaultEndpoint(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
}

func TestClient_Submit_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "actor")
		assert.Equal(t, float64(1), req.Variables["accountId"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"actor": map[string]any{
					"account": map[string]any{
						"nrql": map[string]any{
							"results": []any{map[string]any{"count": 42}},
						},
					},
				},
			},
		})
	})

	raw, err := c.Submit(context.Background(), spec())
	require.NoError(t, err)
	require.Contains(t, raw, "actor")
}

func TestClient_Submit_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   visibility.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, visibility.ErrAuth},
		{"forbidden", http.StatusForbidden, visibility.ErrAuth},
		{"too many requests", http.StatusTooManyRequests, visibility.ErrNetwork},
		{"server error", http.StatusInternalServerError, visibility.ErrNetwork},
		{"bad gateway", http.StatusBadGateway, visibility.ErrNetwork},
		{"bad request", http.StatusBadRequest, visibility.ErrQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := c.Submit(context.Background(), spec())
			require.Error(t, err)
			assert.Equal(t, tt.want, backend.KindOf(err))
		})
	}
}

func TestClient_Submit_GraphQLErrors(t *testing.T) {
	tests := []struct {
		name     string
		errors   []map[string]any
		wantKind visibility.ErrorKind
	}{
		{
			name: "query error",
			errors: []map[string]any{
				{"message": "NRQL syntax error"},
			},
			wantKind: visibility.ErrQuery,
		},
		{
			name: "unauthorized error class",
			errors: []map[string]any{
				{
					"message":    "access denied",
					"extensions": map[string]any{"errorClass": "UNAUTHORIZED"},
				},
			},
			wantKind: visibility.ErrAuth,
		},
		{
			name: "api key message",
			errors: []map[string]any{
				{"message": "invalid API key provided"},
			},
			wantKind: visibility.ErrAuth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"errors": tt.errors})
			})

			_, err := c.Submit(context.Background(), spec())
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, backend.KindOf(err))
		})
	}
}

func TestClient_Submit_ContextTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect; otherwise r.Context() is never
		// canceled and srv.Close deadlocks in t.Cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Submit(ctx, spec())
	require.Error(t, err)
	assert.Equal(t, visibility.ErrTimeout, backend.KindOf(err))
}

func TestClient_Submit_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listens there anymore

	c, err := New(Config{Endpoint: url, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Submit(context.Background(), spec())
	require.Error(t, err)
	assert.Equal(t, visibility.ErrNetwork, backend.KindOf(err))
}

func TestAdapterSet_CoversAllKinds(t *testing.T) {
	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)

	set := AdapterSet(c)
	for _, kind := range []visibility.BackendKind{
		visibility.KindIngestion, visibility.KindGraph, visibility.KindUI,
	} {
		a, ok := set.ForKind(kind)
		assert.True(t, ok, "kind %s missing", kind)
		assert.NotNil(t, a)
	}
}
