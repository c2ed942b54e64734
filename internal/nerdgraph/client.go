// Package nerdgraph is the concrete backend adapter for a NerdGraph-style
// GraphQL API. It lives outside the verification core: the core only ever
// sees the backend.Adapter interface, constructed here already bound to an
// endpoint and credential.
package nerdgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synthwatch/synthwatch/internal/backend"
	"github.com/synthwatch/synthwatch/internal/visibility"
)

// DefaultEndpoint is the public GraphQL API endpoint.
const DefaultEndpoint = "https://api.newrelic.com/graphql"

const defaultHTTPTimeout = 30 * time.Second

// Config binds a client to an endpoint and credential. Credentials are
// loaded by the caller (CLI/config layer); the verification core never
// reads the environment.
type Config struct {
	Endpoint string
	APIKey   string
}

// Client submits GraphQL documents and classifies failures into the
// backend error taxonomy. Safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
}

// apiKeyTransport injects the Api-Key header into every outgoing request.
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Api-Key", t.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return t.base.RoundTrip(req)
}

// New creates a Client. The HTTP client is built once and reused across
// submissions.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("nerdgraph: api key is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Transport: &apiKeyTransport{base: http.DefaultTransport, apiKey: cfg.APIKey},
			Timeout:   defaultHTTPTimeout,
		},
	}, nil
}

// AdapterSet wires one client as the adapter for all three backend kinds.
// The three conceptual backends share a transport here; the core still
// rate-limits and classifies them independently by kind.
func AdapterSet(c *Client) backend.AdapterSet {
	return backend.AdapterSet{
		visibility.KindIngestion: c,
		visibility.KindGraph:     c,
		visibility.KindUI:        c,
	}
}

// graphQLError is one entry of a GraphQL response's errors array.
type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		ErrorClass string `json:"errorClass"`
	} `json:"extensions"`
}

// Submit implements backend.Adapter. The spec's Statement is a complete
// GraphQL document; Variables are passed through. The returned RawResult is
// the response's "data" object.
func (c *Client) Submit(ctx context.Context, spec backend.QuerySpec) (backend.RawResult, error) {
	const op = "nerdgraph.submit"

	body, err := json.Marshal(map[string]any{
		"query":     spec.Statement,
		"variables": spec.Variables,
	})
	if err != nil {
		return nil, backend.WrapError(visibility.ErrQuery, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backend.WrapError(visibility.ErrQuery, op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, backend.WrapError(visibility.ErrTimeout, op, err)
		}
		return nil, backend.WrapError(visibility.ErrNetwork, op, err)
	}
	defer resp.Body.Close()

	if kind, bad := classifyStatus(resp.StatusCode); bad {
		// Drain a little of the body for the message; responses here are
		// small JSON or HTML error pages.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, backend.NewError(kind, op,
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var envelope struct {
		Data   map[string]any `json:"data"`
		Errors []graphQLError `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, backend.WrapError(visibility.ErrNetwork, op, err)
	}

	if len(envelope.Errors) > 0 {
		return nil, classifyGraphQLErrors(op, envelope.Errors)
	}

	return backend.RawResult(envelope.Data), nil
}

// classifyStatus maps an HTTP status to an error kind.
// 2xx is success; 401/403 are credential failures; 408/429 and 5xx are
// transient; remaining 4xx mean the request itself was malformed.
func classifyStatus(status int) (visibility.ErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return visibility.ErrNone, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return visibility.ErrAuth, true
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return visibility.ErrNetwork, true
	case status >= 500:
		return visibility.ErrNetwork, true
	default:
		return visibility.ErrQuery, true
	}
}

// classifyGraphQLErrors folds the errors array into one classified error.
// GraphQL-level errors are query failures unless the server flags them as
// authentication problems.
func classifyGraphQLErrors(op string, errs []graphQLError) *backend.Error {
	messages := make([]string, 0, len(errs))
	kind := visibility.ErrQuery
	for _, e := range errs {
		messages = append(messages, e.Message)
		class := strings.ToUpper(e.Extensions.ErrorClass)
		if class == "UNAUTHORIZED" || class == "FORBIDDEN" ||
			strings.Contains(strings.ToLower(e.Message), "api key") {
			kind = visibility.ErrAuth
		}
	}
	return backend.NewError(kind, op, strings.Join(messages, "; "))
}
