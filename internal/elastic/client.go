// Package elastic adapts an Elasticsearch cluster to the search.Searcher
// contract used by the feasibility engine and the catalog.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/pkg/httpretry"
	"github.com/ignite/audience-feasibility/internal/search"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx answer from the cluster.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("elasticsearch returned status %d: %s", e.StatusCode, e.Body)
}

// Client executes searches against an Elasticsearch cluster.
type Client struct {
	es         *elasticsearch.Client
	preference string
	timeout    time.Duration
}

// NewClient creates a Client from cfg. The client library's own retries are
// disabled; with MaxRetries > 0 the transport retries transient failures.
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("elastic: no addresses configured")
	}

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.MaxRetries > 0 {
		transport = httpretry.NewTransport(transport, cfg.MaxRetries)
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic: create client: %w", err)
	}

	return &Client{
		es:         es,
		preference: cfg.Preference,
		timeout:    cfg.Timeout(),
	}, nil
}

// Search implements search.Searcher.
func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("elastic: encode request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := esapi.SearchRequest{
		Index:      req.Indices,
		Body:       bytes.NewReader(body),
		Preference: c.preference,
	}.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("elastic: search: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("elastic: read response: %w", err)
	}
	if res.IsError() {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: truncate(raw)}
	}
	return search.NewResponse(raw)
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := esapi.PingRequest{}.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elastic: ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return &StatusError{StatusCode: res.StatusCode}
	}
	return nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
