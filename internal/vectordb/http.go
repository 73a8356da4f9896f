package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hyperjump/tsunagu/internal/models"
)

// HTTPIndex is a REST client to a remote collection-oriented similarity
// store. All operations run under the configured per-call timeout and retry
// policy; 4xx responses are surfaced immediately, 5xx and transport failures
// are retried and end in ErrUnavailable.
type HTTPIndex struct {
	baseURL    string
	collection string
	client     *http.Client
	retry      RetryPolicy
}

// HTTPConfig configures an HTTPIndex.
type HTTPConfig struct {
	BaseURL    string
	Collection string
	Timeout    time.Duration
	Retry      RetryPolicy
}

// NewHTTPIndex creates a client for the collection at cfg.BaseURL.
func NewHTTPIndex(cfg HTTPConfig) *HTTPIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &HTTPIndex{
		baseURL:    cfg.BaseURL,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		retry:      retry,
	}
}

// Collection returns the collection name this client is bound to.
func (x *HTTPIndex) Collection() string { return x.collection }

// statusError is a non-retryable 4xx response.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func statusCode(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// CreateCollection ensures the collection exists. The store answers 2xx for
// a fresh or identically-parameterized collection and 409 for a schema
// mismatch, which maps to ErrCollectionConflict.
func (x *HTTPIndex) CreateCollection(ctx context.Context, dimension int, metric string) error {
	body := map[string]interface{}{
		"dimension": dimension,
		"metric":    metric,
	}
	err := x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodPost, x.collectionURL(), body, nil)
	})
	if statusCode(err) == http.StatusConflict {
		return fmt.Errorf("%w: collection %q: dimension=%d metric=%s", ErrCollectionConflict, x.collection, dimension, metric)
	}
	return err
}

// Upsert writes records as one batch. The store applies a batch atomically;
// on failure the caller retries or abandons the whole batch.
func (x *HTTPIndex) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodPost, x.collectionURL()+"/vectors", records, nil)
	})
}

type wireMatch struct {
	ID       string                `json:"id"`
	Score    float64               `json:"score"`
	Metadata models.RecordMetadata `json:"metadata"`
}

// Query runs a top-k similarity search with an optional metadata filter.
func (x *HTTPIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]models.SearchMatch, error) {
	body := map[string]interface{}{
		"vector": vector,
		"top_k":  topK,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	var resp struct {
		Results []wireMatch `json:"results"`
	}
	err := x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodPost, x.collectionURL()+"/search", body, &resp)
	})
	if err != nil {
		return nil, err
	}
	matches := make([]models.SearchMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		matches = append(matches, models.SearchMatch{
			RecordID: r.ID,
			Score:    r.Score,
			Metadata: r.Metadata,
		})
	}
	return matches, nil
}

// FetchByID returns a stored record, or ErrNotFound on a miss.
func (x *HTTPIndex) FetchByID(ctx context.Context, id string) (*models.VectorRecord, error) {
	var rec models.VectorRecord
	err := x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodGet, x.collectionURL()+"/vectors/"+url.PathEscape(id), nil, &rec)
	})
	if statusCode(err) == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes records by ID. A 404 for an individual ID is ignored.
func (x *HTTPIndex) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		err := x.retry.Do(ctx, func() error {
			return x.do(ctx, http.MethodDelete, x.collectionURL()+"/vectors/"+url.PathEscape(id), nil, nil)
		})
		if err != nil && statusCode(err) != http.StatusNotFound {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return nil
}

// DeleteCollection drops the collection. Missing collections are a no-op.
func (x *HTTPIndex) DeleteCollection(ctx context.Context) error {
	err := x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodDelete, x.collectionURL(), nil, nil)
	})
	if statusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// Count returns the number of stored records from the collection resource.
func (x *HTTPIndex) Count(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := x.retry.Do(ctx, func() error {
		return x.do(ctx, http.MethodGet, x.collectionURL(), nil, &resp)
	})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// Close is a no-op; the underlying http.Client needs no teardown.
func (x *HTTPIndex) Close() error { return nil }

func (x *HTTPIndex) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", x.baseURL, url.PathEscape(x.collection))
}

// do issues one JSON request. Transport failures and 5xx responses are marked
// transient for the retry policy; 4xx responses become statusError.
func (x *HTTPIndex) do(ctx context.Context, method, u string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return markTransient(fmt.Errorf("%s %s: %w", method, u, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return markTransient(fmt.Errorf("%s %s: %s", method, u, resp.Status))
	case resp.StatusCode >= 400:
		return &statusError{code: resp.StatusCode, msg: fmt.Sprintf("%s %s: %s", method, u, resp.Status)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
