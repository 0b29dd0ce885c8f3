package elastic

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

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/memento/internal/db"
	"github.com/kailas-cloud/memento/internal/query"
)

// Compile-time check: Store implements db.Index.
var _ db.Index = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	// Refresh is passed to index requests ("", "true", "false", "wait_for").
	Refresh string
}

// Store implements db.Index via the official Elasticsearch client.
type Store struct {
	es      *elasticsearch.Client
	refresh string
}

// NewStore creates an Elasticsearch-backed index store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("addresses is required")
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{es: es, refresh: cfg.Refresh}, nil
}

// Ping checks cluster connectivity.
func (s *Store) Ping(ctx context.Context) error {
	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return &db.Error{Op: db.OpPing, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	return nil
}

// Close releases client resources. The HTTP transport needs no explicit shutdown.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitForReady(ctx, s, timeout)
}

// IndexExists reports whether the named index exists.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexExists, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
}

// CreateIndex creates the index with its mapping and settings.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	body, err := json.Marshal(EncodeIndex(def))
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	res, err := s.es.Indices.Create(def.Name,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return &db.Error{Op: db.OpCreateIndex, Err: decodeError(res)}
	}
	return nil
}

// Put indexes a document under id, replacing any existing version.
func (s *Store) Put(ctx context.Context, index, id string, doc []byte) error {
	opts := []func(*esapi.IndexRequest){
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(id),
	}
	if s.refresh != "" {
		opts = append(opts, s.es.Index.WithRefresh(s.refresh))
	}

	res, err := s.es.Index(index, bytes.NewReader(doc), opts...)
	if err != nil {
		return &db.Error{Op: db.OpIndex, Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return &db.Error{Op: db.OpIndex, Err: decodeError(res)}
	}
	return nil
}

// Get returns the stored source of a document.
func (s *Store) Get(ctx context.Context, index, id string) ([]byte, error) {
	res, err := s.es.Get(index, id, s.es.Get.WithContext(ctx))
	if err != nil {
		return nil, &db.Error{Op: db.OpGetDoc, Err: err}
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		// index_not_found also answers 404
		if err := decodeError(res); errors.Is(err, db.ErrIndexNotFound) {
			return nil, &db.Error{Op: db.OpGetDoc, Err: err}
		}
		return nil, db.ErrDocumentNotFound
	}
	if res.IsError() {
		return nil, &db.Error{Op: db.OpGetDoc, Err: decodeError(res)}
	}

	var doc getResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, &db.Error{Op: db.OpGetDoc, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !doc.Found {
		return nil, db.ErrDocumentNotFound
	}
	return doc.Source, nil
}

// Search runs a query tree against the index.
func (s *Store) Search(ctx context.Context, index string, q *query.Search) (*query.Result, error) {
	body, err := EncodeSearch(q)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(bytes.NewReader(raw)),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return nil, &db.Error{Op: db.OpSearch, Err: decodeError(res)}
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("decode response: %w", err)}
	}

	out := &query.Result{Total: sr.Hits.Total.Value, Hits: make([]query.Hit, 0, len(sr.Hits.Hits))}
	for _, h := range sr.Hits.Hits {
		out.Hits = append(out.Hits, query.Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return out, nil
}

type getResponse struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  *float64        `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// decodeError maps an error response to a db sentinel where one applies.
func decodeError(res *esapi.Response) error {
	data, _ := io.ReadAll(res.Body)
	var er errorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Error.Type == "" {
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}

	base := fmt.Errorf("%s: %s", er.Error.Type, er.Error.Reason)
	switch {
	case er.Error.Type == "index_not_found_exception":
		return fmt.Errorf("%w: %w", db.ErrIndexNotFound, base)
	case er.Error.Type == "resource_already_exists_exception":
		return fmt.Errorf("%w: %w", db.ErrIndexExists, base)
	case strings.Contains(er.Error.Reason, "number of dimensions"):
		return fmt.Errorf("%w: %w", db.ErrDimensionMismatch, base)
	default:
		return base
	}
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}
