package elastic

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewStoreForTest creates a Store against the given addresses (test-only).
func NewStoreForTest(addr string) (*Store, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &Store{es: es, refresh: "wait_for"}, nil
}
