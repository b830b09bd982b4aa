// Package pinecone is a minimal REST client for the Pinecone index data
// plane, covering the write path only: batched upserts under a namespace
// and the post-upload stats check.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"comppipe/internal/domain"
)

// Index talks to one Pinecone index host.
type Index struct {
	host   string
	apiKey string
	client *http.Client
}

// Config configures the Pinecone index client.
type Config struct {
	Host      string
	APIKeyEnv string
	Timeout   time.Duration
}

// New creates a client for the index at cfg.Host. The API key is read from
// the environment variable named by cfg.APIKeyEnv.
func New(cfg Config) (*Index, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		return nil, fmt.Errorf("pinecone index host not configured")
	}
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Index{host: host, apiKey: key, client: &http.Client{Timeout: timeout}}, nil
}

type upsertVector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Upsert writes the vectors under the given namespace.
func (ix *Index) Upsert(ctx context.Context, vectors []domain.Vector, namespace string) error {
	if len(vectors) == 0 {
		return nil
	}
	payload := make([]upsertVector, len(vectors))
	for i, v := range vectors {
		payload[i] = upsertVector{ID: v.ID, Values: v.Values, Metadata: v.Metadata}
	}
	body := map[string]any{
		"vectors":   payload,
		"namespace": namespace,
	}
	return ix.postJSON(ctx, ix.host+"/vectors/upsert", body, nil)
}

// Stats fetches index-wide statistics for post-upload verification.
func (ix *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	var resp struct {
		Namespaces       map[string]json.RawMessage `json:"namespaces"`
		Dimension        int                        `json:"dimension"`
		TotalVectorCount int                        `json:"totalVectorCount"`
	}
	if err := ix.postJSON(ctx, ix.host+"/describe_index_stats", map[string]any{}, &resp); err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{
		TotalVectors: resp.TotalVectorCount,
		Dimension:    resp.Dimension,
		Namespaces:   len(resp.Namespaces),
	}, nil
}

func (ix *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", ix.apiKey)
	resp, err := ix.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ domain.VectorIndex = (*Index)(nil)
