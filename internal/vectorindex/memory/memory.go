// Package memory is an in-memory vector index used for dry runs and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"comppipe/internal/domain"
)

// Index stores vectors per namespace, replacing on id collision like a
// real upsert.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string][]domain.Vector
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{namespaces: map[string][]domain.Vector{}}
}

// Upsert writes vectors under the namespace, overwriting existing ids.
func (ix *Index) Upsert(ctx context.Context, vectors []domain.Vector, namespace string) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	existing := ix.namespaces[namespace]
	for _, v := range vectors {
		replaced := false
		for i := range existing {
			if existing[i].ID == v.ID {
				existing[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, v)
		}
	}
	ix.namespaces[namespace] = existing
	return nil
}

// Stats reports totals over all namespaces.
func (ix *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	stats := domain.IndexStats{Namespaces: len(ix.namespaces)}
	for _, vs := range ix.namespaces {
		stats.TotalVectors += len(vs)
		for _, v := range vs {
			if len(v.Values) > stats.Dimension {
				stats.Dimension = len(v.Values)
			}
		}
	}
	return stats, nil
}

// Namespaces lists the namespaces written so far.
func (ix *Index) Namespaces() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.namespaces))
	for ns := range ix.namespaces {
		out = append(out, ns)
	}
	return out
}

// Vectors returns the vectors stored under a namespace.
func (ix *Index) Vectors(namespace string) []domain.Vector {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.namespaces[namespace]
}

var _ domain.VectorIndex = (*Index)(nil)
