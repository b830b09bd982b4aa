package domain

import "context"

// Embedder converts a batch of texts into vector representations,
// one-to-one and order-preserving.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorIndex persists vectors under an isolation namespace.
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []Vector, namespace string) error
	Stats(ctx context.Context) (IndexStats, error)
}

// Formatter converts a composite employee record into documents.
type Formatter interface {
	Format(record *EmployeeRecord) []Document
}
