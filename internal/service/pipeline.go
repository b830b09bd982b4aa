// Package service orchestrates the pipeline: aggregate the workbook into
// employee records, format them into documents, then embed and upsert the
// documents under per-employee namespaces.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"comppipe/internal/aggregate"
	"comppipe/internal/domain"
	"comppipe/internal/logger"
	"comppipe/internal/tabular"
)

// ErrIsolationMismatch marks a document whose declared identifier disagrees
// with the namespace it was about to be stored under. The item is dropped;
// the run continues.
var ErrIsolationMismatch = errors.New("document identifier does not match isolation key")

// Pipeline wires the aggregation core to the embedding and index
// boundaries.
type Pipeline struct {
	log         *logger.Logger
	formatter   domain.Formatter
	embedder    domain.Embedder
	index       domain.VectorIndex
	upsertBatch int
}

// New assembles a pipeline. upsertBatch bounds how many vectors go to the
// index per call; values outside (0, 100] fall back to 100.
func New(log *logger.Logger, f domain.Formatter, e domain.Embedder, ix domain.VectorIndex, upsertBatch int) *Pipeline {
	if upsertBatch <= 0 || upsertBatch > 100 {
		upsertBatch = 100
	}
	return &Pipeline{log: log, formatter: f, embedder: e, index: ix, upsertBatch: upsertBatch}
}

// BuildDocuments aggregates all sources and formats one document set per
// employee, in first-seen employee order so repeated runs produce the
// documents in the same order.
func (p *Pipeline) BuildDocuments(src tabular.Source) (*aggregate.Result, []domain.Document, error) {
	agg := aggregate.New(p.log)
	res, err := agg.Aggregate(src)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregate: %w", err)
	}
	var docs []domain.Document
	for _, id := range res.Order {
		docs = append(docs, p.formatter.Format(res.Records[id])...)
	}
	p.log.Info("generated documents", "employees", len(res.Order), "documents", len(docs))
	return res, docs, nil
}

// UploadReport summarizes one upload run.
type UploadReport struct {
	Employees int
	Documents int
	Uploaded  int
	Rejected  int
}

// Upload embeds and upserts the documents grouped per employee, each group
// under its own namespace. Before anything reaches the index, every
// document's metadata identifier is checked against the namespace owner;
// a mismatch rejects that document only.
func (p *Pipeline) Upload(ctx context.Context, docs []domain.Document) (*UploadReport, error) {
	report := &UploadReport{Documents: len(docs)}

	byOwner := map[string][]domain.Document{}
	var owners []string
	for _, d := range docs {
		if _, ok := byOwner[d.Owner]; !ok {
			owners = append(owners, d.Owner)
		}
		byOwner[d.Owner] = append(byOwner[d.Owner], d)
	}
	report.Employees = len(owners)

	for _, owner := range owners {
		namespace := domain.NamespaceFor(owner)
		group := byOwner[owner]
		for start := 0; start < len(group); start += p.upsertBatch {
			end := start + p.upsertBatch
			if end > len(group) {
				end = len(group)
			}
			batch := make([]domain.Document, 0, end-start)
			for _, d := range group[start:end] {
				if err := checkIsolation(d, owner); err != nil {
					p.log.Error("rejecting document", "id", d.ID, "error", err)
					report.Rejected++
					continue
				}
				batch = append(batch, d)
			}
			if len(batch) == 0 {
				continue
			}
			texts := make([]string, len(batch))
			for i, d := range batch {
				texts[i] = d.Text
			}
			embeddings, err := p.embedder.EmbedBatch(ctx, texts)
			if err != nil {
				return report, fmt.Errorf("embed batch for %s: %w", namespace, err)
			}
			if len(embeddings) != len(batch) {
				return report, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(batch))
			}
			vectors := make([]domain.Vector, len(batch))
			for i, d := range batch {
				meta := map[string]any{"doc_type": d.DocType}
				for k, v := range d.Metadata {
					meta[k] = v
				}
				vectors[i] = domain.Vector{ID: d.ID, Values: embeddings[i], Metadata: meta}
			}
			if err := p.index.Upsert(ctx, vectors, namespace); err != nil {
				return report, fmt.Errorf("upsert to %s: %w", namespace, err)
			}
			report.Uploaded += len(vectors)
		}
	}
	p.log.Info("upload complete", "uploaded", report.Uploaded, "rejected", report.Rejected)
	return report, nil
}

// checkIsolation enforces that a document is stored only under its own
// employee's namespace.
func checkIsolation(d domain.Document, owner string) error {
	id, _ := d.Metadata["identifier"].(string)
	if id != owner {
		return fmt.Errorf("%w: metadata %q, namespace owner %q", ErrIsolationMismatch, id, owner)
	}
	return nil
}

// RunSummary reconciles record counts against per-category sums so the
// aggregation can be sanity-checked by a human.
type RunSummary struct {
	Employees           int
	CommissionContracts int
	OverrideEntries     int
	PolicyContracts     int
	PerformanceEntries  int
	ClawbackEntries     int
	AllowanceEntries    int
	TotalFinalPayment   decimal.Decimal
	TotalCommission     decimal.Decimal
	TotalOverride       decimal.Decimal
	TotalClawback       decimal.Decimal
	SkippedSources      []string
}

// Summarize tallies the aggregation result across all employees.
func Summarize(res *aggregate.Result) RunSummary {
	s := RunSummary{
		Employees:         len(res.Records),
		SkippedSources:    res.Skipped,
		TotalFinalPayment: decimal.Zero,
		TotalCommission:   decimal.Zero,
		TotalOverride:     decimal.Zero,
		TotalClawback:     decimal.Zero,
	}
	for _, rec := range res.Records {
		s.CommissionContracts += len(rec.CommissionContracts)
		s.OverrideEntries += len(rec.OverrideRecords)
		s.PolicyContracts += len(rec.PolicyContracts)
		s.PerformanceEntries += len(rec.PerformanceRecords)
		s.ClawbackEntries += len(rec.ClawbackRecords)
		for _, entries := range rec.AdditionalAllowances {
			s.AllowanceEntries += len(entries)
		}
		s.TotalFinalPayment = s.TotalFinalPayment.Add(rec.Metric(domain.MetricFinalPayment))
		s.TotalCommission = s.TotalCommission.Add(rec.Metric(domain.MetricTotalCommission))
		s.TotalOverride = s.TotalOverride.Add(rec.Metric(domain.MetricTotalOverride))
		s.TotalClawback = s.TotalClawback.Add(rec.Metric(domain.MetricTotalClawback))
	}
	return s
}
