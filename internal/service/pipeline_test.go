package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comppipe/internal/domain"
	"comppipe/internal/formatter"
	"comppipe/internal/logger"
	"comppipe/internal/service"
	"comppipe/internal/tabular"
	"comppipe/internal/vectorindex/memory"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeEmbedder returns a fixed-size vector derived from the text length.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1, 0}
	}
	return out, nil
}

// recordingIndex captures upsert calls for batching assertions.
type recordingIndex struct {
	batches []int
	spaces  []string
}

func (r *recordingIndex) Upsert(ctx context.Context, vectors []domain.Vector, namespace string) error {
	r.batches = append(r.batches, len(vectors))
	r.spaces = append(r.spaces, namespace)
	return nil
}

func (r *recordingIndex) Stats(ctx context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, nil
}

func doc(owner, suffix string) domain.Document {
	return domain.Document{
		ID:      owner + "_" + suffix,
		DocType: domain.DocTypeEmployeeProfile,
		Owner:   owner,
		Text:    "사번: " + owner,
		Metadata: map[string]any{
			"identifier": owner,
			"name":       "직원" + owner,
		},
	}
}

// =============================================================================
// ISOLATION TESTS
// =============================================================================

func TestUpload_IsolationInvariant(t *testing.T) {
	// GIVEN: Two valid documents and one whose metadata identifier was
	//        tampered to another employee
	// WHEN: Uploading
	// THEN: Only the tampered document is rejected; every stored vector's
	//       identifier matches its namespace

	ix := memory.New()
	p := service.New(logger.Nop(), formatter.New(), &fakeEmbedder{}, ix, 100)

	tampered := doc("1001", "extra")
	tampered.Metadata["identifier"] = "9999"
	docs := []domain.Document{doc("1001", "profile"), tampered, doc("1002", "profile")}

	report, err := p.Upload(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 2, report.Uploaded)
	assert.Equal(t, 1, report.Rejected)

	for _, ns := range ix.Namespaces() {
		for _, v := range ix.Vectors(ns) {
			assert.Equal(t, domain.NamespaceFor(v.Metadata["identifier"].(string)), ns)
		}
	}
	assert.Len(t, ix.Vectors("employee_1001"), 1)
	assert.Len(t, ix.Vectors("employee_1002"), 1)
	assert.Empty(t, ix.Vectors("employee_9999"))
}

func TestUpload_VectorMetadataCarriesDocType(t *testing.T) {
	// GIVEN: A valid document
	// WHEN: Uploading
	// THEN: The stored vector carries the document metadata plus doc_type

	ix := memory.New()
	p := service.New(logger.Nop(), formatter.New(), &fakeEmbedder{}, ix, 100)

	_, err := p.Upload(context.Background(), []domain.Document{doc("1001", "profile")})
	require.NoError(t, err)

	vs := ix.Vectors("employee_1001")
	require.Len(t, vs, 1)
	assert.Equal(t, "1001_profile", vs[0].ID)
	assert.Equal(t, domain.DocTypeEmployeeProfile, vs[0].Metadata["doc_type"])
	assert.Equal(t, "직원1001", vs[0].Metadata["name"])
	assert.Len(t, vs[0].Values, 3)
}

// =============================================================================
// BATCHING TESTS
// =============================================================================

func TestUpload_BatchesBounded(t *testing.T) {
	// GIVEN: 250 documents for one employee and an upsert batch size of 100
	// WHEN: Uploading
	// THEN: The index sees batches of 100, 100, 50 under one namespace

	ix := &recordingIndex{}
	p := service.New(logger.Nop(), formatter.New(), &fakeEmbedder{}, ix, 100)

	var docs []domain.Document
	for i := 0; i < 250; i++ {
		docs = append(docs, doc("1001", fmt.Sprintf("part%03d", i)))
	}

	report, err := p.Upload(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 250, report.Uploaded)
	assert.Equal(t, []int{100, 100, 50}, ix.batches)
	for _, ns := range ix.spaces {
		assert.Equal(t, "employee_1001", ns)
	}
}

// =============================================================================
// DOCUMENT BUILD TESTS
// =============================================================================

// fakeSource serves pre-built tables by sheet name.
type fakeSource struct {
	tables map[string]*tabular.Table
}

func (f fakeSource) Table(name string, headerRow int) (*tabular.Table, error) {
	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("sheet %s not found", name)
	}
	return t, nil
}

func minimalWorkbook() fakeSource {
	return fakeSource{tables: map[string]*tabular.Table{
		"인별명세": tabular.New("인별명세",
			[]string{"사번", "사원명", "최종지급액"},
			[][]string{{"1001", "김지수", "1000"}, {"1002", "박민준", "2000"}}),
		"건별수수료": tabular.New("건별수수료",
			[]string{"지급사원번호", "보험사", "[지급수수료] 합계"},
			[][]string{{"1001", "한화생명", "100"}}),
		"건별OR": tabular.New("건별OR",
			[]string{"[오버라이드] 대상자사번", "[오버라이드] 대상자", "[FC] 대상자사번", "[FC] 대상자", "[오버라이드] 종류", "[지급수수료] 오버라이드"},
			[][]string{{"1002", "박민준", "1001", "김지수", "BM 오버라이드", "50"}}),
		"시책건별": tabular.New("시책건별",
			[]string{"사번", "지급 계"},
			[][]string{{"1001", "300"}}),
	}}
}

func TestBuildDocuments_StableOrder(t *testing.T) {
	// GIVEN: The same workbook aggregated twice
	// WHEN: Building documents
	// THEN: Document IDs come out in the same order both times

	p := service.New(logger.Nop(), formatter.New(), &fakeEmbedder{}, memory.New(), 100)

	_, first, err := p.BuildDocuments(minimalWorkbook())
	require.NoError(t, err)
	_, second, err := p.BuildDocuments(minimalWorkbook())
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
	assert.Equal(t, "1001_profile", first[0].ID)
	assert.Equal(t, "1002_profile", first[1].ID)
}

func TestSummarize_ReconcilesCounts(t *testing.T) {
	// GIVEN: An aggregated workbook
	// WHEN: Summarizing
	// THEN: Counts and totals line up with the sources

	p := service.New(logger.Nop(), formatter.New(), &fakeEmbedder{}, memory.New(), 100)
	res, _, err := p.BuildDocuments(minimalWorkbook())
	require.NoError(t, err)

	s := service.Summarize(res)
	assert.Equal(t, 2, s.Employees)
	assert.Equal(t, 1, s.CommissionContracts)
	assert.Equal(t, 2, s.OverrideEntries) // one row, two role entries
	assert.Equal(t, 1, s.PolicyContracts)
	assert.Equal(t, "3000", s.TotalFinalPayment.String())
	assert.Equal(t, "100", s.TotalCommission.String())
	assert.Equal(t, "50", s.TotalOverride.String())
}
