package aggregate_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comppipe/internal/aggregate"
	"comppipe/internal/domain"
	"comppipe/internal/logger"
	"comppipe/internal/tabular"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

// fakeSource serves pre-built tables by sheet name, ignoring header offsets.
type fakeSource struct {
	tables map[string]*tabular.Table
	broken map[string]bool
}

func (f fakeSource) Table(name string, headerRow int) (*tabular.Table, error) {
	if f.broken[name] {
		return nil, errors.New("unreadable sheet")
	}
	t, ok := f.tables[name]
	if !ok {
		return nil, fmt.Errorf("sheet %s not found", name)
	}
	return t, nil
}

func table(name string, header []string, rows ...[]string) *tabular.Table {
	return tabular.New(name, header, rows)
}

// newWorkbook builds the minimal valid set of required sources:
// two rostered employees, three commission rows, one override row and one
// policy row.
func newWorkbook() fakeSource {
	return fakeSource{
		tables: map[string]*tabular.Table{
			"인별명세": table("인별명세",
				[]string{"사번", "사원명", "직종", "소속", "위촉일", "최종지급액"},
				[]string{"1001", "김지수", "FC", "강남지사", "2023-01-15", "1500000"},
				[]string{"1002", "박민준", "BM", "강남지사", "2020-05-01", "2400000"},
			),
			"건별수수료": table("건별수수료",
				[]string{"지급사원번호", "보험사", "[지급수수료] 합계"},
				[]string{"1001", "한화생명", "60"},
				[]string{"1001", "한화생명", "40"},
				[]string{"1001", "삼성화재", "50"},
			),
			"건별OR": table("건별OR",
				[]string{"[오버라이드] 대상자사번", "[오버라이드] 대상자", "[FC] 대상자사번", "[FC] 대상자", "[오버라이드] 종류", "[지급수수료] 오버라이드"},
				[]string{"1002", "박민준", "1001", "김지수", "BM 오버라이드", "500"},
			),
			"시책건별": table("시책건별",
				[]string{"사번", "보험사", "지급 계"},
				[]string{"1001", "한화생명", "300"},
			),
		},
		broken: map[string]bool{},
	}
}

func aggregateAll(t *testing.T, src fakeSource) *aggregate.Result {
	t.Helper()
	res, err := aggregate.New(logger.Nop()).Aggregate(src)
	require.NoError(t, err)
	return res
}

// =============================================================================
// DERIVATION TESTS
// =============================================================================

func TestAggregate_DerivedTotals(t *testing.T) {
	// GIVEN: Three commission rows, one override row, one policy row
	// WHEN: Aggregating
	// THEN: Derived totals equal the list sums, counts match

	res := aggregateAll(t, newWorkbook())
	rec := res.Record("1001")
	require.NotNil(t, rec)

	assert.Equal(t, "150", rec.Metric(domain.MetricTotalCommission).String())
	assert.Equal(t, "300", rec.Metric(domain.MetricTotalPolicy).String())
	assert.Equal(t, "3", rec.Metric(domain.MetricContractCount).String())
	assert.Equal(t, "1", rec.Metric(domain.MetricPolicyCount).String())
	// roster-reported value stays untouched by derivation
	assert.Equal(t, "1500000", rec.Metric(domain.MetricFinalPayment).String())
}

func TestAggregate_DerivationIdempotent(t *testing.T) {
	// GIVEN: A fully aggregated record set
	// WHEN: Running the derivation pass a second and third time
	// THEN: Summary financials are unchanged — no accumulation across runs

	res := aggregateAll(t, newWorkbook())
	rec := res.Record("1002")
	require.NotNil(t, rec)

	before := map[string]string{}
	for k, v := range rec.SummaryFinancials {
		before[k] = v.String()
	}

	aggregate.DeriveSummary(rec)
	aggregate.DeriveSummary(rec)

	require.Len(t, rec.SummaryFinancials, len(before))
	for k, v := range rec.SummaryFinancials {
		assert.Equal(t, before[k], v.String(), "metric %s", k)
	}
}

// =============================================================================
// OVERRIDE DOUBLE-ENTRY TESTS
// =============================================================================

func TestAggregate_OverrideDoubleEntry(t *testing.T) {
	// GIVEN: One override row naming 1002 as receiver and 1001 as originator
	// WHEN: Aggregating
	// THEN: Exactly two entries exist, cross-referencing each other

	res := aggregateAll(t, newWorkbook())
	receiver := res.Record("1002")
	originator := res.Record("1001")
	require.NotNil(t, receiver)
	require.NotNil(t, originator)

	require.Len(t, receiver.OverrideRecords, 1)
	require.Len(t, originator.OverrideRecords, 1)

	recv := receiver.OverrideRecords[0]
	orig := originator.OverrideRecords[0]
	assert.Equal(t, domain.RoleReceiver, recv.Role)
	assert.Equal(t, domain.RoleOriginator, orig.Role)
	assert.Equal(t, "1001", recv.CounterpartID)
	assert.Equal(t, "김지수", recv.CounterpartName)
	assert.Equal(t, "1002", orig.CounterpartID)
	assert.Equal(t, "박민준", orig.CounterpartName)
	assert.Equal(t, "500", recv.Amount.String())
	assert.Equal(t, "500", orig.Amount.String())
}

func TestAggregate_RoleFilteredSummation(t *testing.T) {
	// GIVEN: 1001 appears only as originator, 1002 only as receiver
	// WHEN: Deriving totals
	// THEN: The originator's own override total is zero

	res := aggregateAll(t, newWorkbook())

	assert.Equal(t, "500", res.Record("1002").Metric(domain.MetricTotalOverride).String())
	assert.Equal(t, "1", res.Record("1002").Metric(domain.MetricOverrideCount).String())

	assert.Equal(t, "0", res.Record("1001").Metric(domain.MetricTotalOverride).String())
	assert.Equal(t, "0", res.Record("1001").Metric(domain.MetricOverrideCount).String())
}

func TestAggregate_SelfOverrideKeepsBothEntries(t *testing.T) {
	// GIVEN: An override row where receiver and originator are the same employee
	// WHEN: Aggregating
	// THEN: Both role entries land on the one record; the amount counts once

	src := newWorkbook()
	src.tables["건별OR"] = table("건별OR",
		[]string{"[오버라이드] 대상자사번", "[오버라이드] 대상자", "[FC] 대상자사번", "[FC] 대상자", "[오버라이드] 종류", "[지급수수료] 오버라이드"},
		[]string{"1001", "김지수", "1001", "김지수", "유치자 오버라이드", "700"},
	)

	res := aggregateAll(t, src)
	rec := res.Record("1001")
	require.NotNil(t, rec)

	require.Len(t, rec.OverrideRecords, 2)
	assert.Equal(t, domain.RoleReceiver, rec.OverrideRecords[0].Role)
	assert.Equal(t, domain.RoleOriginator, rec.OverrideRecords[1].Role)
	assert.Equal(t, "700", rec.Metric(domain.MetricTotalOverride).String())
	assert.Equal(t, "1", rec.Metric(domain.MetricOverrideCount).String())
}

// =============================================================================
// SOURCE HANDLING TESTS
// =============================================================================

func TestAggregate_MissingRequiredSourceFails(t *testing.T) {
	// GIVEN: An unreadable commission sheet
	// WHEN: Aggregating
	// THEN: The run fails with ErrMissingSource

	src := newWorkbook()
	src.broken["건별수수료"] = true

	_, err := aggregate.New(logger.Nop()).Aggregate(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, aggregate.ErrMissingSource)
}

func TestAggregate_MissingKeyColumnIsMissingSource(t *testing.T) {
	// GIVEN: A roster sheet without its identifier column
	// WHEN: Aggregating
	// THEN: The run fails with ErrMissingSource

	src := newWorkbook()
	src.tables["인별명세"] = table("인별명세", []string{"사원명"}, []string{"김지수"})

	_, err := aggregate.New(logger.Nop()).Aggregate(src)
	assert.ErrorIs(t, err, aggregate.ErrMissingSource)
}

func TestAggregate_MalformedOptionalSourceSkipped(t *testing.T) {
	// GIVEN: A valid required set plus one healthy and one unreadable
	//        allowance sheet
	// WHEN: Aggregating
	// THEN: The run completes, the healthy category is present and the
	//       broken one is simply absent

	src := newWorkbook()
	src.tables["손보EXT"] = table("손보EXT",
		[]string{"FC 사번", "손보시책 Ext", "비고"},
		[]string{"1001", "30000", "특별지급"},
	)
	src.broken["시책2 인별명세"] = true

	res := aggregateAll(t, src)
	rec := res.Record("1001")
	require.NotNil(t, rec)

	require.Contains(t, rec.AdditionalAllowances, "손보EXT")
	assert.Equal(t, "30000", rec.AdditionalAllowances["손보EXT"][0].Amount.String())
	assert.NotContains(t, rec.AdditionalAllowances, "시책2_지사시책")
	assert.Contains(t, res.Skipped, "시책2 인별명세")

	// other records remain intact
	assert.Equal(t, "150", rec.Metric(domain.MetricTotalCommission).String())
}

func TestAggregate_RetentionBonusAccumulates(t *testing.T) {
	// GIVEN: Two retention-bonus rows for the same employee
	// WHEN: Aggregating
	// THEN: The category holds both entries in row order

	src := newWorkbook()
	src.tables["13회차 유지(4%)"] = table("13회차 유지(4%)",
		[]string{"FC 사번", "보험사", "증번", "지급액"},
		[]string{"1001", "한화생명", "P-1", "1000"},
		[]string{"1001", "삼성화재", "P-2", "2000"},
	)

	res := aggregateAll(t, src)
	entries := res.Record("1001").AdditionalAllowances["13회차유지"]
	require.Len(t, entries, 2)
	assert.Equal(t, "P-1", entries[0].PolicyNumber)
	assert.Equal(t, "P-2", entries[1].PolicyNumber)
}

func TestAggregate_ClawbackCategoryTagged(t *testing.T) {
	// GIVEN: A training-fee clawback row
	// WHEN: Aggregating
	// THEN: The entry carries its category and feeds the derived total

	src := newWorkbook()
	src.tables["환수_교육비_완료"] = table("환수_교육비_완료",
		[]string{"사번", "위촉일", "해촉일", "환수대상액", "기준월"},
		[]string{"1002", "2020-05-01", "2025-03-31", "120000", "202503"},
	)

	res := aggregateAll(t, src)
	rec := res.Record("1002")
	require.Len(t, rec.ClawbackRecords, 1)
	assert.Equal(t, "교육비", rec.ClawbackRecords[0].Category)
	assert.Equal(t, "120000", rec.Metric(domain.MetricTotalClawback).String())
	assert.Equal(t, "1", rec.Metric(domain.MetricClawbackCount).String())
}

// =============================================================================
// IDENTIFIER TESTS
// =============================================================================

func TestAggregate_IdentifierNormalizationCollides(t *testing.T) {
	// GIVEN: A commission row keyed "1001.0" for rostered employee "1001"
	// WHEN: Aggregating
	// THEN: Both land on the same record

	src := newWorkbook()
	src.tables["건별수수료"] = table("건별수수료",
		[]string{"지급사원번호", "보험사", "[지급수수료] 합계"},
		[]string{"1001.0", "한화생명", "100"},
	)

	res := aggregateAll(t, src)
	rec := res.Record("1001")
	require.NotNil(t, rec)
	assert.Equal(t, "김지수", rec.Profile.Name)
	require.Len(t, rec.CommissionContracts, 1)
	assert.Nil(t, res.Record("1001.0"))
}

func TestAggregate_UnseenEmployeeCreatedLazily(t *testing.T) {
	// GIVEN: A commission row for an employee absent from the roster
	// WHEN: Aggregating
	// THEN: A minimal record exists with the contract attached

	src := newWorkbook()
	src.tables["건별수수료"] = table("건별수수료",
		[]string{"지급사원번호", "보험사", "[지급수수료] 합계"},
		[]string{"9999", "교보생명", "80"},
	)

	res := aggregateAll(t, src)
	rec := res.Record("9999")
	require.NotNil(t, rec)
	assert.Equal(t, "", rec.Profile.Name)
	assert.Equal(t, "80", rec.Metric(domain.MetricTotalCommission).String())
}

func TestAggregate_FirstSeenOrderStable(t *testing.T) {
	// GIVEN: The standard workbook
	// WHEN: Aggregating twice
	// THEN: The identifier order is identical across runs

	first := aggregateAll(t, newWorkbook())
	second := aggregateAll(t, newWorkbook())
	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, []string{"1001", "1002"}, first.Order)
}
