// Package aggregate builds one composite record per employee out of the
// heterogeneous workbook sources. Sources are processed in a fixed order:
// the roster first, so its profile values are never clobbered by secondary
// sources, then the per-contract sources, then the optional allowance and
// clawback sources, and finally the derivation pass.
package aggregate

import (
	"errors"
	"fmt"

	"comppipe/internal/domain"
	"comppipe/internal/logger"
	"comppipe/internal/tabular"
)

// ErrMissingSource marks a required source that is absent or unreadable.
var ErrMissingSource = errors.New("required source missing")

// Sheet names of the required sources.
const (
	sheetRoster      = "인별명세"
	sheetCommission  = "건별수수료"
	sheetOverride    = "건별OR"
	sheetPolicy      = "시책건별"
	sheetPerformance = "업적"
)

// Counts tallies rows consumed per phase for the run summary.
type Counts struct {
	Employees       int
	CommissionRows  int
	OverrideRows    int
	PolicyRows      int
	PerformanceRows int
	AllowanceRows   int
	ClawbackRows    int
}

// Result is the outcome of one aggregation run. Order lists identifiers in
// first-seen order so downstream output is stable and repeatable.
type Result struct {
	Records map[string]*domain.EmployeeRecord
	Order   []string
	Skipped []string
	Counts  Counts
}

// Record returns the record for an identifier, nil when unseen.
func (r *Result) Record(id string) *domain.EmployeeRecord { return r.Records[id] }

// Aggregator accumulates employee records across sources.
type Aggregator struct {
	log     *logger.Logger
	records map[string]*domain.EmployeeRecord
	order   []string
}

// New creates an Aggregator that logs phase progress to log.
func New(log *logger.Logger) *Aggregator {
	return &Aggregator{log: log, records: map[string]*domain.EmployeeRecord{}}
}

// Aggregate consumes every source in the fixed processing order and
// returns the identifier-keyed record set. A missing required source
// (roster, commission, override, policy) fails the run; optional sources
// are skipped with a warning.
func (a *Aggregator) Aggregate(src tabular.Source) (*Result, error) {
	res := &Result{}
	if err := a.processRoster(src, res); err != nil {
		return nil, err
	}
	if err := a.processCommissions(src, res); err != nil {
		return nil, err
	}
	if err := a.processOverrides(src, res); err != nil {
		return nil, err
	}
	if err := a.processPolicies(src, res); err != nil {
		return nil, err
	}
	a.processPerformance(src, res)
	a.processAllowances(src, res)
	a.processClawbacks(src, res)

	for _, rec := range a.records {
		DeriveSummary(rec)
	}
	a.log.Info("derived summary financials", "employees", len(a.records))

	res.Records = a.records
	res.Order = a.order
	res.Counts.Employees = len(a.records)
	return res, nil
}

// record returns the employee record for id, creating it lazily the first
// time any source references the identifier in any role.
func (a *Aggregator) record(id string) *domain.EmployeeRecord {
	if rec, ok := a.records[id]; ok {
		return rec
	}
	rec := domain.NewEmployeeRecord(id)
	a.records[id] = rec
	a.order = append(a.order, id)
	return rec
}

func (a *Aggregator) requiredTable(src tabular.Source, sheet string, headerRow int, keyCols ...string) (*tabular.Table, error) {
	t, err := src.Table(sheet, headerRow)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingSource, sheet, err)
	}
	if err := t.RequireColumns(keyCols...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	return t, nil
}

// rosterFinancials maps roster columns onto summary metric keys. These are
// the directly-reported values; the derivation pass never touches them.
var rosterFinancials = []struct {
	Metric string
	Column string
}{
	{domain.MetricFinalPayment, "최종지급액"},
	{"commission_subtotal", "커미션계"},
	{"fc_commission_subtotal", "FC 커미션계"},
	{"fc_recruitment_commission", "FC계약모집 커미션Ⅱ"},
	{"cash_incentive", "현금시책"},
	{"fc_retention_commission", "FC계약유지 및 서비스 커미션Ⅱ"},
	{"override_subtotal", "오버라이드계"},
	{"bm_override", "BM 오버라이드Ⅱ"},
	{"md_override", "MD 오버라이드Ⅱ"},
	{"business_unit_override", "사업단장 오버라이드Ⅱ"},
	{"branch_manager_override", "지사장 오버라이드Ⅱ"},
	{"recruiter_override", "유치자 오버라이드Ⅱ"},
	{"common_commission_subtotal", "공통커미션계"},
	{"account_balance_accrued", "Account Balance 당월적립액"},
	{"account_balance_paid", "Account Balance 지급액"},
	{"carryover_clawback", "이월 보수 환수금액"},
	{"unrecovered_reserve", "미환수 유보금액"},
	{"other_commission_subtotal", "기타커미션계"},
	{"branch_payment", "지사지급"},
	{"taxable_subtotal", "과세계"},
	{"deduction_subtotal", "공제계"},
	{"income_tax", "소득세"},
	{"resident_tax", "주민세"},
	{"withholding_tax", "원천세"},
	{"industrial_insurance", "근로산재보험료"},
	{"employment_insurance", "고용보험료"},
}

func (a *Aggregator) processRoster(src tabular.Source, res *Result) error {
	t, err := a.requiredTable(src, sheetRoster, 0, "사번")
	if err != nil {
		return err
	}
	n := 0
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		id := domain.NormalizeIdentifier(row.Text("사번"))
		if id == "" {
			continue
		}
		rec := a.record(id)
		rec.Profile = domain.Profile{
			Name:            row.Text("사원명"),
			JobType:         row.Text("직종"),
			CareerPath:      row.Text("Career Path"),
			Affiliation:     row.Text("소속"),
			AffiliationPath: row.Text("소속경로"),
			AppointmentType: row.Text("위촉구분"),
			AppointmentDate: row.Text("위촉일"),
			SalesStartDate:  row.Text("영업개시일"),
			ResignationDate: row.Text("퇴사일자"),
			NonPaymentFlag:  row.Text("부지급여부"),
			AccountNumber:   row.Text("계좌번호"),
			Bank:            row.Text("은행"),
			ClosingMonth:    row.Text("마감월"),
			Org: domain.OrgPath{
				Company:      row.Text("현재 소속경로_회사"),
				Division:     row.Text("현재 소속경로_구분"),
				Headquarters: row.Text("현재 소속경로_본부"),
				BusinessUnit: row.Text("현재 소속경로_사업단"),
				Agency:       row.Text("현재 소속경로_Agency"),
				Team:         row.Text("현재 소속경로_팀"),
			},
		}
		for _, f := range rosterFinancials {
			rec.SummaryFinancials[f.Metric] = row.Decimal(f.Column)
		}
		n++
	}
	a.log.Info("processed roster", "sheet", sheetRoster, "employees", n)
	return nil
}

func (a *Aggregator) processCommissions(src tabular.Source, res *Result) error {
	t, err := a.requiredTable(src, sheetCommission, 0, "지급사원번호")
	if err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		id := domain.NormalizeIdentifier(row.Text("지급사원번호"))
		if id == "" {
			continue
		}
		rec := a.record(id)
		rec.CommissionContracts = append(rec.CommissionContracts, decodeCommission(row))
		res.Counts.CommissionRows++
	}
	a.log.Info("processed commission contracts", "sheet", sheetCommission, "rows", res.Counts.CommissionRows)
	return nil
}

func decodeCommission(row tabular.Row) domain.CommissionContract {
	return domain.CommissionContract{
		ClosingMonth:     row.Text("마감월"),
		Insurer:          row.Text("보험사"),
		PolicyNumber:     row.Text("증권번호"),
		ContractDate:     row.Text("계약일"),
		ContractStatus:   row.Text("처리계약상태"),
		Installment:      row.Int("처리납입회차"),
		PaymentLogic:     row.Text("지급로직"),
		PaymentMethod:    row.Text("납입방법"),
		AdvanceOrSplit:   row.Text("선지급/분급"),
		Rule:             row.Text("규정"),
		DistributionRate: row.Decimal("배분율"),
		Premium:          row.Decimal("보험료"),
		MFYC:             row.Decimal("MFYC"),
		AFYC:             row.Decimal("AFYC"),
		InsurerConverted: row.Decimal("보험사환산"),
		PayoutRate:       row.Decimal("지급율"),
		PaidRecruitment:  row.Decimal("[지급수수료] 모집"),
		PaidRetention:    row.Decimal("[지급수수료] 유지"),
		PaidAuto:         row.Decimal("[지급수수료] 자동차"),
		PaidGeneral:      row.Decimal("[지급수수료] 일반"),
		PaidTotal:        row.Decimal("[지급수수료] 합계"),
		EarnedTotal:      row.Decimal("[수입수수료] 합계"),
		ProductGroup1:    row.Text("상품군1"),
		ProductGroup2:    row.Text("상품군2"),
		ProductName:      row.Text("상품명"),
		Policyholder:     row.Text("계약자"),
		Insured:          row.Text("피보험자"),
		CrossSell:        row.Text("교차판매"),
	}
}

// processOverrides files every override row twice: once under the receiving
// employee and once under the originating one, each side cross-linked to
// the counterpart. A self-override (both columns naming the same employee)
// still yields both entries; the receiver-only summation keeps the totals
// correct.
func (a *Aggregator) processOverrides(src tabular.Source, res *Result) error {
	t, err := a.requiredTable(src, sheetOverride, 0, "[오버라이드] 대상자사번", "[FC] 대상자사번")
	if err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		receiverID := domain.NormalizeIdentifier(row.Text("[오버라이드] 대상자사번"))
		if receiverID == "" {
			continue
		}
		originatorID := domain.NormalizeIdentifier(row.Text("[FC] 대상자사번"))
		base := decodeOverride(row)

		recv := base
		recv.Role = domain.RoleReceiver
		recv.CounterpartID = originatorID
		recv.CounterpartName = row.Text("[FC] 대상자")
		receiver := a.record(receiverID)
		receiver.OverrideRecords = append(receiver.OverrideRecords, recv)

		if originatorID != "" {
			orig := base
			orig.Role = domain.RoleOriginator
			orig.CounterpartID = receiverID
			orig.CounterpartName = row.Text("[오버라이드] 대상자")
			originator := a.record(originatorID)
			originator.OverrideRecords = append(originator.OverrideRecords, orig)
		}
		res.Counts.OverrideRows++
	}
	a.log.Info("processed override records", "sheet", sheetOverride, "rows", res.Counts.OverrideRows)
	return nil
}

func decodeOverride(row tabular.Row) domain.OverrideRecord {
	return domain.OverrideRecord{
		ClosingMonth:    row.Text("마감월"),
		Kind:            row.Text("[오버라이드] 종류"),
		SubjectName:     row.Text("[오버라이드] 대상자"),
		Rule:            row.Text("[오버라이드] 규정"),
		TenureMonths:    row.Int("[FC] 입사차월"),
		CounterpartRule: row.Text("[FC] 규정"),
		Insurer:         row.Text("보험사"),
		PolicyNumber:    row.Text("증권번호"),
		ContractDate:    row.Text("계약일"),
		ContractStatus:  row.Text("처리계약상태"),
		Installment:     row.Int("처리납입회차"),
		Method:          row.Text("계산방식"),
		PaymentMethod:   row.Text("납입방법"),
		Premium:         row.Decimal("보험료"),
		MFYC:            row.Decimal("MFYC"),
		AFYC:            row.Decimal("AFYC"),
		LPCommission:    row.Decimal("LP커미션"),
		PayoutRate:      row.Decimal("[지급수수료] 지급율"),
		Amount:          row.Decimal("[지급수수료] 오버라이드"),
		EarnedTotal:     row.Decimal("[수입수수료] 합계"),
		ProductGroup1:   row.Text("상품군1"),
		ProductGroup2:   row.Text("상품군2"),
		ProductName:     row.Text("상품명"),
		Policyholder:    row.Text("계약자"),
		Insured:         row.Text("피보험자"),
	}
}

func (a *Aggregator) processPolicies(src tabular.Source, res *Result) error {
	t, err := a.requiredTable(src, sheetPolicy, 0, "사번")
	if err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		id := domain.NormalizeIdentifier(row.Text("사번"))
		if id == "" {
			continue
		}
		rec := a.record(id)
		rec.PolicyContracts = append(rec.PolicyContracts, domain.PolicyContract{
			ClosingMonth:    row.Text("마감월"),
			Affiliation:     row.Text("소속"),
			Insurer:         row.Text("보험사"),
			PolicyNumber:    row.Text("증권번호"),
			ContractDate:    row.Text("계약일자"),
			PaymentMethod:   row.Text("납입\n방법"),
			FirstPremium:    row.Decimal("초회보험료"),
			CMIP:            row.Decimal("CMIP"),
			ProductName:     row.Text("상품명"),
			Policyholder:    row.Text("계약자"),
			Insured:         row.Text("피보험자"),
			PaymentTerm:     row.Text("납입기간"),
			CorporatePayout: row.Decimal("지급시책\n_법인"),
			AgentPayout:     row.Decimal("지급시책\n_사용인"),
			TotalPayout:     row.Decimal("지급 계"),
			Note:            row.Text("비고"),
		})
		res.Counts.PolicyRows++
	}
	a.log.Info("processed policy contracts", "sheet", sheetPolicy, "rows", res.Counts.PolicyRows)
	return nil
}

// performanceRoles lists the identifier columns a performance row may name.
// Each non-blank column files one role-tagged entry under that employee.
var performanceRoles = []struct {
	Role   string
	Column string
}{
	{"collector", "수금LP사번"},
	{"recruiter", "모집LP사번"},
	{"original_recruiter", "원모집FC사번"},
}

func (a *Aggregator) processPerformance(src tabular.Source, res *Result) {
	t, err := src.Table(sheetPerformance, 2)
	if err != nil {
		a.log.Warn("skipping performance source", "sheet", sheetPerformance, "error", err)
		res.Skipped = append(res.Skipped, sheetPerformance)
		return
	}
	n := 0
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		for _, rc := range performanceRoles {
			id := domain.NormalizeIdentifier(row.Text(rc.Column))
			if id == "" {
				continue
			}
			rec := a.record(id)
			rec.PerformanceRecords = append(rec.PerformanceRecords, domain.PerformanceRecord{
				Role:             rc.Role,
				OriginalLP:       row.Text("원모집LP"),
				CollectorLP:      row.Text("수금LP"),
				RecruiterLP:      row.Text("모집LP"),
				Insurer:          row.Text("보험사"),
				LifeGeneralClass: row.Text("생손보구분"),
				ProductGroup1:    row.Text("상품군1"),
				ProductGroup2:    row.Text("상품군2"),
				PolicyNumber:     row.Text("증권번호"),
				ContractDate:     row.Text("계약일자"),
				ContractStatus:   row.Text("계약상태"),
				StatusDetail:     row.Text("계약상세상태"),
				StatusChangeDate: row.Text("상태변경일"),
			})
			n++
		}
	}
	res.Counts.PerformanceRows = n
	a.log.Info("processed performance records", "sheet", sheetPerformance, "entries", n)
}
