// Package formatter renders composite employee records into flat documents
// for embedding. The text is a grouped summary rather than a row dump:
// each category section carries a count, a total, and a breakdown by the
// category's natural grouping key, which keeps the text discriminative at
// a bounded length.
package formatter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"comppipe/internal/domain"
)

// Formatter builds documents from employee records.
type Formatter struct{}

// New creates a Formatter.
func New() *Formatter { return &Formatter{} }

var _ domain.Formatter = (*Formatter)(nil)

// Format produces the per-employee documents. Currently one
// employee_profile document per record.
func (f *Formatter) Format(rec *domain.EmployeeRecord) []domain.Document {
	doc := domain.Document{
		ID:      rec.Identifier + "_profile",
		DocType: domain.DocTypeEmployeeProfile,
		Owner:   rec.Identifier,
		Text:    renderProfileText(rec),
		Metadata: map[string]any{
			"identifier":       rec.Identifier,
			"name":             rec.Profile.Name,
			"job_type":         rec.Profile.JobType,
			"affiliation":      rec.Profile.Affiliation,
			"appointment_date": rec.Profile.AppointmentDate,
			"final_payment":    rec.Metric(domain.MetricFinalPayment).InexactFloat64(),
			"total_commission": rec.Metric(domain.MetricTotalCommission).InexactFloat64(),
			"total_override":   rec.Metric(domain.MetricTotalOverride).InexactFloat64(),
			"contract_count":   int(rec.Metric(domain.MetricContractCount).IntPart()),
		},
	}
	return []domain.Document{doc}
}

func renderProfileText(rec *domain.EmployeeRecord) string {
	var parts []string

	parts = append(parts,
		"사번: "+rec.Identifier,
		"사원명: "+rec.Profile.Name,
		"직종: "+rec.Profile.JobType,
		"소속: "+rec.Profile.Affiliation,
		"소속경로: "+rec.Profile.AffiliationPath,
		"위촉일: "+rec.Profile.AppointmentDate,
		"위촉구분: "+rec.Profile.AppointmentType,
	)

	if len(rec.SummaryFinancials) > 0 {
		parts = append(parts,
			"\n## 재무 요약",
			"최종지급액: "+won(rec.Metric(domain.MetricFinalPayment)),
			"총 커미션: "+won(rec.Metric(domain.MetricTotalCommission)),
			"총 오버라이드: "+won(rec.Metric(domain.MetricTotalOverride)),
			"총 시책금액: "+won(rec.Metric(domain.MetricTotalPolicy)),
			"총 환수금액: "+won(rec.Metric(domain.MetricTotalClawback)),
		)
	}

	if n := len(rec.CommissionContracts); n > 0 {
		parts = append(parts, "\n## 수수료 계약: "+count(n))
		groups := groupEntries(n,
			func(i int) string { return rec.CommissionContracts[i].Insurer },
			func(i int) decimal.Decimal { return rec.CommissionContracts[i].PaidTotal })
		total := decimal.Zero
		for _, g := range groups {
			total = total.Add(g.total)
		}
		parts = append(parts, "총 수수료: "+won(total), "보험사별 계약:")
		for _, g := range groups {
			parts = append(parts, "  - "+g.key+": "+count(g.count)+", "+won(g.total))
		}
	}

	if n := len(rec.OverrideRecords); n > 0 {
		receiverTotal := decimal.Zero
		for _, o := range rec.OverrideRecords {
			if o.Role == domain.RoleReceiver {
				receiverTotal = receiverTotal.Add(o.Amount)
			}
		}
		parts = append(parts,
			"\n## 오버라이드: "+count(n),
			"총 오버라이드: "+won(receiverTotal),
		)
		groups := groupEntries(n,
			func(i int) string { return rec.OverrideRecords[i].Kind },
			func(i int) decimal.Decimal { return rec.OverrideRecords[i].Amount })
		for _, g := range groups {
			parts = append(parts, "  - "+g.key+": "+count(g.count)+", "+won(g.total))
		}
	}

	if n := len(rec.PolicyContracts); n > 0 {
		total := decimal.Zero
		for _, p := range rec.PolicyContracts {
			total = total.Add(p.TotalPayout)
		}
		parts = append(parts,
			"\n## 시책 계약: "+count(n),
			"총 시책금액: "+won(total),
		)
	}

	if len(rec.AdditionalAllowances) > 0 {
		var lines []string
		for _, category := range allowanceOrder(rec) {
			total := decimal.Zero
			for _, a := range rec.AdditionalAllowances[category] {
				total = total.Add(a.Amount)
			}
			if total.IsPositive() {
				lines = append(lines, "  - "+category+": "+won(total))
			}
		}
		if len(lines) > 0 {
			parts = append(parts, "\n## 추가 수당")
			parts = append(parts, lines...)
		}
	}

	if n := len(rec.ClawbackRecords); n > 0 {
		total := decimal.Zero
		for _, c := range rec.ClawbackRecords {
			total = total.Add(c.Amount)
		}
		parts = append(parts,
			"\n## 환수 기록: "+count(n),
			"총 환수금액: "+won(total),
		)
		groups := groupEntries(n,
			func(i int) string { return rec.ClawbackRecords[i].Category },
			func(i int) decimal.Decimal { return rec.ClawbackRecords[i].Amount })
		for _, g := range groups {
			parts = append(parts, "  - "+g.key+": "+won(g.total))
		}
	}

	if n := len(rec.PerformanceRecords); n > 0 {
		parts = append(parts, "\n## 업적 기록: "+count(n))
	}

	return strings.Join(parts, "\n")
}

type groupTotal struct {
	key   string
	count int
	total decimal.Decimal
}

// groupEntries buckets n entries by key in first-seen order, summing the
// per-entry amounts.
func groupEntries(n int, key func(int) string, amount func(int) decimal.Decimal) []groupTotal {
	idx := map[string]int{}
	var groups []groupTotal
	for i := 0; i < n; i++ {
		k := key(i)
		j, ok := idx[k]
		if !ok {
			j = len(groups)
			idx[k] = j
			groups = append(groups, groupTotal{key: k, total: decimal.Zero})
		}
		groups[j].count++
		groups[j].total = groups[j].total.Add(amount(i))
	}
	return groups
}

var allowanceCategories = []string{"시책2_지사시책", "손보EXT", "신입IP수당", "MGR상생", "13회차유지"}

// allowanceOrder returns the record's allowance categories in the fixed
// processing order of the allowance sources, so rendering is deterministic.
func allowanceOrder(rec *domain.EmployeeRecord) []string {
	var out []string
	for _, c := range allowanceCategories {
		if _, ok := rec.AdditionalAllowances[c]; ok {
			out = append(out, c)
		}
	}
	// categories from sources added later follow, sorted by name
	var extra []string
	for c := range rec.AdditionalAllowances {
		known := false
		for _, k := range allowanceCategories {
			if c == k {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func count(n int) string {
	return strconv.Itoa(n) + "건"
}

// won renders an amount as a thousands-separated integer with the 원 suffix.
func won(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + "원"
}
