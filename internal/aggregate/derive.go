package aggregate

import (
	"github.com/shopspring/decimal"

	"comppipe/internal/domain"
)

// DeriveSummary recomputes the derived summary metrics of a record as a
// pure function of its four list categories. It overwrites exactly the
// derived keys, so repeated runs are idempotent and never double count.
// Override totals and counts consider receiver-role entries only; the
// originator-side entry of each event exists for cross-reference and must
// not contribute to the originator's own total.
func DeriveSummary(rec *domain.EmployeeRecord) {
	totalCommission := decimal.Zero
	for _, c := range rec.CommissionContracts {
		totalCommission = totalCommission.Add(c.PaidTotal)
	}

	totalOverride := decimal.Zero
	overrideCount := 0
	for _, o := range rec.OverrideRecords {
		if o.Role != domain.RoleReceiver {
			continue
		}
		totalOverride = totalOverride.Add(o.Amount)
		overrideCount++
	}

	totalPolicy := decimal.Zero
	for _, p := range rec.PolicyContracts {
		totalPolicy = totalPolicy.Add(p.TotalPayout)
	}

	totalClawback := decimal.Zero
	for _, c := range rec.ClawbackRecords {
		totalClawback = totalClawback.Add(c.Amount)
	}

	sf := rec.SummaryFinancials
	sf[domain.MetricTotalCommission] = totalCommission
	sf[domain.MetricTotalOverride] = totalOverride
	sf[domain.MetricTotalPolicy] = totalPolicy
	sf[domain.MetricTotalClawback] = totalClawback
	sf[domain.MetricContractCount] = decimal.NewFromInt(int64(len(rec.CommissionContracts)))
	sf[domain.MetricOverrideCount] = decimal.NewFromInt(int64(overrideCount))
	sf[domain.MetricPolicyCount] = decimal.NewFromInt(int64(len(rec.PolicyContracts)))
	sf[domain.MetricClawbackCount] = decimal.NewFromInt(int64(len(rec.ClawbackRecords)))
}
