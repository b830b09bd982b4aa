package aggregate

import (
	"comppipe/internal/domain"
	"comppipe/internal/tabular"
)

// allowanceSource describes one optional allowance sheet. The sheets vary
// in header-row offset and key column, so each carries its own layout.
// list marks categories that accumulate one entry per row instead of a
// single value per employee.
type allowanceSource struct {
	sheet     string
	headerRow int
	keyColumn string
	category  string
	list      bool
	decode    func(tabular.Row) domain.Allowance
}

var allowanceSources = []allowanceSource{
	{"시책2 인별명세", 4, "FC 사번", "시책2_지사시책", false, decodeBranchIncentive},
	{"손보EXT", 4, "FC 사번", "손보EXT", false, decodeGeneralExt},
	{"수당_신입IP(2025위촉)", 5, "FC 사번", "신입IP수당", false, decodeNewIPAllowance},
	{"MGR상생(BM)", 4, "사번", "MGR상생", false, decodeManagerSupport},
	{"13회차 유지(4%)", 4, "FC 사번", "13회차유지", true, decodeRetentionBonus},
}

// processAllowances consumes each allowance sheet independently. A failure
// on one sheet leaves its category absent everywhere; decoded rows are
// staged and only committed once the whole sheet parsed, so a category is
// never partially populated.
func (a *Aggregator) processAllowances(src tabular.Source, res *Result) {
	for _, s := range allowanceSources {
		t, err := src.Table(s.sheet, s.headerRow)
		if err != nil {
			a.log.Warn("skipping allowance source", "sheet", s.sheet, "error", err)
			res.Skipped = append(res.Skipped, s.sheet)
			continue
		}
		if err := t.RequireColumns(s.keyColumn); err != nil {
			a.log.Warn("skipping allowance source", "sheet", s.sheet, "error", err)
			res.Skipped = append(res.Skipped, s.sheet)
			continue
		}
		type staged struct {
			id string
			a  domain.Allowance
		}
		var entries []staged
		for i := 0; i < t.Len(); i++ {
			row := t.Row(i)
			id := domain.NormalizeIdentifier(row.Text(s.keyColumn))
			if id == "" {
				continue
			}
			entries = append(entries, staged{id: id, a: s.decode(row)})
		}
		for _, e := range entries {
			rec := a.record(e.id)
			if s.list {
				rec.AddAllowance(s.category, e.a)
			} else {
				rec.SetAllowance(s.category, e.a)
			}
		}
		res.Counts.AllowanceRows += len(entries)
		a.log.Info("processed allowance source", "sheet", s.sheet, "rows", len(entries))
	}
}

func decodeBranchIncentive(row tabular.Row) domain.Allowance {
	return domain.Allowance{
		Amount: row.Decimal("지급액"),
		Note:   row.Text("비고"),
	}
}

func decodeGeneralExt(row tabular.Row) domain.Allowance {
	return domain.Allowance{
		Amount: row.Decimal("손보시책 Ext"),
		Note:   row.Text("비고"),
	}
}

func decodeNewIPAllowance(row tabular.Row) domain.Allowance {
	return domain.Allowance{
		Amount:      row.Decimal("지급액"),
		RecruitPerf: row.Decimal("모집(환산)업적"),
		PayoutBase:  row.Decimal("지급대상액"),
	}
}

func decodeManagerSupport(row tabular.Row) domain.Allowance {
	return domain.Allowance{
		Amount:      row.Decimal("활성화 지원금"),
		TotalPerf:   row.Decimal("총 모집업적\n(생,손보)"),
		GeneralPerf: row.Decimal("손보모집업적(①)"),
		PayoutRate:  row.Decimal("지급율(%)"),
	}
}

func decodeRetentionBonus(row tabular.Row) domain.Allowance {
	return domain.Allowance{
		Insurer:      row.Text("보험사"),
		PolicyNumber: row.Text("증번"),
		ContractDate: row.Text("계약일"),
		Installment:  row.Int("회차"),
		ProductName:  row.Text("상품명"),
		ExtraRate:    row.Decimal("추가지급율"),
		Amount:       row.Decimal("지급액"),
		Note:         row.Text("비고"),
	}
}

// clawbackSource describes one optional clawback sheet.
type clawbackSource struct {
	sheet     string
	headerRow int
	keyColumn string
	category  string
	decode    func(tabular.Row) domain.ClawbackRecord
}

var clawbackSources = []clawbackSource{
	{"환수_시책2지급분_완료", 5, "사번", "시책2지급분", decodeIncentiveClawback},
	{"환수_소개비_완료", 5, "사번", "소개비", decodeReferralClawback},
	{"환수_교육비_완료", 18, "사번", "교육비", decodeTrainingClawback},
}

func (a *Aggregator) processClawbacks(src tabular.Source, res *Result) {
	for _, s := range clawbackSources {
		t, err := src.Table(s.sheet, s.headerRow)
		if err != nil {
			a.log.Warn("skipping clawback source", "sheet", s.sheet, "error", err)
			res.Skipped = append(res.Skipped, s.sheet)
			continue
		}
		if err := t.RequireColumns(s.keyColumn); err != nil {
			a.log.Warn("skipping clawback source", "sheet", s.sheet, "error", err)
			res.Skipped = append(res.Skipped, s.sheet)
			continue
		}
		type staged struct {
			id string
			c  domain.ClawbackRecord
		}
		var entries []staged
		for i := 0; i < t.Len(); i++ {
			row := t.Row(i)
			id := domain.NormalizeIdentifier(row.Text(s.keyColumn))
			if id == "" {
				continue
			}
			c := s.decode(row)
			c.Category = s.category
			entries = append(entries, staged{id: id, c: c})
		}
		for _, e := range entries {
			rec := a.record(e.id)
			rec.ClawbackRecords = append(rec.ClawbackRecords, e.c)
		}
		res.Counts.ClawbackRows += len(entries)
		a.log.Info("processed clawback source", "sheet", s.sheet, "rows", len(entries))
	}
}

func decodeIncentiveClawback(row tabular.Row) domain.ClawbackRecord {
	return domain.ClawbackRecord{
		Insurer:        row.Text("보험사"),
		PolicyNumber:   row.Text("증번"),
		ContractDate:   row.Text("계약일"),
		ProductName:    row.Text("상품명"),
		ContractStatus: row.Text("계약상태"),
		InitialPremium: row.Decimal("초기_월납P"),
		ChangedPremium: row.Decimal("변경_월납P"),
		Amount:         row.Decimal("지급액"),
	}
}

func decodeReferralClawback(row tabular.Row) domain.ClawbackRecord {
	return domain.ClawbackRecord{
		IntroducerID:    domain.NormalizeIdentifier(row.Text("도입자사번")),
		Headcount:       row.Int("도입인원"),
		AppointmentDate: row.Text("위촉일"),
		DismissalDate:   row.Text("해촉일"),
		Amount:          row.Decimal("환수대상액"),
	}
}

func decodeTrainingClawback(row tabular.Row) domain.ClawbackRecord {
	return domain.ClawbackRecord{
		AppointmentDate: row.Text("위촉일"),
		DismissalDate:   row.Text("해촉일"),
		Amount:          row.Decimal("환수대상액"),
		BaseMonth:       row.Text("기준월"),
	}
}
