package domain

import "github.com/shopspring/decimal"

// Role tags for override and performance entries.
const (
	RoleReceiver   = "receiver"
	RoleOriginator = "originator"
)

// Derived metric keys in SummaryFinancials. The derivation pass overwrites
// exactly these keys; everything else in the map comes straight from the
// roster source.
const (
	MetricFinalPayment    = "final_payment"
	MetricTotalCommission = "total_commission"
	MetricTotalOverride   = "total_override"
	MetricTotalPolicy     = "total_policy"
	MetricTotalClawback   = "total_clawback"
	MetricContractCount   = "contract_count"
	MetricOverrideCount   = "override_count"
	MetricPolicyCount     = "policy_count"
	MetricClawbackCount   = "clawback_count"
)

// Profile holds the roster-reported attributes of one employee.
// Text fields are "" when the source cell was blank; they are never dropped.
type Profile struct {
	Name            string
	JobType         string
	CareerPath      string
	Affiliation     string
	AffiliationPath string
	AppointmentType string
	AppointmentDate string
	SalesStartDate  string
	ResignationDate string
	NonPaymentFlag  string
	AccountNumber   string
	Bank            string
	ClosingMonth    string
	Org             OrgPath
}

// OrgPath is the roster's current-affiliation breakdown.
type OrgPath struct {
	Company      string
	Division     string
	Headquarters string
	BusinessUnit string
	Agency       string
	Team         string
}

// CommissionContract is one row of the commission-by-contract source.
type CommissionContract struct {
	ClosingMonth     string
	Insurer          string
	PolicyNumber     string
	ContractDate     string
	ContractStatus   string
	Installment      int
	PaymentLogic     string
	PaymentMethod    string
	AdvanceOrSplit   string
	Rule             string
	DistributionRate decimal.Decimal
	Premium          decimal.Decimal
	MFYC             decimal.Decimal
	AFYC             decimal.Decimal
	InsurerConverted decimal.Decimal
	PayoutRate       decimal.Decimal
	PaidRecruitment  decimal.Decimal
	PaidRetention    decimal.Decimal
	PaidAuto         decimal.Decimal
	PaidGeneral      decimal.Decimal
	PaidTotal        decimal.Decimal
	EarnedTotal      decimal.Decimal
	ProductGroup1    string
	ProductGroup2    string
	ProductName      string
	Policyholder     string
	Insured          string
	CrossSell        string
}

// OverrideRecord is one side of an override event. Every source row
// produces two of these: one filed under the receiving employee and one
// under the originating employee, cross-linked through CounterpartID.
type OverrideRecord struct {
	ClosingMonth    string
	Role            string
	Kind            string
	SubjectName     string
	Rule            string
	CounterpartID   string
	CounterpartName string
	TenureMonths    int
	CounterpartRule string
	Insurer         string
	PolicyNumber    string
	ContractDate    string
	ContractStatus  string
	Installment     int
	Method          string
	PaymentMethod   string
	Premium         decimal.Decimal
	MFYC            decimal.Decimal
	AFYC            decimal.Decimal
	LPCommission    decimal.Decimal
	PayoutRate      decimal.Decimal
	Amount          decimal.Decimal
	EarnedTotal     decimal.Decimal
	ProductGroup1   string
	ProductGroup2   string
	ProductName     string
	Policyholder    string
	Insured         string
}

// PolicyContract is one row of the policy-incentive source.
type PolicyContract struct {
	ClosingMonth    string
	Affiliation     string
	Insurer         string
	PolicyNumber    string
	ContractDate    string
	PaymentMethod   string
	FirstPremium    decimal.Decimal
	CMIP            decimal.Decimal
	ProductName     string
	Policyholder    string
	Insured         string
	PaymentTerm     string
	CorporatePayout decimal.Decimal
	AgentPayout     decimal.Decimal
	TotalPayout     decimal.Decimal
	Note            string
}

// PerformanceRecord is one role-tagged row of the performance source.
type PerformanceRecord struct {
	Role             string
	OriginalLP       string
	CollectorLP      string
	RecruiterLP      string
	Insurer          string
	LifeGeneralClass string
	ProductGroup1    string
	ProductGroup2    string
	PolicyNumber     string
	ContractDate     string
	ContractStatus   string
	StatusDetail     string
	StatusChangeDate string
}

// Allowance is one amount-bearing entry under an allowance category.
// Which fields are populated depends on the category.
type Allowance struct {
	Category       string
	Amount         decimal.Decimal
	Note           string
	Insurer        string
	PolicyNumber   string
	ContractDate   string
	Installment    int
	ProductName    string
	ExtraRate      decimal.Decimal
	RecruitPerf    decimal.Decimal
	PayoutBase     decimal.Decimal
	TotalPerf      decimal.Decimal
	GeneralPerf    decimal.Decimal
	PayoutRate     decimal.Decimal
}

// ClawbackRecord is one row of a clawback source, tagged with the category
// it was recovered under.
type ClawbackRecord struct {
	Category        string
	Amount          decimal.Decimal
	Insurer         string
	PolicyNumber    string
	ContractDate    string
	ProductName     string
	ContractStatus  string
	InitialPremium  decimal.Decimal
	ChangedPremium  decimal.Decimal
	IntroducerID    string
	Headcount       int
	AppointmentDate string
	DismissalDate   string
	BaseMonth       string
}

// EmployeeRecord is the composite record for one employee, accumulated
// across all sources and keyed by the normalized identifier.
type EmployeeRecord struct {
	Identifier           string
	Profile              Profile
	CommissionContracts  []CommissionContract
	OverrideRecords      []OverrideRecord
	PolicyContracts      []PolicyContract
	PerformanceRecords   []PerformanceRecord
	AdditionalAllowances map[string][]Allowance
	ClawbackRecords      []ClawbackRecord
	SummaryFinancials    map[string]decimal.Decimal
}

// NewEmployeeRecord creates an empty record for the given identifier.
func NewEmployeeRecord(identifier string) *EmployeeRecord {
	return &EmployeeRecord{
		Identifier:           identifier,
		AdditionalAllowances: map[string][]Allowance{},
		SummaryFinancials:    map[string]decimal.Decimal{},
	}
}

// SetAllowance stores a cardinality-one allowance category, replacing any
// previous value for that category.
func (e *EmployeeRecord) SetAllowance(category string, a Allowance) {
	a.Category = category
	e.AdditionalAllowances[category] = []Allowance{a}
}

// AddAllowance appends to a cardinality-many allowance category.
func (e *EmployeeRecord) AddAllowance(category string, a Allowance) {
	a.Category = category
	e.AdditionalAllowances[category] = append(e.AdditionalAllowances[category], a)
}

// Metric returns a summary financial value, zero when the key is absent.
func (e *EmployeeRecord) Metric(key string) decimal.Decimal {
	return e.SummaryFinancials[key]
}
