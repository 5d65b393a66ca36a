package workflow

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessType identifies the document flow a rule applies to.
type ProcessType string

const (
	ProcessMaterialRequest ProcessType = "MATERIAL_REQUEST"
	ProcessPurchaseOrder   ProcessType = "PURCHASE_ORDER"
	ProcessDisbursement    ProcessType = "DISBURSEMENT"
)

// KnownProcessType reports whether p is one of the fixed process types.
func KnownProcessType(p ProcessType) bool {
	switch p {
	case ProcessMaterialRequest, ProcessPurchaseOrder, ProcessDisbursement:
		return true
	}
	return false
}

// Rule maps an amount bracket of a process to the role that must approve it.
// A nil MaxAmount means the bracket is open above.
type Rule struct {
	ID           int64
	ProcessType  ProcessType
	MinAmount    decimal.Decimal
	MaxAmount    *decimal.Decimal
	ApproverRole string
	StepOrder    int
	CreatedAt    time.Time
}

// Covers reports whether amount falls inside the rule's bracket.
func (r Rule) Covers(amount decimal.Decimal) bool {
	if amount.LessThan(r.MinAmount) {
		return false
	}
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		return false
	}
	return true
}

// Resolution is the outcome of an approver lookup.
type Resolution struct {
	ApproverRole string
	StepOrder    int
}
