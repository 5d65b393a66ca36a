package disbursement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

// Method is the payment channel for a disbursement.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCheck        Method = "CHECK"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

// KnownMethod reports whether m is a supported payment method.
func KnownMethod(m Method) bool {
	switch m {
	case MethodCash, MethodCheck, MethodBankTransfer:
		return true
	}
	return false
}

// Disbursement is an outgoing payment, optionally tied to a purchase order.
// It starts CREATED and is finalized by releasing or voiding it.
type Disbursement struct {
	ID              int64
	Number          string
	PurchaseOrderID *int64
	Amount          decimal.Decimal
	Method          Method
	ReferenceNumber string
	Status          docstate.Status
	ProcessedByID   int64
	ReleasedByID    *int64
	ReleasedAt      *time.Time
	Remarks         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
