package procurement

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

// MaterialRequest is a site-originated request for materials or labor.
type MaterialRequest struct {
	ID           int64
	Number       string
	ProjectID    int64
	RequesterID  int64
	ApproverID   *int64
	ApproverRole string
	Status       docstate.Status
	TotalAmount  decimal.Decimal
	Remarks      string
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MRItem is one requested line. Material and labor are priced separately.
type MRItem struct {
	ID                int64
	MaterialRequestID int64
	MaterialID        int64
	Description       string
	Quantity          decimal.Decimal
	Unit              string
	MaterialUnitPrice decimal.Decimal
	LaborUnitPrice    decimal.Decimal
}

// LineAmount returns quantity x (material + labor unit price).
func (i MRItem) LineAmount() decimal.Decimal {
	return i.Quantity.Mul(i.MaterialUnitPrice.Add(i.LaborUnitPrice))
}

// PurchaseOrder is a commitment to a supplier. TotalAmount is always derived
// from the items server-side, never trusted from the caller.
type PurchaseOrder struct {
	ID           int64
	Number       string
	ProjectID    int64
	SupplierID   int64
	RequesterID  int64
	ApproverID   *int64
	ApproverRole string
	Status       docstate.Status
	TotalAmount  decimal.Decimal
	Remarks      string
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// POItem is one ordered line. TotalPrice always equals Quantity x UnitPrice.
type POItem struct {
	ID              int64
	PurchaseOrderID int64
	MaterialID      int64
	Description     string
	Quantity        decimal.Decimal
	Unit            string
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
}

// ReceivingReport evidences physical delivery against a purchase order.
type ReceivingReport struct {
	ID              int64
	Number          string
	PurchaseOrderID int64
	ReceivedBy      int64
	ReceivedDate    time.Time
	Remarks         string
	CreatedAt       time.Time
}

// ReceivingReportItem records one received line.
type ReceivingReportItem struct {
	ID                int64
	ReceivingReportID int64
	POItemID          *int64
	Description       string
	Quantity          decimal.Decimal
	Unit              string
}
