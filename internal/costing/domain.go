package costing

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

// ProjectSnapshot is one project row as read for aggregation.
type ProjectSnapshot struct {
	ID     int64
	Name   string
	Budget decimal.Decimal
}

// POSnapshot is one purchase order header as read for aggregation.
type POSnapshot struct {
	ID          int64
	ProjectID   int64
	Status      docstate.Status
	TotalAmount decimal.Decimal
}

// InvoiceSnapshot is one invoice as read for aggregation. Invoices without a
// PO link never contribute to a project rollup.
type InvoiceSnapshot struct {
	ID              int64
	PurchaseOrderID *int64
	Status          docstate.Status
	TotalAmount     decimal.Decimal
}

// DisbursementSnapshot is one disbursement as read for aggregation.
type DisbursementSnapshot struct {
	ID              int64
	PurchaseOrderID *int64
	Status          docstate.Status
	Amount          decimal.Decimal
}

// Snapshot is the full read set one aggregation call consumes. It is taken
// in a single pass so all figures describe the same moment.
type Snapshot struct {
	Projects      []ProjectSnapshot
	POs           []POSnapshot
	Invoices      []InvoiceSnapshot
	Disbursements []DisbursementSnapshot
}

// ProjectCostSummary is one project's rollup. All figures stay decimal until
// the presentation boundary.
type ProjectCostSummary struct {
	ProjectID   int64
	ProjectName string
	Budget      decimal.Decimal
	Committed   decimal.Decimal
	Invoiced    decimal.Decimal
	Paid        decimal.Decimal
	Remaining   decimal.Decimal
	Progress    decimal.Decimal
}
