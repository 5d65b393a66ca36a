package invoicing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

// Invoice is a supplier billing document. Matching reconciles it against the
// linked purchase order and, under the 3-way policy, the receiving report.
type Invoice struct {
	ID                int64
	Number            string
	InvoiceNumber     string
	InvoiceDate       time.Time
	SupplierID        int64
	PurchaseOrderID   *int64
	ReceivingReportID *int64
	Status            docstate.Status
	TotalAmount       decimal.Decimal
	Remarks           string
	MatchedByID       *int64
	MatchedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
