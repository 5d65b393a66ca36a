package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PurchaseOrderPort verifies the purchase order an invoice links to.
type PurchaseOrderPort interface {
	PurchaseOrderStatus(ctx context.Context, id int64) (docstate.Status, error)
}

// AuditPort records audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records approval history entries.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Config carries invoicing policy.
type Config struct {
	// RequireReceivingReport switches matching from 2-way to 3-way. With it
	// set, an invoice cannot be matched unless it links a receiving report.
	RequireReceivingReport bool
}

// Service owns supplier invoices and the matching flow.
type Service struct {
	repo      RepositoryPort
	orders    PurchaseOrderPort
	approvals ApprovalPort
	audit     AuditPort
	cfg       Config
}

// NewService constructs the invoicing service.
func NewService(repo RepositoryPort, orders PurchaseOrderPort, approvals ApprovalPort, audit AuditPort, cfg Config) *Service {
	return &Service{repo: repo, orders: orders, approvals: approvals, audit: audit, cfg: cfg}
}

// CreateInvoiceInput describes an invoice registration payload.
type CreateInvoiceInput struct {
	InvoiceNumber     string
	InvoiceDate       time.Time
	SupplierID        int64
	PurchaseOrderID   *int64
	ReceivingReportID *int64
	TotalAmount       decimal.Decimal
	Remarks           string
	ActorID           int64
}

// CreateInvoice registers a supplier invoice in PENDING. Linkage to a PO is
// optional at registration time; matching enforces it later.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if input.InvoiceNumber == "" {
		return Invoice{}, shared.ValidationError("invoice number is required")
	}
	if input.SupplierID <= 0 {
		return Invoice{}, shared.ValidationError("supplier is required")
	}
	if input.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return Invoice{}, shared.ValidationError("total amount must be positive")
	}
	if input.PurchaseOrderID != nil {
		if _, err := s.orders.PurchaseOrderStatus(ctx, *input.PurchaseOrderID); err != nil {
			return Invoice{}, err
		}
	}
	invoiceDate := input.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}
	inv := Invoice{
		Number:            fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		InvoiceNumber:     input.InvoiceNumber,
		InvoiceDate:       invoiceDate,
		SupplierID:        input.SupplierID,
		PurchaseOrderID:   input.PurchaseOrderID,
		ReceivingReportID: input.ReceivingReportID,
		Status:            docstate.Initial(docstate.DocInvoice),
		TotalAmount:       input.TotalAmount,
		Remarks:           input.Remarks,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	s.recordAudit(ctx, input.ActorID, "INVOICE_CREATE", inv.ID, map[string]any{"number": inv.Number, "total": inv.TotalAmount.String()})
	return inv, nil
}

// MatchInvoice reconciles a pending invoice against its purchase order and,
// when 3-way matching is enabled, the receiving report. A repeat call on a
// matched invoice fails with AlreadyMatched and writes nothing.
func (s *Service) MatchInvoice(ctx context.Context, id int64, actor shared.Actor) error {
	if actor.ID <= 0 {
		return shared.ValidationError("actor is required")
	}
	now := time.Now()
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		number = inv.Number
		next, err := docstate.Next(docstate.DocInvoice, docstate.ActionMatch, inv.Status)
		if err != nil {
			return err
		}
		if inv.PurchaseOrderID == nil {
			return shared.MissingLinkageError("missing purchase order link")
		}
		if s.cfg.RequireReceivingReport && inv.ReceivingReportID == nil {
			return shared.MissingLinkageError("missing receiving report link")
		}
		return tx.SetInvoiceStatus(ctx, id, inv.Status, next, actor.ID, now)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, id, actor.ID, shared.ApprovalApprove, fmt.Sprintf("invoice %s matched", number))
	s.recordAudit(ctx, actor.ID, "INVOICE_MATCH", id, map[string]any{"number": number})
	return nil
}

// CancelInvoice transitions a pending invoice to CANCELLED.
func (s *Service) CancelInvoice(ctx context.Context, id int64, actor shared.Actor) error {
	if actor.ID <= 0 {
		return shared.ValidationError("actor is required")
	}
	now := time.Now()
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		number = inv.Number
		next, err := docstate.Next(docstate.DocInvoice, docstate.ActionCancel, inv.Status)
		if err != nil {
			return err
		}
		return tx.SetInvoiceStatus(ctx, id, inv.Status, next, actor.ID, now)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, id, actor.ID, shared.ApprovalReject, fmt.Sprintf("invoice %s cancelled", number))
	s.recordAudit(ctx, actor.ID, "INVOICE_CANCEL", id, map[string]any{"number": number})
	return nil
}

// GetInvoice returns one invoice.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// ListInvoices returns invoices matching the filters.
func (s *Service) ListInvoices(ctx context.Context, limit, offset int, filters ListFilters) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, limit, offset, filters)
}

func (s *Service) recordApproval(ctx context.Context, id, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "INVOICE",
		RefID:   shared.DocumentRef("INVOICE", id),
		ActorID: actorID,
		Action:  action,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "supplier_invoice", EntityID: fmt.Sprintf("%d", id), Meta: meta})
}
