package disbursement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PurchaseOrderPort verifies the purchase order a disbursement links to.
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

// Service owns disbursements and their release lifecycle.
type Service struct {
	repo      RepositoryPort
	orders    PurchaseOrderPort
	approvals ApprovalPort
	audit     AuditPort
}

// NewService constructs the disbursement service.
func NewService(repo RepositoryPort, orders PurchaseOrderPort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, orders: orders, approvals: approvals, audit: audit}
}

// CreateInput describes a disbursement creation payload.
type CreateInput struct {
	PurchaseOrderID *int64
	Amount          decimal.Decimal
	Method          Method
	ReferenceNumber string
	ProcessedByID   int64
	Remarks         string
}

// Create registers a disbursement in CREATED. A linked PO must exist and be
// approved; payments against undecided orders are rejected.
func (s *Service) Create(ctx context.Context, input CreateInput) (Disbursement, error) {
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return Disbursement{}, shared.ValidationError("amount must be positive")
	}
	if !KnownMethod(input.Method) {
		return Disbursement{}, shared.ValidationError("unknown payment method %q", input.Method)
	}
	if input.ReferenceNumber == "" {
		return Disbursement{}, shared.ValidationError("reference number is required")
	}
	if input.ProcessedByID <= 0 {
		return Disbursement{}, shared.ValidationError("processor is required")
	}
	if input.PurchaseOrderID != nil {
		status, err := s.orders.PurchaseOrderStatus(ctx, *input.PurchaseOrderID)
		if err != nil {
			return Disbursement{}, err
		}
		if status != docstate.StatusApproved {
			return Disbursement{}, shared.InvalidTransitionError("disbursement requires an approved purchase order")
		}
	}
	d := Disbursement{
		Number:          fmt.Sprintf("DV-%d", time.Now().UnixNano()),
		PurchaseOrderID: input.PurchaseOrderID,
		Amount:          input.Amount,
		Method:          input.Method,
		ReferenceNumber: input.ReferenceNumber,
		Status:          docstate.Initial(docstate.DocDisbursement),
		ProcessedByID:   input.ProcessedByID,
		Remarks:         input.Remarks,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.Create(ctx, d)
		if err != nil {
			return err
		}
		d.ID = id
		return nil
	})
	if err != nil {
		return Disbursement{}, err
	}
	s.recordAudit(ctx, input.ProcessedByID, "DISBURSEMENT_CREATE", d.ID, map[string]any{"number": d.Number, "amount": d.Amount.String()})
	return d, nil
}

// Release transitions a created disbursement to RELEASED. Released amounts
// feed the paid rollup in project cost summaries.
func (s *Service) Release(ctx context.Context, id int64, actor shared.Actor) error {
	return s.transition(ctx, id, actor, docstate.ActionRelease, shared.ApprovalRelease)
}

// Void transitions a created disbursement to VOIDED.
func (s *Service) Void(ctx context.Context, id int64, actor shared.Actor) error {
	return s.transition(ctx, id, actor, docstate.ActionVoid, shared.ApprovalVoid)
}

func (s *Service) transition(ctx context.Context, id int64, actor shared.Actor, action docstate.Action, logAction shared.ApprovalAction) error {
	if actor.ID <= 0 {
		return shared.ValidationError("actor is required")
	}
	now := time.Now()
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		d, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		number = d.Number
		next, err := docstate.Next(docstate.DocDisbursement, action, d.Status)
		if err != nil {
			return err
		}
		return tx.SetStatus(ctx, id, d.Status, next, actor.ID, now)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, id, actor.ID, logAction, fmt.Sprintf("disbursement %s %s", number, string(logAction)))
	s.recordAudit(ctx, actor.ID, "DISBURSEMENT_"+string(action), id, map[string]any{"number": number})
	return nil
}

// Get returns one disbursement.
func (s *Service) Get(ctx context.Context, id int64) (Disbursement, error) {
	return s.repo.Get(ctx, id)
}

// List returns disbursements matching the filters.
func (s *Service) List(ctx context.Context, limit, offset int, filters ListFilters) ([]Disbursement, int, error) {
	return s.repo.List(ctx, limit, offset, filters)
}

func (s *Service) recordApproval(ctx context.Context, id, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "DISBURSEMENT",
		RefID:   shared.DocumentRef("DISBURSEMENT", id),
		ActorID: actorID,
		Action:  action,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "disbursement", EntityID: fmt.Sprintf("%d", id), Meta: meta})
}
