package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/workflow"
)

// WorkflowPort resolves the approver role a document of a given amount needs.
type WorkflowPort interface {
	ResolveApprover(ctx context.Context, process workflow.ProcessType, amount decimal.Decimal) (workflow.Resolution, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records approval history entries.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// Service orchestrates material requests, purchase orders and receiving
// reports.
type Service struct {
	repo      RepositoryPort
	workflow  WorkflowPort
	approvals ApprovalPort
	audit     AuditPort
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, wf WorkflowPort, approvals ApprovalPort, audit AuditPort) *Service {
	return &Service{repo: repo, workflow: wf, approvals: approvals, audit: audit}
}

// CreateMRInput describes a material request creation payload.
type CreateMRInput struct {
	ProjectID   int64
	RequesterID int64
	Remarks     string
	Items       []MRItemInput
}

// MRItemInput describes one requested line.
type MRItemInput struct {
	MaterialID        int64
	Description       string
	Quantity          decimal.Decimal
	Unit              string
	MaterialUnitPrice decimal.Decimal
	LaborUnitPrice    decimal.Decimal
}

// CreatePOInput describes a purchase order creation payload.
type CreatePOInput struct {
	ProjectID   int64
	SupplierID  int64
	RequesterID int64
	Remarks     string
	Items       []POItemInput
}

// POItemInput describes one ordered line. The total price is never taken
// from the caller.
type POItemInput struct {
	MaterialID  int64
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
}

// CreateReceivingReportInput describes a goods receipt against a PO.
type CreateReceivingReportInput struct {
	PurchaseOrderID int64
	ReceivedBy      int64
	ReceivedDate    time.Time
	Remarks         string
	Items           []ReceivingReportItemInput
}

// ReceivingReportItemInput describes one received line.
type ReceivingReportItemInput struct {
	POItemID    *int64
	Description string
	Quantity    decimal.Decimal
	Unit        string
}

// CreateMaterialRequest persists header and items atomically. The total is
// derived from the items and the default approver role is resolved from the
// workflow rules before anything is written.
func (s *Service) CreateMaterialRequest(ctx context.Context, input CreateMRInput) (MaterialRequest, error) {
	if input.ProjectID <= 0 {
		return MaterialRequest{}, shared.ValidationError("project is required")
	}
	if input.RequesterID <= 0 {
		return MaterialRequest{}, shared.ValidationError("requester is required")
	}
	if len(input.Items) == 0 {
		return MaterialRequest{}, shared.ValidationError("at least one item is required")
	}
	total := decimal.Zero
	for i, item := range input.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return MaterialRequest{}, shared.ValidationError("item %d: quantity must be positive", i+1)
		}
		if err := shared.RequireNonNegative(fmt.Sprintf("item %d material unit price", i+1), item.MaterialUnitPrice); err != nil {
			return MaterialRequest{}, err
		}
		if err := shared.RequireNonNegative(fmt.Sprintf("item %d labor unit price", i+1), item.LaborUnitPrice); err != nil {
			return MaterialRequest{}, err
		}
		total = total.Add(item.Quantity.Mul(item.MaterialUnitPrice.Add(item.LaborUnitPrice)))
	}

	resolution, err := s.workflow.ResolveApprover(ctx, workflow.ProcessMaterialRequest, total)
	if err != nil {
		return MaterialRequest{}, err
	}

	mr := MaterialRequest{
		Number:       generateNumber("MR"),
		ProjectID:    input.ProjectID,
		RequesterID:  input.RequesterID,
		ApproverRole: resolution.ApproverRole,
		Status:       docstate.Initial(docstate.DocMaterialRequest),
		TotalAmount:  total,
		Remarks:      input.Remarks,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateMR(ctx, mr)
		if err != nil {
			return err
		}
		mr.ID = id
		for _, item := range input.Items {
			if err := tx.InsertMRItem(ctx, MRItem{
				MaterialRequestID: id,
				MaterialID:        item.MaterialID,
				Description:       item.Description,
				Quantity:          item.Quantity,
				Unit:              item.Unit,
				MaterialUnitPrice: item.MaterialUnitPrice,
				LaborUnitPrice:    item.LaborUnitPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MaterialRequest{}, err
	}
	s.recordAudit(ctx, input.RequesterID, "MR_CREATE", "material_request", mr.ID, map[string]any{"number": mr.Number, "total": mr.TotalAmount.String()})
	return mr, nil
}

// ApproveMaterialRequest transitions a pending MR to APPROVED.
func (s *Service) ApproveMaterialRequest(ctx context.Context, id int64, actor shared.Actor) error {
	return s.decideMR(ctx, id, actor, docstate.ActionApprove, shared.ApprovalApprove)
}

// DeclineMaterialRequest transitions a pending MR to REJECTED.
func (s *Service) DeclineMaterialRequest(ctx context.Context, id int64, actor shared.Actor) error {
	return s.decideMR(ctx, id, actor, docstate.ActionDecline, shared.ApprovalReject)
}

func (s *Service) decideMR(ctx context.Context, id int64, actor shared.Actor, action docstate.Action, logAction shared.ApprovalAction) error {
	if actor.ID <= 0 {
		return shared.ValidationError("approver is required")
	}
	now := time.Now()
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		mr, _, err := tx.GetMR(ctx, id)
		if err != nil {
			return err
		}
		number = mr.Number
		next, err := docstate.Next(docstate.DocMaterialRequest, action, mr.Status)
		if err != nil {
			return err
		}
		if mr.ApproverRole != "" && actor.Role != mr.ApproverRole {
			return shared.ValidationError("approval requires role %s", mr.ApproverRole)
		}
		return tx.SetMRDecision(ctx, id, mr.Status, next, actor.ID, now)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, "MR", id, actor.ID, logAction, fmt.Sprintf("MR %s %sd", number, actionVerb(action)))
	s.recordAudit(ctx, actor.ID, "MR_"+string(action), "material_request", id, map[string]any{"number": number})
	return nil
}

// CreatePurchaseOrder persists header and items atomically. Line totals and
// the header total are recomputed server-side.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePOInput) (PurchaseOrder, []POItem, error) {
	if input.ProjectID <= 0 {
		return PurchaseOrder{}, nil, shared.ValidationError("project is required")
	}
	if input.SupplierID <= 0 {
		return PurchaseOrder{}, nil, shared.ValidationError("supplier is required")
	}
	if input.RequesterID <= 0 {
		return PurchaseOrder{}, nil, shared.ValidationError("requester is required")
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, nil, shared.ValidationError("at least one item is required")
	}
	total := decimal.Zero
	items := make([]POItem, 0, len(input.Items))
	for i, item := range input.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return PurchaseOrder{}, nil, shared.ValidationError("item %d: quantity must be positive", i+1)
		}
		if err := shared.RequireNonNegative(fmt.Sprintf("item %d unit price", i+1), item.UnitPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		lineTotal := item.Quantity.Mul(item.UnitPrice)
		total = total.Add(lineTotal)
		items = append(items, POItem{
			MaterialID:  item.MaterialID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  lineTotal,
		})
	}

	resolution, err := s.workflow.ResolveApprover(ctx, workflow.ProcessPurchaseOrder, total)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	po := PurchaseOrder{
		Number:       generateNumber("PO"),
		ProjectID:    input.ProjectID,
		SupplierID:   input.SupplierID,
		RequesterID:  input.RequesterID,
		ApproverRole: resolution.ApproverRole,
		Status:       docstate.Initial(docstate.DocPurchaseOrder),
		TotalAmount:  total,
		Remarks:      input.Remarks,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		for i := range items {
			items[i].PurchaseOrderID = id
			insertedID, err := tx.InsertPOItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = insertedID
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	s.recordAudit(ctx, input.RequesterID, "PO_CREATE", "purchase_order", po.ID, map[string]any{"number": po.Number, "total": po.TotalAmount.String()})
	return po, items, nil
}

// ApprovePurchaseOrder transitions a pending PO to APPROVED.
func (s *Service) ApprovePurchaseOrder(ctx context.Context, id int64, actor shared.Actor) error {
	return s.decidePO(ctx, id, actor, docstate.ActionApprove, shared.ApprovalApprove)
}

// DeclinePurchaseOrder transitions a pending PO to DECLINED.
func (s *Service) DeclinePurchaseOrder(ctx context.Context, id int64, actor shared.Actor) error {
	return s.decidePO(ctx, id, actor, docstate.ActionDecline, shared.ApprovalReject)
}

func (s *Service) decidePO(ctx context.Context, id int64, actor shared.Actor, action docstate.Action, logAction shared.ApprovalAction) error {
	if actor.ID <= 0 {
		return shared.ValidationError("approver is required")
	}
	now := time.Now()
	var number string
	var amount decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, _, err := tx.GetPO(ctx, id)
		if err != nil {
			return err
		}
		number = po.Number
		amount = po.TotalAmount
		next, err := docstate.Next(docstate.DocPurchaseOrder, action, po.Status)
		if err != nil {
			return err
		}
		if po.ApproverRole != "" && actor.Role != po.ApproverRole {
			return shared.ValidationError("approval requires role %s", po.ApproverRole)
		}
		return tx.SetPODecision(ctx, id, po.Status, next, actor.ID, now)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, "PO", id, actor.ID, logAction,
		fmt.Sprintf("PO %s (%s) %sd", number, shared.FormatAmount(amount), actionVerb(action)))
	s.recordAudit(ctx, actor.ID, "PO_"+string(action), "purchase_order", id, map[string]any{"number": number})
	return nil
}

// CreateReceivingReport records a goods receipt. The PO must exist and be
// approved before goods can be received against it.
func (s *Service) CreateReceivingReport(ctx context.Context, input CreateReceivingReportInput) (ReceivingReport, error) {
	if input.PurchaseOrderID <= 0 {
		return ReceivingReport{}, shared.ValidationError("purchase order is required")
	}
	if len(input.Items) == 0 {
		return ReceivingReport{}, shared.ValidationError("at least one item is required")
	}
	for i, item := range input.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return ReceivingReport{}, shared.ValidationError("item %d: quantity must be positive", i+1)
		}
	}
	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}
	rr := ReceivingReport{
		Number:          generateNumber("RR"),
		PurchaseOrderID: input.PurchaseOrderID,
		ReceivedBy:      input.ReceivedBy,
		ReceivedDate:    receivedDate,
		Remarks:         input.Remarks,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, _, err := tx.GetPO(ctx, input.PurchaseOrderID)
		if err != nil {
			return err
		}
		if po.Status != docstate.StatusApproved {
			return shared.InvalidTransitionError("goods can only be received against an approved purchase order")
		}
		id, err := tx.CreateReceivingReport(ctx, rr)
		if err != nil {
			return err
		}
		rr.ID = id
		for _, item := range input.Items {
			if err := tx.InsertReceivingReportItem(ctx, ReceivingReportItem{
				ReceivingReportID: id,
				POItemID:          item.POItemID,
				Description:       item.Description,
				Quantity:          item.Quantity,
				Unit:              item.Unit,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReceivingReport{}, err
	}
	s.recordAudit(ctx, input.ReceivedBy, "RR_CREATE", "receiving_report", rr.ID, map[string]any{"number": rr.Number, "po_id": input.PurchaseOrderID})
	return rr, nil
}

// GetMaterialRequest returns a material request with its items.
func (s *Service) GetMaterialRequest(ctx context.Context, id int64) (MaterialRequest, []MRItem, error) {
	return s.repo.GetMR(ctx, id)
}

// GetPurchaseOrder returns a purchase order with its items.
func (s *Service) GetPurchaseOrder(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	return s.repo.GetPO(ctx, id)
}

// GetReceivingReport returns a receiving report with its items.
func (s *Service) GetReceivingReport(ctx context.Context, id int64) (ReceivingReport, []ReceivingReportItem, error) {
	return s.repo.GetReceivingReport(ctx, id)
}

// ListMaterialRequests returns MR headers matching the filters.
func (s *Service) ListMaterialRequests(ctx context.Context, limit, offset int, filters ListFilters) ([]MaterialRequest, int, error) {
	return s.repo.ListMRs(ctx, limit, offset, filters)
}

// ListPurchaseOrders returns PO headers matching the filters.
func (s *Service) ListPurchaseOrders(ctx context.Context, limit, offset int, filters ListFilters) ([]PurchaseOrder, int, error) {
	return s.repo.ListPOs(ctx, limit, offset, filters)
}

func (s *Service) recordApproval(ctx context.Context, module string, id, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  module,
		RefID:   shared.DocumentRef(module, id),
		ActorID: actorID,
		Action:  action,
		Note:    note,
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func actionVerb(action docstate.Action) string {
	switch action {
	case docstate.ActionApprove:
		return "approve"
	case docstate.ActionDecline:
		return "decline"
	default:
		return string(action)
	}
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
