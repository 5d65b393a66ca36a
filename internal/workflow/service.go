package workflow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps the pure engine with rule persistence.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs the workflow service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ResolveApprover loads the rule set and resolves the approver role for the
// given process type and amount.
func (s *Service) ResolveApprover(ctx context.Context, process ProcessType, amount decimal.Decimal) (Resolution, error) {
	if !KnownProcessType(process) {
		return Resolution{}, shared.ValidationError("unknown process type %q", process)
	}
	if amount.IsNegative() {
		return Resolution{}, shared.ValidationError("amount must not be negative")
	}
	rules, err := s.repo.ListRules(ctx, process)
	if err != nil {
		return Resolution{}, shared.PersistenceError(err)
	}
	return Resolve(rules, process, amount)
}

// CreateRuleInput describes a new approval rule.
type CreateRuleInput struct {
	ProcessType  ProcessType
	MinAmount    decimal.Decimal
	MaxAmount    *decimal.Decimal
	ApproverRole string
	StepOrder    int
	ActorID      int64
}

// CreateRule validates the bracket against the existing rule set and
// persists it. Overlapping brackets are rejected outright.
func (s *Service) CreateRule(ctx context.Context, input CreateRuleInput) (Rule, error) {
	rule := Rule{
		ProcessType:  input.ProcessType,
		MinAmount:    input.MinAmount,
		MaxAmount:    input.MaxAmount,
		ApproverRole: input.ApproverRole,
		StepOrder:    input.StepOrder,
	}
	existing, err := s.repo.ListRules(ctx, input.ProcessType)
	if err != nil {
		return Rule{}, shared.PersistenceError(err)
	}
	if err := ValidateAgainst(existing, rule); err != nil {
		return Rule{}, err
	}
	id, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return Rule{}, shared.PersistenceError(err)
	}
	rule.ID = id
	s.recordAudit(ctx, input.ActorID, "WORKFLOW_RULE_CREATE", id, map[string]any{
		"process_type": string(rule.ProcessType),
		"role":         rule.ApproverRole,
		"step":         rule.StepOrder,
	})
	return rule, nil
}

// ListRules returns every configured rule.
func (s *Service) ListRules(ctx context.Context) ([]Rule, error) {
	rules, err := s.repo.ListAllRules(ctx)
	if err != nil {
		return nil, shared.PersistenceError(err)
	}
	return rules, nil
}

// DeleteRule removes a rule by id.
func (s *Service) DeleteRule(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return err
		}
		return shared.PersistenceError(err)
	}
	s.recordAudit(ctx, actorID, "WORKFLOW_RULE_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "workflow_rule", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
