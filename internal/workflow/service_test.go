package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRuleRepo struct {
	rules  map[int64]Rule
	nextID int64
}

func newMemoryRuleRepo() *memoryRuleRepo {
	return &memoryRuleRepo{rules: make(map[int64]Rule)}
}

func (r *memoryRuleRepo) ListRules(ctx context.Context, process ProcessType) ([]Rule, error) {
	var out []Rule
	for _, rule := range r.rules {
		if rule.ProcessType == process {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memoryRuleRepo) ListAllRules(ctx context.Context) ([]Rule, error) {
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

func (r *memoryRuleRepo) CreateRule(ctx context.Context, rule Rule) (int64, error) {
	r.nextID++
	rule.ID = r.nextID
	r.rules[rule.ID] = rule
	return rule.ID, nil
}

func (r *memoryRuleRepo) DeleteRule(ctx context.Context, id int64) error {
	if _, ok := r.rules[id]; !ok {
		return shared.NotFoundError("workflow rule")
	}
	delete(r.rules, id)
	return nil
}

func TestCreateRuleRejectsOverlap(t *testing.T) {
	repo := newMemoryRuleRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, err := svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessPurchaseOrder,
		MinAmount:    amount("0"),
		MaxAmount:    amountPtr("50000"),
		ApproverRole: "PROJECT_MANAGER",
		StepOrder:    1,
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	_, err = svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessPurchaseOrder,
		MinAmount:    amount("50000"),
		MaxAmount:    nil,
		ApproverRole: "PRESIDENT",
		StepOrder:    2,
	})
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	// Same bracket on another process type is fine.
	_, err = svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessDisbursement,
		MinAmount:    amount("0"),
		MaxAmount:    nil,
		ApproverRole: "FINANCE_MANAGER",
		StepOrder:    1,
	})
	require.NoError(t, err)
}

func TestResolveApproverThroughService(t *testing.T) {
	repo := newMemoryRuleRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessMaterialRequest,
		MinAmount:    amount("0"),
		MaxAmount:    amountPtr("100000"),
		ApproverRole: "PROJECT_MANAGER",
		StepOrder:    1,
	})
	require.NoError(t, err)
	_, err = svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessMaterialRequest,
		MinAmount:    amount("100000.01"),
		MaxAmount:    nil,
		ApproverRole: "OPERATIONS_DIRECTOR",
		StepOrder:    2,
	})
	require.NoError(t, err)

	res, err := svc.ResolveApprover(ctx, ProcessMaterialRequest, amount("250000"))
	require.NoError(t, err)
	require.Equal(t, "OPERATIONS_DIRECTOR", res.ApproverRole)
	require.Equal(t, 2, res.StepOrder)

	_, err = svc.ResolveApprover(ctx, ProcessPurchaseOrder, amount("10"))
	require.Error(t, err)
	require.Equal(t, shared.KindConfiguration, shared.KindOf(err))
}

func TestDeleteRule(t *testing.T) {
	repo := newMemoryRuleRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	rule, err := svc.CreateRule(ctx, CreateRuleInput{
		ProcessType:  ProcessDisbursement,
		MinAmount:    amount("0"),
		MaxAmount:    nil,
		ApproverRole: "FINANCE_MANAGER",
		StepOrder:    1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(ctx, rule.ID, 7))
	err = svc.DeleteRule(ctx, rule.ID, 7)
	require.Error(t, err)
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
