package workflow

import (
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Resolve picks the role that must approve an amount of the given process
// type. It is a pure function over the supplied rule set: no side effects,
// safe to call concurrently and repeatedly.
//
// When overlapping brackets match (legacy data predating overlap validation),
// the rule with the lowest step order wins deterministically.
func Resolve(rules []Rule, process ProcessType, amount decimal.Decimal) (Resolution, error) {
	if !KnownProcessType(process) {
		return Resolution{}, shared.ValidationError("unknown process type %q", process)
	}
	if amount.IsNegative() {
		return Resolution{}, shared.ValidationError("amount must not be negative")
	}
	var best *Rule
	for i := range rules {
		rule := rules[i]
		if rule.ProcessType != process || !rule.Covers(amount) {
			continue
		}
		if best == nil || rule.StepOrder < best.StepOrder {
			best = &rules[i]
		}
	}
	if best == nil {
		return Resolution{}, shared.ConfigurationError("no approver configured for this amount bracket")
	}
	return Resolution{ApproverRole: best.ApproverRole, StepOrder: best.StepOrder}, nil
}

// ValidateAgainst checks that candidate does not overlap any existing rule of
// the same process type. Brackets must partition the amount axis; gaps are
// tolerated during incremental configuration and surface later as
// ConfigurationError on resolution.
func ValidateAgainst(existing []Rule, candidate Rule) error {
	if !KnownProcessType(candidate.ProcessType) {
		return shared.ValidationError("unknown process type %q", candidate.ProcessType)
	}
	if candidate.ApproverRole == "" {
		return shared.ValidationError("approver role is required")
	}
	if candidate.StepOrder <= 0 {
		return shared.ValidationError("step order must be positive")
	}
	if candidate.MinAmount.IsNegative() {
		return shared.ValidationError("min amount must not be negative")
	}
	if candidate.MaxAmount != nil && candidate.MaxAmount.LessThan(candidate.MinAmount) {
		return shared.ValidationError("max amount must not be below min amount")
	}
	for _, rule := range existing {
		if rule.ProcessType != candidate.ProcessType || rule.ID == candidate.ID {
			continue
		}
		if overlaps(rule, candidate) {
			return shared.ValidationError(
				"amount bracket overlaps existing rule for %s (step %d)", rule.ProcessType, rule.StepOrder)
		}
	}
	return nil
}

func overlaps(a, b Rule) bool {
	// Open upper bounds overlap everything at or above their minimum.
	if a.MaxAmount != nil && a.MaxAmount.LessThan(b.MinAmount) {
		return false
	}
	if b.MaxAmount != nil && b.MaxAmount.LessThan(a.MinAmount) {
		return false
	}
	return true
}
