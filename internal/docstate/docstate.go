// Package docstate owns the legal status transitions for every document in
// the procure-to-pay flow. All status checks go through the transition table
// here instead of inline string comparisons in services.
package docstate

import (
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DocType enumerates the documents with a managed lifecycle.
type DocType string

const (
	DocMaterialRequest DocType = "MATERIAL_REQUEST"
	DocPurchaseOrder   DocType = "PURCHASE_ORDER"
	DocInvoice         DocType = "SUPPLIER_INVOICE"
	DocDisbursement    DocType = "DISBURSEMENT"
)

// Status is a document lifecycle status. The sets per document are closed.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusDeclined  Status = "DECLINED"
	StatusMatched   Status = "MATCHED"
	StatusCancelled Status = "CANCELLED"
	StatusCreated   Status = "CREATED"
	StatusReleased  Status = "RELEASED"
	StatusVoided    Status = "VOIDED"
)

// Action is a business action that may transition a document.
type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionDecline Action = "DECLINE"
	ActionMatch   Action = "MATCH"
	ActionCancel  Action = "CANCEL"
	ActionRelease Action = "RELEASE"
	ActionVoid    Action = "VOID"
)

type transition struct {
	from Status
	to   Status
}

var transitions = map[DocType]map[Action]transition{
	DocMaterialRequest: {
		ActionApprove: {from: StatusPending, to: StatusApproved},
		ActionDecline: {from: StatusPending, to: StatusRejected},
	},
	DocPurchaseOrder: {
		ActionApprove: {from: StatusPending, to: StatusApproved},
		ActionDecline: {from: StatusPending, to: StatusDeclined},
	},
	DocInvoice: {
		ActionMatch:  {from: StatusPending, to: StatusMatched},
		ActionCancel: {from: StatusPending, to: StatusCancelled},
	},
	DocDisbursement: {
		ActionRelease: {from: StatusCreated, to: StatusReleased},
		ActionVoid:    {from: StatusCreated, to: StatusVoided},
	},
}

var initialStatus = map[DocType]Status{
	DocMaterialRequest: StatusPending,
	DocPurchaseOrder:   StatusPending,
	DocInvoice:         StatusPending,
	DocDisbursement:    StatusCreated,
}

// Initial returns the status a freshly created document carries.
func Initial(doc DocType) Status {
	return initialStatus[doc]
}

// IsTerminal reports whether the status admits no further business action.
func IsTerminal(doc DocType, status Status) bool {
	rules, ok := transitions[doc]
	if !ok {
		return true
	}
	for _, t := range rules {
		if t.from == status {
			return false
		}
	}
	return true
}

// Next validates that action may be applied to a document currently in
// `current` and returns the resulting status. A wrong source state yields
// InvalidTransition; re-matching an already matched invoice yields the more
// specific AlreadyMatched so callers can treat the repeat as idempotent.
func Next(doc DocType, action Action, current Status) (Status, error) {
	rules, ok := transitions[doc]
	if !ok {
		return "", shared.ValidationError("unknown document type %q", doc)
	}
	t, ok := rules[action]
	if !ok {
		return "", shared.ValidationError("action %s not defined for %s", action, doc)
	}
	if current != t.from {
		if doc == DocInvoice && action == ActionMatch && current == StatusMatched {
			return "", shared.AlreadyMatchedError()
		}
		return "", shared.InvalidTransitionError("%s does not allow %s from status %s", doc, action, current)
	}
	return t.to, nil
}
