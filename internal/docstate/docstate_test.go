package docstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestInitialStatuses(t *testing.T) {
	require.Equal(t, StatusPending, Initial(DocMaterialRequest))
	require.Equal(t, StatusPending, Initial(DocPurchaseOrder))
	require.Equal(t, StatusPending, Initial(DocInvoice))
	require.Equal(t, StatusCreated, Initial(DocDisbursement))
}

func TestLegalTransitions(t *testing.T) {
	cases := []struct {
		doc    DocType
		action Action
		from   Status
		to     Status
	}{
		{DocMaterialRequest, ActionApprove, StatusPending, StatusApproved},
		{DocMaterialRequest, ActionDecline, StatusPending, StatusRejected},
		{DocPurchaseOrder, ActionApprove, StatusPending, StatusApproved},
		{DocPurchaseOrder, ActionDecline, StatusPending, StatusDeclined},
		{DocInvoice, ActionMatch, StatusPending, StatusMatched},
		{DocInvoice, ActionCancel, StatusPending, StatusCancelled},
		{DocDisbursement, ActionRelease, StatusCreated, StatusReleased},
		{DocDisbursement, ActionVoid, StatusCreated, StatusVoided},
	}
	for _, tc := range cases {
		next, err := Next(tc.doc, tc.action, tc.from)
		require.NoError(t, err, "%s %s", tc.doc, tc.action)
		require.Equal(t, tc.to, next)
	}
}

func TestTerminalStatusesNeverTransition(t *testing.T) {
	terminals := map[DocType][]Status{
		DocMaterialRequest: {StatusApproved, StatusRejected},
		DocPurchaseOrder:   {StatusApproved, StatusDeclined},
		DocInvoice:         {StatusMatched, StatusCancelled},
		DocDisbursement:    {StatusReleased, StatusVoided},
	}
	actions := map[DocType][]Action{
		DocMaterialRequest: {ActionApprove, ActionDecline},
		DocPurchaseOrder:   {ActionApprove, ActionDecline},
		DocInvoice:         {ActionMatch, ActionCancel},
		DocDisbursement:    {ActionRelease, ActionVoid},
	}
	for doc, statuses := range terminals {
		for _, status := range statuses {
			require.True(t, IsTerminal(doc, status), "%s %s", doc, status)
			for _, action := range actions[doc] {
				_, err := Next(doc, action, status)
				require.Error(t, err, "%s %s from %s", doc, action, status)
			}
		}
	}
}

func TestReApproveFailsWithInvalidTransition(t *testing.T) {
	_, err := Next(DocMaterialRequest, ActionApprove, StatusApproved)
	require.Error(t, err)
	require.Equal(t, shared.KindInvalidTransition, shared.KindOf(err))
}

func TestReMatchFailsWithAlreadyMatched(t *testing.T) {
	_, err := Next(DocInvoice, ActionMatch, StatusMatched)
	require.Error(t, err)
	require.Equal(t, shared.KindAlreadyMatched, shared.KindOf(err))
}

func TestUnknownActionForDocument(t *testing.T) {
	_, err := Next(DocMaterialRequest, ActionRelease, StatusPending)
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}
