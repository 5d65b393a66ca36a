package costing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

func amount(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

func int64Ptr(v int64) *int64 { return &v }

func TestAggregateSingleProject(t *testing.T) {
	snap := Snapshot{
		Projects: []ProjectSnapshot{{ID: 1, Name: "Tower A", Budget: amount("1000000")}},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("300000")},
			{ID: 11, ProjectID: 1, Status: docstate.StatusPending, TotalAmount: amount("200000")},
			{ID: 12, ProjectID: 1, Status: docstate.StatusDeclined, TotalAmount: amount("999999")},
		},
		Invoices: []InvoiceSnapshot{
			{ID: 20, PurchaseOrderID: int64Ptr(10), Status: docstate.StatusMatched, TotalAmount: amount("150000")},
			{ID: 21, PurchaseOrderID: int64Ptr(10), Status: docstate.StatusCancelled, TotalAmount: amount("70000")},
			{ID: 22, PurchaseOrderID: nil, Status: docstate.StatusPending, TotalAmount: amount("5000")},
		},
		Disbursements: []DisbursementSnapshot{
			{ID: 30, PurchaseOrderID: int64Ptr(10), Status: docstate.StatusReleased, Amount: amount("100000")},
			{ID: 31, PurchaseOrderID: int64Ptr(10), Status: docstate.StatusVoided, Amount: amount("50000")},
			{ID: 32, PurchaseOrderID: int64Ptr(10), Status: docstate.StatusCreated, Amount: amount("25000")},
		},
	}

	out := Aggregate(snap)
	require.Len(t, out, 1)
	s := out[0]
	require.True(t, s.Committed.Equal(amount("500000")), "committed %s", s.Committed)
	require.True(t, s.Invoiced.Equal(amount("150000")), "invoiced %s", s.Invoiced)
	require.True(t, s.Paid.Equal(amount("100000")), "paid %s", s.Paid)
	require.True(t, s.Remaining.Equal(amount("500000")), "remaining %s", s.Remaining)
	require.True(t, s.Progress.Equal(amount("50")), "progress %s", s.Progress)
}

func TestAggregateZeroBudget(t *testing.T) {
	snap := Snapshot{
		Projects: []ProjectSnapshot{{ID: 1, Name: "Unbudgeted", Budget: amount("0")}},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("1000")},
		},
	}
	out := Aggregate(snap)
	require.Len(t, out, 1)
	require.True(t, out[0].Progress.Equal(decimal.Zero))
	require.True(t, out[0].Remaining.Equal(amount("-1000")))
}

func TestAggregateSortsByCommittedDesc(t *testing.T) {
	snap := Snapshot{
		Projects: []ProjectSnapshot{
			{ID: 1, Name: "Small", Budget: amount("100")},
			{ID: 2, Name: "Big", Budget: amount("100")},
			{ID: 3, Name: "TieWithBig", Budget: amount("100")},
		},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("10")},
			{ID: 11, ProjectID: 2, Status: docstate.StatusApproved, TotalAmount: amount("50")},
			{ID: 12, ProjectID: 3, Status: docstate.StatusApproved, TotalAmount: amount("50")},
		},
	}
	out := Aggregate(snap)
	require.Len(t, out, 3)
	require.Equal(t, int64(2), out[0].ProjectID)
	require.Equal(t, int64(3), out[1].ProjectID)
	require.Equal(t, int64(1), out[2].ProjectID)
}

func TestAggregateCrossProjectLinkage(t *testing.T) {
	// Invoices and disbursements follow the project of the PO they link to.
	snap := Snapshot{
		Projects: []ProjectSnapshot{
			{ID: 1, Name: "A", Budget: amount("1000")},
			{ID: 2, Name: "B", Budget: amount("1000")},
		},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("400")},
			{ID: 11, ProjectID: 2, Status: docstate.StatusApproved, TotalAmount: amount("100")},
		},
		Invoices: []InvoiceSnapshot{
			{ID: 20, PurchaseOrderID: int64Ptr(11), Status: docstate.StatusMatched, TotalAmount: amount("80")},
		},
		Disbursements: []DisbursementSnapshot{
			{ID: 30, PurchaseOrderID: int64Ptr(11), Status: docstate.StatusReleased, Amount: amount("60")},
		},
	}
	out := Aggregate(snap)
	require.Len(t, out, 2)
	require.Equal(t, int64(1), out[0].ProjectID)
	require.True(t, out[0].Invoiced.Equal(decimal.Zero))
	require.True(t, out[0].Paid.Equal(decimal.Zero))
	require.True(t, out[1].Invoiced.Equal(amount("80")))
	require.True(t, out[1].Paid.Equal(amount("60")))
}

func TestAggregateDecimalExactness(t *testing.T) {
	// Amounts that lose precision in binary floating point stay exact.
	snap := Snapshot{
		Projects: []ProjectSnapshot{{ID: 1, Name: "P", Budget: amount("0.30")}},
		POs: []POSnapshot{
			{ID: 10, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("0.10")},
			{ID: 11, ProjectID: 1, Status: docstate.StatusApproved, TotalAmount: amount("0.20")},
		},
	}
	out := Aggregate(snap)
	require.Len(t, out, 1)
	require.True(t, out[0].Committed.Equal(amount("0.30")))
	require.True(t, out[0].Remaining.Equal(decimal.Zero))
	require.True(t, out[0].Progress.Equal(amount("100")))
}
