package costing

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/docstate"
)

var hundred = decimal.NewFromInt(100)

// Aggregate computes per-project rollups from a snapshot. The result is
// sorted by committed descending, project id ascending on ties.
//
// Committed counts every PO that was not declined or cancelled, so pending
// orders already reserve budget. Invoices and disbursements roll up through
// the PO they link to; unlinked ones belong to no project.
func Aggregate(snap Snapshot) []ProjectCostSummary {
	poProject := make(map[int64]int64, len(snap.POs))
	committed := make(map[int64]decimal.Decimal, len(snap.Projects))
	invoiced := make(map[int64]decimal.Decimal, len(snap.Projects))
	paid := make(map[int64]decimal.Decimal, len(snap.Projects))

	for _, po := range snap.POs {
		poProject[po.ID] = po.ProjectID
		if po.Status == docstate.StatusDeclined || po.Status == docstate.StatusCancelled {
			continue
		}
		committed[po.ProjectID] = committed[po.ProjectID].Add(po.TotalAmount)
	}
	for _, inv := range snap.Invoices {
		if inv.PurchaseOrderID == nil || inv.Status == docstate.StatusCancelled {
			continue
		}
		projectID, ok := poProject[*inv.PurchaseOrderID]
		if !ok {
			continue
		}
		invoiced[projectID] = invoiced[projectID].Add(inv.TotalAmount)
	}
	for _, d := range snap.Disbursements {
		if d.PurchaseOrderID == nil || d.Status != docstate.StatusReleased {
			continue
		}
		projectID, ok := poProject[*d.PurchaseOrderID]
		if !ok {
			continue
		}
		paid[projectID] = paid[projectID].Add(d.Amount)
	}

	out := make([]ProjectCostSummary, 0, len(snap.Projects))
	for _, p := range snap.Projects {
		s := ProjectCostSummary{
			ProjectID:   p.ID,
			ProjectName: p.Name,
			Budget:      p.Budget,
			Committed:   committed[p.ID],
			Invoiced:    invoiced[p.ID],
			Paid:        paid[p.ID],
		}
		s.Remaining = p.Budget.Sub(s.Committed)
		if p.Budget.GreaterThan(decimal.Zero) {
			s.Progress = s.Committed.Div(p.Budget).Mul(hundred)
		} else {
			s.Progress = decimal.Zero
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Committed.Equal(out[j].Committed) {
			return out[i].Committed.GreaterThan(out[j].Committed)
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out
}
