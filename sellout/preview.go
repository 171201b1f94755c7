/*
preview.go - Negative-balance admission check

PURPOSE:
  Before a draft batch can be approved, every line is checked against the
  stock that would remain if the batch posted. The check is advisory: it
  never blocks posting, it marks lines so an approver can decide.

ALGORITHM:
  Lines are grouped by SKU and walked in (DocDate, RowNumber) order.
  A running cumulative total accrues across the WHOLE group -- it does not
  reset when the date changes, because earlier lines of this batch will
  deplete stock before later ones post. AvailableBefore is recomputed only
  when the date changes (one balance-as-of call per SKU per date; same-day
  lines share it and deplete it sequentially).

    resulting = availableBefore - cumulative
    negative  iff resulting < -1e-9   (epsilon absorbs accumulated
                                       floating-point noise in upstream
                                       feeds)

PERSISTENCE:
  Results are replaced wholesale per upload (delete-then-insert keyed by
  RowNumber) and the header gets HasPotentialNegatives +
  NegPreviewComputedAt. Cached() serves the persisted rows and only
  recomputes when there are none or the caller forces it.
*/
package sellout

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// negativeEpsilon is the admission tolerance: resulting balances within
// [-1e-9, 0) are treated as zero.
var negativeEpsilon = decimal.New(1, -9)

type Previewer struct {
	Balances *ledger.BalanceEngine
	Batches  Store
}

func NewPreviewer(balances *ledger.BalanceEngine, batches Store) *Previewer {
	return &Previewer{Balances: balances, Batches: batches}
}

// Preview computes the admission check without persisting anything.
func (p *Previewer) Preview(ctx context.Context, uploadID ledger.UploadID) (bool, []PreviewRow, error) {
	u, err := p.Batches.GetUpload(ctx, uploadID)
	if err != nil {
		return false, nil, err
	}
	lines, err := p.Batches.Lines(ctx, uploadID, true)
	if err != nil {
		return false, nil, err
	}
	if len(lines) == 0 {
		return false, nil, nil
	}

	bySKU := make(map[ledger.SKUID][]Line)
	var skus []ledger.SKUID
	for _, l := range lines {
		if _, seen := bySKU[l.SKUID]; !seen {
			skus = append(skus, l.SKUID)
		}
		bySKU[l.SKUID] = append(bySKU[l.SKUID], l)
	}
	sort.Slice(skus, func(i, j int) bool { return skus[i] < skus[j] })

	hasNeg := false
	var rows []PreviewRow
	for _, skuID := range skus {
		group := bySKU[skuID]
		sort.Slice(group, func(i, j int) bool {
			if !group[i].DocDate.Equal(group[j].DocDate) {
				return group[i].DocDate.Before(group[j].DocDate)
			}
			return group[i].RowNumber < group[j].RowNumber
		})

		cumulative := decimal.Zero
		available := decimal.Zero
		var lastDate *ledger.Date

		for _, line := range group {
			if lastDate == nil || !line.DocDate.Equal(*lastDate) {
				bal, err := p.Balances.BalanceAsOf(ctx, ledger.BalanceQuery{
					CustomerID: u.CustomerID,
					SKUID:      skuID,
					Brand:      u.Brand,
					AsOf:       line.DocDate,
				})
				if err != nil {
					return false, nil, err
				}
				available = bal.Qty
				d := line.DocDate
				lastDate = &d
			}

			cumulative = cumulative.Add(line.Qty.Abs())
			resulting := available.Sub(cumulative)
			isNeg := resulting.LessThan(negativeEpsilon.Neg())
			hasNeg = hasNeg || isNeg

			rows = append(rows, PreviewRow{
				UploadID:             uploadID,
				RowNumber:            line.RowNumber,
				SKUID:                skuID,
				DocDate:              line.DocDate,
				Qty:                  line.Qty.Abs(),
				AvailableBefore:      available,
				CumulativeFromUpload: cumulative,
				ResultingBalance:     resulting,
				IsNegative:           isNeg,
			})
		}
	}
	return hasNeg, rows, nil
}

// ComputeAndPersist recomputes the preview and replaces the stored rows.
func (p *Previewer) ComputeAndPersist(ctx context.Context, uploadID ledger.UploadID) (bool, []PreviewRow, error) {
	hasNeg, rows, err := p.Preview(ctx, uploadID)
	if err != nil {
		return false, nil, err
	}
	if err := p.Batches.SavePreview(ctx, uploadID, rows, hasNeg, time.Now().UTC()); err != nil {
		return false, nil, err
	}
	return hasNeg, rows, nil
}

// Cached returns the persisted preview when one exists, computing and
// persisting it otherwise. force always recomputes.
func (p *Previewer) Cached(ctx context.Context, uploadID ledger.UploadID, force bool) (bool, []PreviewRow, error) {
	if !force {
		rows, err := p.Batches.Preview(ctx, uploadID)
		if err != nil {
			return false, nil, err
		}
		if len(rows) > 0 {
			hasNeg := false
			for _, r := range rows {
				hasNeg = hasNeg || r.IsNegative
			}
			return hasNeg, rows, nil
		}
	}
	return p.ComputeAndPersist(ctx, uploadID)
}
