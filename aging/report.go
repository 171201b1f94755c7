/*
report.go - CSV projection of aging bucket rows

PURPOSE:
  The export surface is CSV with a fixed column order; downstream sheets
  key on these header names, so the order is part of the contract.
*/
package aging

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// CSVHeader returns the fixed export column order.
func CSVHeader() []string {
	return []string{
		"CustomerID", "CustomerName", "SKUID", "ArticleCode", "Description", "Brand",
		"Bucket0_30", "Bucket31_60", "Bucket61_90", "Bucket90Plus", "SOHQty", "AvgAgeDays",
		"OldestLotDate", "NewestLotDate",
		"TotalReceipts", "TotalIssues", "LastSelloutDate", "LastMovementDate",
		"AvgPrice", "PriceHigh", "PriceLow", "LastPrice",
	}
}

// CSVRecord renders the row in CSVHeader order. Optional fields render empty.
func (r Row) CSVRecord() []string {
	rec := []string{
		fmt.Sprintf("%d", r.CustomerID),
		r.CustomerName,
		fmt.Sprintf("%d", r.SKUID),
		r.ArticleCode,
		r.Description,
		r.Brand,
		r.Bucket0to30.String(),
		r.Bucket31to60.String(),
		r.Bucket61to90.String(),
		r.Bucket90Plus.String(),
		r.SOHQty.String(),
		decString(r.AvgAgeDays),
		dateString(r.OldestLot),
		dateString(r.NewestLot),
		r.TotalReceipts.String(),
		r.TotalIssues.String(),
		dateString(r.LastSellout),
		dateString(r.LastMovement),
	}
	if r.Price != nil {
		rec = append(rec, r.Price.Avg.String(), r.Price.High.String(), r.Price.Low.String(), r.Price.Last.String())
	} else {
		rec = append(rec, "", "", "", "")
	}
	return rec
}

func decString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Round(2).String()
}

func dateString(d *ledger.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
