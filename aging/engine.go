/*
Package aging computes FIFO stock aging from the inventory ledger.

PURPOSE:
  For every (customer, SKU) pair with a counted go-live date, replays the
  movement window [go-live, asOf] and allocates total issues against
  receipt lots oldest-first. What survives becomes live layers, which are
  aggregated into age buckets per pair.

ALGORITHM (per pair, one explicit pass):
  totals:   issues   = sum of abs(negative signed qty)
            receipts = sum of positive signed qty
  lots:     each positive movement in (DocDate, ID) order, with cumPrev =
            receipts accumulated before it
  consumed: 0                      if issues <= cumPrev
            lotQty                 if issues >= cumPrev + lotQty
            issues - cumPrev       otherwise
  layers:   lots with remaining = lotQty - consumed > 0,
            age = days(lotDate -> asOf)
  buckets:  remaining summed into 0-30 / 31-60 / 61-90 / >90,
            weighted average age, oldest/newest lot

FILTERS:
  Age-range and only-positive-SOH filters apply AFTER the allocation, and
  brand/article/category/scope restrict which rows are reported. None of
  them ever change the arithmetic: filtering a report must never alter a
  balance.

  Customers with no ADJUST at all have no go-live date and are excluded
  entirely -- their history has no known starting point.

SEE ALSO:
  - ledger/anchor.go: Go-live resolution
  - report.go: CSV projection of bucket rows
*/
package aging

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
)

// =============================================================================
// FILTER + RESULT TYPES
// =============================================================================

// Filter narrows which rows a report returns. Zero values mean "no filter".
type Filter struct {
	CustomerID  ledger.CustomerID
	SKUID       ledger.SKUID
	ArticleCode string
	Brand       string
	Category    string

	MinAgeDays      *int
	MaxAgeDays      *int
	OnlyPositiveSOH bool
}

// Row is one (customer, SKU) bucket aggregate.
type Row struct {
	CustomerID   ledger.CustomerID
	CustomerName string
	SKUID        ledger.SKUID
	ArticleCode  string
	Description  string
	Brand        string

	Category     string

	Bucket0to30  decimal.Decimal
	Bucket31to60 decimal.Decimal
	Bucket61to90 decimal.Decimal
	Bucket90Plus decimal.Decimal
	SOHQty       decimal.Decimal
	AvgAgeDays   *decimal.Decimal // nil when no stock remains

	OldestLot *ledger.Date
	NewestLot *ledger.Date

	TotalReceipts decimal.Decimal
	TotalIssues   decimal.Decimal
	LastSellout   *ledger.Date
	LastMovement  *ledger.Date

	// Populated only when the store declares the unit-price capability.
	Price *PriceStats
}

// PriceStats are indicative sell-in price figures for the pair.
type PriceStats struct {
	Avg  decimal.Decimal // quantity-weighted
	High decimal.Decimal
	Low  decimal.Decimal
	Last decimal.Decimal
}

// Layer is one surviving FIFO lot.
type Layer struct {
	CustomerID   ledger.CustomerID
	CustomerName string
	SKUID        ledger.SKUID
	ArticleCode  string
	Description  string
	Brand        string

	LotDate   ledger.Date
	Remaining decimal.Decimal
	AgeDays   int
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store   ledger.Store
	Master  ledger.MasterStore
	Anchors *ledger.AnchorResolver
}

func NewEngine(store ledger.Store, master ledger.MasterStore) *Engine {
	return &Engine{
		Store:   store,
		Master:  master,
		Anchors: ledger.NewAnchorResolver(store),
	}
}

// Buckets returns the aggregated aging rows visible under scope.
func (e *Engine) Buckets(ctx context.Context, asOf ledger.Date, f Filter, scope ledger.Scope) ([]Row, error) {
	maths, err := e.replayPairs(ctx, asOf, f)
	if err != nil {
		return nil, err
	}

	priced := e.Store.Capabilities().UnitPrice

	var rows []Row
	for _, pm := range maths {
		layers := filterLayersByAge(pm.layers, f.MinAgeDays, f.MaxAgeDays)

		row := Row{
			CustomerID:    pm.pair.CustomerID,
			SKUID:         pm.pair.SKUID,
			Bucket0to30:   decimal.Zero,
			Bucket31to60:  decimal.Zero,
			Bucket61to90:  decimal.Zero,
			Bucket90Plus:  decimal.Zero,
			SOHQty:        decimal.Zero,
			TotalReceipts: pm.totalReceipts,
			TotalIssues:   pm.totalIssues,
			LastSellout:   pm.lastSellout,
			LastMovement:  pm.lastMovement,
		}

		weightedAge := decimal.Zero
		for _, l := range layers {
			switch {
			case l.AgeDays <= 30:
				row.Bucket0to30 = row.Bucket0to30.Add(l.Remaining)
			case l.AgeDays <= 60:
				row.Bucket31to60 = row.Bucket31to60.Add(l.Remaining)
			case l.AgeDays <= 90:
				row.Bucket61to90 = row.Bucket61to90.Add(l.Remaining)
			default:
				row.Bucket90Plus = row.Bucket90Plus.Add(l.Remaining)
			}
			row.SOHQty = row.SOHQty.Add(l.Remaining)
			weightedAge = weightedAge.Add(l.Remaining.Mul(decimal.NewFromInt(int64(l.AgeDays))))

			lot := l.LotDate
			if row.OldestLot == nil || lot.Before(*row.OldestLot) {
				d := lot
				row.OldestLot = &d
			}
			if row.NewestLot == nil || lot.After(*row.NewestLot) {
				d := lot
				row.NewestLot = &d
			}
		}
		if row.SOHQty.IsPositive() {
			avg := weightedAge.Div(row.SOHQty)
			row.AvgAgeDays = &avg
		}

		if f.OnlyPositiveSOH && !row.SOHQty.IsPositive() {
			continue
		}

		if err := e.enrich(ctx, &row); err != nil {
			return nil, err
		}
		if !reportable(row.Brand, row.ArticleCode, row.Category, f, scope) {
			continue
		}
		if priced {
			row.Price = priceStats(pm.history)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CustomerName != rows[j].CustomerName {
			return rows[i].CustomerName < rows[j].CustomerName
		}
		if rows[i].Brand != rows[j].Brand {
			return rows[i].Brand < rows[j].Brand
		}
		return rows[i].ArticleCode < rows[j].ArticleCode
	})
	return rows, nil
}

// Layers returns the surviving lots themselves, for drill-down views.
// Age filters do not apply here; the detail view always shows every layer.
func (e *Engine) Layers(ctx context.Context, asOf ledger.Date, f Filter, scope ledger.Scope) ([]Layer, error) {
	maths, err := e.replayPairs(ctx, asOf, f)
	if err != nil {
		return nil, err
	}

	var result []Layer
	for _, pm := range maths {
		if len(pm.layers) == 0 {
			continue
		}

		var name, article, desc, brand, category string
		if c, err := e.Master.GetCustomer(ctx, pm.pair.CustomerID); err == nil {
			name = c.Name
		}
		if s, err := e.Master.GetSKU(ctx, pm.pair.SKUID); err == nil {
			article, desc, brand, category = s.ArticleCode, s.Description, s.Brand, s.Category
		}
		if !reportable(brand, article, category, f, scope) {
			continue
		}

		for _, l := range pm.layers {
			result = append(result, Layer{
				CustomerID:   pm.pair.CustomerID,
				CustomerName: name,
				SKUID:        pm.pair.SKUID,
				ArticleCode:  article,
				Description:  desc,
				Brand:        brand,
				LotDate:      l.LotDate,
				Remaining:    l.Remaining,
				AgeDays:      l.AgeDays,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		if a.SKUID != b.SKUID {
			return a.SKUID < b.SKUID
		}
		if !a.LotDate.Equal(b.LotDate) {
			return a.LotDate.Before(b.LotDate)
		}
		return a.Remaining.GreaterThan(b.Remaining)
	})
	return result, nil
}

// =============================================================================
// REPLAY
// =============================================================================

type pairMath struct {
	pair          ledger.Pair
	totalIssues   decimal.Decimal
	totalReceipts decimal.Decimal
	lastMovement  *ledger.Date
	lastSellout   *ledger.Date
	layers        []Layer
	history       []ledger.Entry // full history <= asOf, for price stats
}

func (e *Engine) replayPairs(ctx context.Context, asOf ledger.Date, f Filter) ([]pairMath, error) {
	pairs, err := e.Store.Pairs(ctx, f.CustomerID)
	if err != nil {
		return nil, err
	}

	goLive := make(map[ledger.CustomerID]*ledger.Date)
	var result []pairMath
	for _, pair := range pairs {
		if f.SKUID != 0 && pair.SKUID != f.SKUID {
			continue
		}

		gl, ok := goLive[pair.CustomerID]
		if !ok {
			gl, err = e.Anchors.GoLive(ctx, pair.CustomerID, asOf)
			if err != nil {
				return nil, err
			}
			goLive[pair.CustomerID] = gl
		}
		if gl == nil {
			continue // never counted; no known starting point
		}

		history, err := e.Store.Movements(ctx, pair.CustomerID, pair.SKUID, nil, asOf)
		if err != nil {
			return nil, err
		}

		pm := replayWindow(pair, history, *gl, asOf)
		pm.history = history
		result = append(result, pm)
	}
	return result, nil
}

func replayWindow(pair ledger.Pair, history []ledger.Entry, goLive, asOf ledger.Date) pairMath {
	pm := pairMath{
		pair:          pair,
		totalIssues:   decimal.Zero,
		totalReceipts: decimal.Zero,
	}

	type lot struct {
		date ledger.Date
		qty  decimal.Decimal
	}
	var lots []lot

	for _, entry := range history {
		if entry.DocDate.Before(goLive) {
			continue
		}
		signed := entry.Signed()
		if signed.IsPositive() {
			pm.totalReceipts = pm.totalReceipts.Add(signed)
			lots = append(lots, lot{date: entry.DocDate, qty: signed})
		} else if signed.IsNegative() {
			pm.totalIssues = pm.totalIssues.Add(signed.Neg())
			d := entry.DocDate
			if pm.lastSellout == nil || d.After(*pm.lastSellout) {
				pm.lastSellout = &d
			}
		}
		d := entry.DocDate
		if pm.lastMovement == nil || d.After(*pm.lastMovement) {
			pm.lastMovement = &d
		}
	}

	// Allocate total issues against lots oldest-first.
	cumPrev := decimal.Zero
	for _, l := range lots {
		var consumed decimal.Decimal
		switch {
		case pm.totalIssues.LessThanOrEqual(cumPrev):
			consumed = decimal.Zero
		case pm.totalIssues.GreaterThanOrEqual(cumPrev.Add(l.qty)):
			consumed = l.qty
		default:
			consumed = pm.totalIssues.Sub(cumPrev)
		}
		remaining := l.qty.Sub(consumed)
		if remaining.IsPositive() {
			pm.layers = append(pm.layers, Layer{
				CustomerID: pair.CustomerID,
				SKUID:      pair.SKUID,
				LotDate:    l.date,
				Remaining:  remaining,
				AgeDays:    ledger.DaysBetween(l.date, asOf),
			})
		}
		cumPrev = cumPrev.Add(l.qty)
	}
	return pm
}

// =============================================================================
// HELPERS
// =============================================================================

func filterLayersByAge(layers []Layer, minAge, maxAge *int) []Layer {
	if minAge == nil && maxAge == nil {
		return layers
	}
	var result []Layer
	for _, l := range layers {
		if minAge != nil && l.AgeDays < *minAge {
			continue
		}
		if maxAge != nil && l.AgeDays > *maxAge {
			continue
		}
		result = append(result, l)
	}
	return result
}

func (e *Engine) enrich(ctx context.Context, row *Row) error {
	c, err := e.Master.GetCustomer(ctx, row.CustomerID)
	if err != nil && !ledger.IsNotFound(err) {
		return err
	}
	if c != nil {
		row.CustomerName = c.Name
	}
	s, err := e.Master.GetSKU(ctx, row.SKUID)
	if err != nil && !ledger.IsNotFound(err) {
		return err
	}
	if s != nil {
		row.ArticleCode = s.ArticleCode
		row.Description = s.Description
		row.Brand = s.Brand
		row.Category = s.Category
	}
	return nil
}

func reportable(brand, article, category string, f Filter, scope ledger.Scope) bool {
	if !scope.AllowsBrand(brand) {
		return false
	}
	if f.Brand != "" && brand != f.Brand {
		return false
	}
	if f.ArticleCode != "" && article != f.ArticleCode {
		return false
	}
	if f.Category != "" && category != f.Category {
		return false
	}
	return true
}

// priceStats derives indicative prices from positive-quantity sell-in rows
// with a unit price, over the full history up to asOf.
func priceStats(history []ledger.Entry) *PriceStats {
	var (
		weighted = decimal.Zero
		qtySum   = decimal.Zero
		stats    *PriceStats
		lastDate ledger.Date
		lastID   ledger.EntryID
	)
	for _, entry := range history {
		if entry.Movement != ledger.MovementSellIn || entry.UnitPrice == nil || !entry.Qty.IsPositive() {
			continue
		}
		price := *entry.UnitPrice
		weighted = weighted.Add(price.Mul(entry.Qty))
		qtySum = qtySum.Add(entry.Qty)

		if stats == nil {
			stats = &PriceStats{High: price, Low: price, Last: price}
			lastDate, lastID = entry.DocDate, entry.ID
			continue
		}
		if price.GreaterThan(stats.High) {
			stats.High = price
		}
		if price.LessThan(stats.Low) {
			stats.Low = price
		}
		if entry.DocDate.After(lastDate) || (entry.DocDate.Equal(lastDate) && entry.ID > lastID) {
			stats.Last = price
			lastDate, lastID = entry.DocDate, entry.ID
		}
	}
	if stats == nil || !qtySum.IsPositive() {
		return nil
	}
	stats.Avg = weighted.Div(qtySum)
	return stats
}
