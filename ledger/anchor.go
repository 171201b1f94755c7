/*
anchor.go - ADJUST anchor resolution

PURPOSE:
  An anchor is an ADJUST date that marks known-good counted stock. Balances
  are never summed from the beginning of time; they replay from an anchor.

  Two anchors matter per (customer, SKU) pair:
  - customer anchor: latest ADJUST <= asOf for the customer, any SKU
  - sku anchor:      latest ADJUST <= asOf for this exact pair
  The effective anchor is the later of the two, or whichever exists. A
  later customer-wide count therefore re-anchors every SKU of that
  customer, even SKUs absent from the count.

  Separately, the go-live date (earliest customer ADJUST) bounds FIFO
  replay windows: movements before the first count are unknowable.

SEE ALSO:
  - balance.go: Consumes EffectiveAnchor
  - ../aging/engine.go: Consumes GoLive
*/
package ledger

import "context"

// =============================================================================
// ANCHOR RESOLVER
// =============================================================================

type AnchorResolver struct {
	Store Store
}

func NewAnchorResolver(store Store) *AnchorResolver {
	return &AnchorResolver{Store: store}
}

// EffectiveAnchor returns the later of the customer anchor and the sku
// anchor, whichever of the two exists, or nil when the customer has never
// been counted.
func (r *AnchorResolver) EffectiveAnchor(ctx context.Context, customerID CustomerID, skuID SKUID, asOf Date) (*Date, error) {
	cust, err := r.Store.LatestCustomerAdjust(ctx, customerID, asOf)
	if err != nil {
		return nil, err
	}
	sku, err := r.Store.LatestPairAdjust(ctx, customerID, skuID, asOf)
	if err != nil {
		return nil, err
	}

	switch {
	case cust == nil && sku == nil:
		return nil, nil
	case cust == nil:
		return sku, nil
	case sku == nil:
		return cust, nil
	}
	eff := MaxDate(*cust, *sku)
	return &eff, nil
}

// GoLive returns the customer's earliest ADJUST date on or before asOf,
// or nil when the customer has none. Pairs of customers without a go-live
// date are excluded from FIFO aging entirely.
func (r *AnchorResolver) GoLive(ctx context.Context, customerID CustomerID, asOf Date) (*Date, error) {
	return r.Store.EarliestCustomerAdjust(ctx, customerID, asOf)
}
