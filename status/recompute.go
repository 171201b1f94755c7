/*
Package status recomputes customer standing from ledger activity.

PURPOSE:
  A customer's primary status (Active/DEAD) and hibernation tags are pure
  functions of how recently they bought (SELLIN) and sold through
  (SELLOUT). The recompute runs periodically and is idempotent: running it
  twice in a row changes nothing the second time.

RULES:
  - days-since uses max DocDate per movement type; "never" counts as a
    huge sentinel so it exceeds every threshold
  - Hibernating-Sell-in / Hibernating-Sell-out tags are independent of
    each other and of the primary status
  - primary becomes DEAD only when BOTH sides exceed the dead threshold;
    otherwise Active
  - Disabled customers are skipped entirely (manual override wins)

SEE ALSO:
  - ledger/master.go: Status vocabulary and config keys
  - api/scheduler.go: Periodic trigger
*/
package status

import (
	"context"
	"strconv"

	"github.com/pulse/inventory-engine/ledger"
)

// neverDays stands in for "this movement never happened"; it exceeds any
// sane threshold.
const neverDays = 1_000_000_000

// =============================================================================
// THRESHOLDS
// =============================================================================

type Thresholds struct {
	DeadDays         int
	HibernateInDays  int
	HibernateOutDays int
}

func DefaultThresholds() Thresholds {
	return Thresholds{DeadDays: 90, HibernateInDays: 30, HibernateOutDays: 30}
}

// LoadThresholds reads the configured thresholds, falling back to defaults
// for missing or malformed values.
func LoadThresholds(ctx context.Context, cfg ledger.ConfigStore) (Thresholds, error) {
	t := DefaultThresholds()

	read := func(key string, dst *int) error {
		v, ok, err := cfg.GetConfig(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
		return nil
	}

	if err := read(ledger.ConfigDeadThresholdDays, &t.DeadDays); err != nil {
		return t, err
	}
	if err := read(ledger.ConfigHibernateSellInDays, &t.HibernateInDays); err != nil {
		return t, err
	}
	if err := read(ledger.ConfigHibernateSellOutDays, &t.HibernateOutDays); err != nil {
		return t, err
	}
	return t, nil
}

// =============================================================================
// RECOMPUTER
// =============================================================================

// Tally summarizes one recompute run.
type Tally struct {
	PrimaryUpdated  int
	TagsUpdated     int
	SkippedDisabled int
}

type Recomputer struct {
	Ledger    ledger.Store
	Customers ledger.MasterStore
	Config    ledger.ConfigStore
}

func NewRecomputer(l ledger.Store, customers ledger.MasterStore, cfg ledger.ConfigStore) *Recomputer {
	return &Recomputer{Ledger: l, Customers: customers, Config: cfg}
}

// Run recomputes every customer's standing as of today.
func (r *Recomputer) Run(ctx context.Context, today ledger.Date) (Tally, error) {
	var tally Tally

	thresholds, err := LoadThresholds(ctx, r.Config)
	if err != nil {
		return tally, err
	}

	lastIn, err := r.Ledger.LastMovementByCustomer(ctx, ledger.MovementSellIn)
	if err != nil {
		return tally, err
	}
	lastOut, err := r.Ledger.LastMovementByCustomer(ctx, ledger.MovementSellOut)
	if err != nil {
		return tally, err
	}

	customers, err := r.Customers.ListCustomers(ctx)
	if err != nil {
		return tally, err
	}

	for _, c := range customers {
		if c.Status == ledger.StatusDisabled {
			tally.SkippedDisabled++
			continue
		}

		inDays := daysSince(lastIn, c.ID, today)
		outDays := daysSince(lastOut, c.ID, today)

		var want []string
		if inDays > thresholds.HibernateInDays {
			want = append(want, ledger.TagHibernatingSellIn)
		}
		if outDays > thresholds.HibernateOutDays {
			want = append(want, ledger.TagHibernatingSellOut)
		}

		primary := ledger.StatusActive
		if inDays > thresholds.DeadDays && outDays > thresholds.DeadDays {
			primary = ledger.StatusDead
		}

		if primary != c.Status {
			if err := r.Customers.UpdateCustomerStatus(ctx, c.ID, primary, today); err != nil {
				return tally, err
			}
			tally.PrimaryUpdated++
		}

		changed, err := r.Customers.SyncCustomerTags(ctx, c.ID, want)
		if err != nil {
			return tally, err
		}
		tally.TagsUpdated += changed
	}
	return tally, nil
}

func daysSince(last map[ledger.CustomerID]ledger.Date, id ledger.CustomerID, today ledger.Date) int {
	d, ok := last[id]
	if !ok {
		return neverDays
	}
	return ledger.DaysBetween(d, today)
}
