/*
scheduler.go - Periodic customer status recompute

PURPOSE:
  Runs the DEAD/hibernation status recompute on a timer so customer
  standing tracks ledger activity without manual triggers. The recompute
  itself is idempotent, so overlapping manual triggers are harmless.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start, then on every tick
  - Records run outcomes via structured logging

USAGE:
  scheduler := NewStatusScheduler(handler.Recomputer(), logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - status/recompute.go: The recompute itself
  - handlers.go: TriggerRecompute endpoint (manual trigger)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/status"
)

// StatusScheduler runs the customer status recompute periodically.
type StatusScheduler struct {
	Recomputer    *status.Recomputer
	CheckInterval time.Duration
	Enabled       bool

	log    *logrus.Logger
	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusScheduler creates a new scheduler with a 1 hour interval.
func NewStatusScheduler(recomputer *status.Recomputer, log *logrus.Logger) *StatusScheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatusScheduler{
		Recomputer:    recomputer,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		log:           log,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *StatusScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		ss.log.Info("status scheduler disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	ss.log.WithField("interval", ss.CheckInterval).Info("status scheduler started")
}

// Stop stops the scheduler.
func (ss *StatusScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		ss.log.Info("status scheduler stopped")
	}
}

func (ss *StatusScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.recompute()

	for {
		select {
		case <-ss.ticker.C:
			ss.recompute()
		case <-ss.stop:
			return
		}
	}
}

func (ss *StatusScheduler) recompute() {
	ctx := context.Background()
	today := ledger.Today()

	tally, err := ss.Recomputer.Run(ctx, today)
	if err != nil {
		ss.log.WithError(err).Error("status recompute failed")
		return
	}

	if tally.PrimaryUpdated > 0 || tally.TagsUpdated > 0 {
		ss.log.WithFields(logrus.Fields{
			"primary_updated":  tally.PrimaryUpdated,
			"tags_updated":     tally.TagsUpdated,
			"skipped_disabled": tally.SkippedDisabled,
		}).Info("status recompute completed")
	}
}

// RunNow triggers an immediate recompute (for testing/admin).
func (ss *StatusScheduler) RunNow() {
	ss.recompute()
}
