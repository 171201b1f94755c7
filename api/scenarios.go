/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the stores with realistic
	data for testing and demos. Each scenario creates customers, SKUs,
	snapshots, and ledger movements that demonstrate specific features.

AVAILABLE SCENARIOS:

	starter-ledger:     Snapshot-anchored balances with simple movements
	aging-mix:          FIFO lots of mixed ages with unit prices
	negative-admission: Draft batch that oversells its stock
	dormant-customers:  Customers at every status threshold

HOW SCENARIOS WORK:
 1. Upsert master data (customers, SKUs)
 2. Ingest counted snapshots where the scenario needs an anchor
 3. Capture movements through the recorder (replays skip, so loading a
    scenario twice is harmless)
 4. Optionally create a draft sell-out batch and compute its preview

Each scenario uses its own customer ID range, so loading several
scenarios side by side works.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "aging-mix"}

NOTE:

	Scenarios add data; they never delete. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - server.go: /api/scenarios routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "starter-ledger",
		Name:        "Starter Ledger",
		Description: "Initial snapshots plus sell-in/sell-out movements for two SKUs",
		Category:    "balance",
	},
	{
		ID:          "aging-mix",
		Name:        "Aging Mix",
		Description: "FIFO lots aged across all four buckets, with unit prices",
		Category:    "aging",
	},
	{
		ID:          "negative-admission",
		Name:        "Negative Admission",
		Description: "Draft sell-out batch that would drive the balance negative",
		Category:    "sellout",
	},
	{
		ID:          "dormant-customers",
		Name:        "Dormant Customers",
		Description: "Customers straddling the hibernation and dead thresholds",
		Category:    "status",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	var err error
	switch req.ScenarioID {
	case "starter-ledger":
		err = h.loadStarterLedgerScenario(ctx)
	case "aging-mix":
		err = h.loadAgingMixScenario(ctx)
	case "negative-admission":
		err = h.loadNegativeAdmissionScenario(ctx)
	case "dormant-customers":
		err = h.loadDormantCustomersScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadStarterLedgerScenario: customer 101 with two SKUs, counted snapshots
// as anchors, and a month of movements on top.
func (h *Handler) loadStarterLedgerScenario(ctx context.Context) error {
	today := ledger.Today()

	if err := h.stores.Master.UpsertCustomer(ctx, ledger.Customer{
		ID: 101, Code: "C101", Name: "Northwind Electro", Status: ledger.StatusActive,
	}); err != nil {
		return err
	}
	for _, sku := range []ledger.SKU{
		{ID: 1001, ArticleCode: "VT-100", Description: "Volt charger 100W", Brand: "Volt", Category: "Chargers"},
		{ID: 1002, ArticleCode: "VT-210", Description: "Volt powerbank 21k", Brand: "Volt", Category: "Power"},
	} {
		if err := h.stores.Master.UpsertSKU(ctx, sku); err != nil {
			return err
		}
	}

	// Counted baselines 30 days back. Re-ingesting supersedes, so reloads
	// are safe.
	for skuID, qty := range map[ledger.SKUID]int64{1001: 120, 1002: 45} {
		if _, err := h.ingestor.Ingest(ctx, ledger.Snapshot{
			CustomerID: 101,
			SKUID:      skuID,
			Brand:      "Volt",
			Date:       today.AddDays(-30),
			Qty:        decimal.NewFromInt(qty),
			Kind:       ledger.SnapshotInitial,
		}); err != nil {
			return err
		}
	}

	_, err := h.recorder.Record(ctx, []ledger.Entry{
		scenarioEntry(101, 1001, today.AddDays(-21), ledger.MovementSellIn, 40, "demo-starter:si1"),
		scenarioEntry(101, 1001, today.AddDays(-14), ledger.MovementSellOut, 25, "demo-starter:so1"),
		scenarioEntry(101, 1002, today.AddDays(-18), ledger.MovementSellIn, 15, "demo-starter:si2"),
		scenarioEntry(101, 1002, today.AddDays(-7), ledger.MovementSellOut, 12, "demo-starter:so2"),
	})
	return err
}

// loadAgingMixScenario: customer 102 with receipts landing in every age
// bucket and partial sell-through, unit prices included.
func (h *Handler) loadAgingMixScenario(ctx context.Context) error {
	today := ledger.Today()

	if err := h.stores.Master.UpsertCustomer(ctx, ledger.Customer{
		ID: 102, Code: "C102", Name: "Harbor Gadgets", Status: ledger.StatusActive,
	}); err != nil {
		return err
	}
	if err := h.stores.Master.UpsertSKU(ctx, ledger.SKU{
		ID: 1003, ArticleCode: "VT-330", Description: "Volt speaker 30W", Brand: "Volt", Category: "Audio",
	}); err != nil {
		return err
	}

	// Takes effect for SQLite stores on next open; the memory store applies
	// it via DeclareCapabilities in tests.
	if err := h.stores.Config.SetConfig(ctx, ledger.ConfigUnitPriceCapability, "1"); err != nil {
		return err
	}

	entries := []ledger.Entry{
		scenarioEntry(102, 1003, today.AddDays(-150), ledger.MovementAdjust, 0, "demo-aging:golive"),
	}
	receipts := []struct {
		daysAgo int
		qty     float64
		price   string
	}{
		{120, 30, "19.90"}, // 90+ bucket
		{75, 20, "21.50"},  // 61-90
		{40, 25, "20.00"},  // 31-60
		{10, 15, "22.40"},  // 0-30
	}
	for i, rcpt := range receipts {
		e := scenarioEntry(102, 1003, today.AddDays(-rcpt.daysAgo), ledger.MovementSellIn, rcpt.qty,
			fmt.Sprintf("demo-aging:si%d", i+1))
		price := decimal.RequireFromString(rcpt.price)
		e.UnitPrice = &price
		entries = append(entries, e)
	}
	entries = append(entries,
		scenarioEntry(102, 1003, today.AddDays(-50), ledger.MovementSellOut, 35, "demo-aging:so1"),
		scenarioEntry(102, 1003, today.AddDays(-5), ledger.MovementSellOut, 10, "demo-aging:so2"),
	)

	_, err := h.recorder.Record(ctx, entries)
	return err
}

// loadNegativeAdmissionScenario: customer 103 with 20 units on hand and a
// draft batch reporting 28 sold, so the preview flags the overrun.
func (h *Handler) loadNegativeAdmissionScenario(ctx context.Context) error {
	today := ledger.Today()

	if err := h.stores.Master.UpsertCustomer(ctx, ledger.Customer{
		ID: 103, Code: "C103", Name: "Citylight Stores", Status: ledger.StatusActive,
	}); err != nil {
		return err
	}
	if err := h.stores.Master.UpsertSKU(ctx, ledger.SKU{
		ID: 1004, ArticleCode: "VT-450", Description: "Volt lamp 450lm", Brand: "Volt", Category: "Lighting",
	}); err != nil {
		return err
	}

	if _, err := h.recorder.Record(ctx, []ledger.Entry{
		scenarioEntry(103, 1004, today.AddDays(-20), ledger.MovementAdjust, 20, "demo-negadm:anchor"),
	}); err != nil {
		return err
	}

	// Uploads are not keyed, so guard against reloads creating duplicates.
	existing, err := h.stores.Batches.ListUploads(ctx, sellout.ListFilter{CustomerID: 103})
	if err != nil {
		return err
	}
	for _, u := range existing {
		if u.SourceFile == "demo-negadm.csv" {
			return nil
		}
	}

	id, err := h.stores.Batches.CreateUpload(ctx, sellout.Upload{
		CustomerID:  103,
		Brand:       "Volt",
		PeriodStart: today.AddDays(-14),
		PeriodEnd:   today,
		SourceFile:  "demo-negadm.csv",
		CreatedBy:   "demo-loader",
	}, []sellout.Line{
		{SKUID: 1004, DocDate: today.AddDays(-10), Qty: decimal.NewFromInt(12)},
		{SKUID: 1004, DocDate: today.AddDays(-3), Qty: decimal.NewFromInt(16)},
	})
	if err != nil {
		return err
	}
	if err := h.stores.Batches.AddApproval(ctx, sellout.Approval{
		UploadID: id, Action: sellout.ActionSubmit, Actor: "demo-loader",
	}); err != nil {
		return err
	}

	_, _, err = h.previewer.Cached(ctx, id, false)
	return err
}

// loadDormantCustomersScenario: one fresh, one hibernating, one dead, one
// disabled. Trigger the recompute afterwards to watch them classify.
func (h *Handler) loadDormantCustomersScenario(ctx context.Context) error {
	today := ledger.Today()

	customers := []struct {
		id      ledger.CustomerID
		name    string
		status  string
		daysAgo int // last activity on both sides; 0 means none at all
	}{
		{104, "Fresh Mart", ledger.StatusActive, 7},
		{105, "Slowpoke Retail", ledger.StatusActive, 45},
		{106, "Ghost Outlet", ledger.StatusActive, 200},
		{107, "Mothballed Kiosk", ledger.StatusDisabled, 0},
	}

	for _, c := range customers {
		if err := h.stores.Master.UpsertCustomer(ctx, ledger.Customer{
			ID: c.id, Name: c.name, Status: c.status,
		}); err != nil {
			return err
		}
		if c.daysAgo == 0 {
			continue
		}
		_, err := h.recorder.Record(ctx, []ledger.Entry{
			scenarioEntry(int64(c.id), 1001, today.AddDays(-c.daysAgo), ledger.MovementSellIn, 5,
				fmt.Sprintf("demo-dormant:si%d", c.id)),
			scenarioEntry(int64(c.id), 1001, today.AddDays(-c.daysAgo), ledger.MovementSellOut, 2,
				fmt.Sprintf("demo-dormant:so%d", c.id)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func scenarioEntry(cust int64, sku int64, d ledger.Date, movement ledger.MovementType, qty float64, key string) ledger.Entry {
	return ledger.Entry{
		CustomerID:     ledger.CustomerID(cust),
		SKUID:          ledger.SKUID(sku),
		DocDate:        d,
		Movement:       movement,
		Qty:            decimal.NewFromFloat(qty),
		IdempotencyKey: key,
	}
}
