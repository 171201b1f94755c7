/*
handlers.go - HTTP API handlers for the inventory ledger system

PURPOSE:
  Exposes the ledger, balance, aging, and batch engines via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Ledger:
    POST   /api/ledger/entries         Capture movements (idempotent)
    POST   /api/snapshots              Ingest a counted-stock snapshot
    GET    /api/balance                Balance as-of for a (customer, SKU)

  Aging:
    GET    /api/aging                  FIFO bucket report
    GET    /api/aging/layers           Surviving lot detail
    GET    /api/aging/export.csv       Bucket report as CSV

  Sell-out batches:
    GET    /api/sellout/uploads        List (filter by status/brand/customer)
    POST   /api/sellout/uploads        Create a draft batch
    GET    /api/sellout/uploads/{id}   Header
    GET    /api/sellout/uploads/{id}/preview    Admission preview (?force=true)
    GET    /api/sellout/uploads/{id}/approvals  Audit trail
    POST   /api/sellout/approve        Approve + post (multi-id)
    POST   /api/sellout/reject         Reject (multi-id)
    POST   /api/sellout/resubmit       Resubmit (multi-id)

  Master data + admin:
    GET    /api/customers              List with status tags
    POST   /api/customers              Upsert
    GET    /api/skus                   List
    POST   /api/skus                   Upsert
    POST   /api/admin/status/recompute Trigger status recompute
    GET    /api/config/{key}           Read config value
    PUT    /api/config/{key}           Set config value

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate entry, lifecycle race)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pulse/inventory-engine/aging"
	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
	"github.com/pulse/inventory-engine/status"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Stores bundles every persistence interface the API needs. The SQLite
// store satisfies all of them; tests compose the in-memory ones.
type Stores struct {
	Ledger    ledger.Store
	Snapshots ledger.SnapshotStore
	Master    ledger.MasterStore
	Config    ledger.ConfigStore
	Batches   sellout.Store
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	stores Stores

	balances   *ledger.BalanceEngine
	aging      *aging.Engine
	recorder   *ledger.Recorder
	ingestor   *ledger.Ingestor
	previewer  *sellout.Previewer
	poster     *sellout.Poster
	recomputer *status.Recomputer

	currentScenario string // last demo scenario loaded (scenarios.go)
}

// NewHandler wires the engines on top of the given stores.
func NewHandler(s Stores) *Handler {
	balances := ledger.NewBalanceEngine(s.Ledger, s.Snapshots)
	return &Handler{
		stores:     s,
		balances:   balances,
		aging:      aging.NewEngine(s.Ledger, s.Master),
		recorder:   ledger.NewRecorder(s.Ledger),
		ingestor:   ledger.NewIngestor(s.Ledger, s.Snapshots),
		previewer:  sellout.NewPreviewer(balances, s.Batches),
		poster:     sellout.NewPoster(s.Batches),
		recomputer: status.NewRecomputer(s.Ledger, s.Master, s.Config),
	}
}

// Recomputer exposes the status engine for the scheduler.
func (h *Handler) Recomputer() *status.Recomputer {
	return h.recomputer
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// CaptureEntries appends a batch of movements, skipping duplicates.
// POST /api/ledger/entries
func (h *Handler) CaptureEntries(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "No entries provided", nil)
		return
	}

	entries := make([]ledger.Entry, 0, len(req.Entries))
	for i, e := range req.Entries {
		entry, err := e.toEntry()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid entry %d", i), err)
			return
		}
		entries = append(entries, entry)
	}

	tally, err := h.recorder.Record(r.Context(), entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to capture entries", err)
		return
	}

	writeJSON(w, http.StatusOK, CaptureResponse{Created: tally.Created, Skipped: tally.Skipped})
}

// IngestSnapshot saves a counted-stock snapshot and its ADJUST restatement.
// POST /api/snapshots
func (h *Handler) IngestSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	kind := ledger.SnapshotKind(req.Kind)
	if kind == "" {
		kind = ledger.SnapshotPeriodic
	}

	id, err := h.ingestor.Ingest(r.Context(), ledger.Snapshot{
		CustomerID: ledger.CustomerID(req.CustomerID),
		SKUID:      ledger.SKUID(req.SKUID),
		Brand:      req.Brand,
		Date:       date,
		Qty:        decimal.NewFromFloat(req.Qty),
		Kind:       kind,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to ingest snapshot", err)
		return
	}

	writeJSON(w, http.StatusCreated, SnapshotResponse{ID: id})
}

// GetBalance returns the anchored balance for a (customer, SKU) pair.
// GET /api/balance?customer_id=&sku_id=&as_of=&brand=
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryInt64(r, "customer_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer_id", err)
		return
	}
	skuID, err := queryInt64(r, "sku_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sku_id", err)
		return
	}
	asOf, err := queryDate(r, "as_of", ledger.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
		return
	}

	balance, err := h.balances.BalanceAsOf(r.Context(), ledger.BalanceQuery{
		CustomerID: ledger.CustomerID(customerID),
		SKUID:      ledger.SKUID(skuID),
		Brand:      r.URL.Query().Get("brand"),
		AsOf:       asOf,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(ledger.CustomerID(customerID), ledger.SKUID(skuID), balance))
}

// =============================================================================
// AGING HANDLERS
// =============================================================================

// GetAging returns the FIFO bucket report.
// GET /api/aging?as_of=&customer_id=&sku_id=&article_code=&brand=&category=&min_age=&max_age=&only_positive=&brands=
func (h *Handler) GetAging(w http.ResponseWriter, r *http.Request) {
	asOf, f, scope, err := agingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid aging parameters", err)
		return
	}

	rows, err := h.aging.Buckets(r.Context(), asOf, f, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute aging report", err)
		return
	}

	dtos := make([]AgingRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toAgingRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAgingLayers returns the surviving FIFO lots.
// GET /api/aging/layers
func (h *Handler) GetAgingLayers(w http.ResponseWriter, r *http.Request) {
	asOf, f, scope, err := agingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid aging parameters", err)
		return
	}

	layers, err := h.aging.Layers(r.Context(), asOf, f, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute layer detail", err)
		return
	}

	dtos := make([]AgingLayerDTO, len(layers))
	for i, l := range layers {
		dtos[i] = toAgingLayerDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportAgingCSV streams the bucket report as CSV.
// GET /api/aging/export.csv
func (h *Handler) ExportAgingCSV(w http.ResponseWriter, r *http.Request) {
	asOf, f, scope, err := agingParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid aging parameters", err)
		return
	}

	rows, err := h.aging.Buckets(r.Context(), asOf, f, scope)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute aging report", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="aging_%s.csv"`, asOf.String()))

	cw := csv.NewWriter(w)
	cw.Write(aging.CSVHeader())
	for _, row := range rows {
		cw.Write(row.CSVRecord())
	}
	cw.Flush()
}

func agingParams(r *http.Request) (ledger.Date, aging.Filter, ledger.Scope, error) {
	var f aging.Filter
	var scope ledger.Scope

	asOf, err := queryDate(r, "as_of", ledger.Today())
	if err != nil {
		return asOf, f, scope, err
	}

	q := r.URL.Query()
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return asOf, f, scope, err
		}
		f.CustomerID = ledger.CustomerID(id)
	}
	if v := q.Get("sku_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return asOf, f, scope, err
		}
		f.SKUID = ledger.SKUID(id)
	}
	f.ArticleCode = q.Get("article_code")
	f.Brand = q.Get("brand")
	f.Category = q.Get("category")
	f.OnlyPositiveSOH = q.Get("only_positive") == "true"

	if v := q.Get("min_age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return asOf, f, scope, err
		}
		f.MinAgeDays = &n
	}
	if v := q.Get("max_age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return asOf, f, scope, err
		}
		f.MaxAgeDays = &n
	}

	scope.Brands = q["brands"]
	return asOf, f, scope, nil
}

// =============================================================================
// SELL-OUT BATCH HANDLERS
// =============================================================================

// ListUploads returns batch headers, optionally filtered.
// GET /api/sellout/uploads?status=&brand=&customer_id=
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sellout.ListFilter{
		Status: q.Get("status"),
		Brand:  q.Get("brand"),
	}
	if v := q.Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid customer_id", err)
			return
		}
		filter.CustomerID = ledger.CustomerID(id)
	}

	uploads, err := h.stores.Batches.ListUploads(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list uploads", err)
		return
	}

	dtos := make([]UploadDTO, len(uploads))
	for i, u := range uploads {
		dtos[i] = toUploadDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUpload persists a draft batch with its lines.
// POST /api/sellout/uploads
func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var req CreateUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "No lines provided", nil)
		return
	}

	periodStart, err := ledger.ParseDate(req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start (use YYYY-MM-DD)", err)
		return
	}
	periodEnd, err := ledger.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end (use YYYY-MM-DD)", err)
		return
	}

	lines := make([]sellout.Line, 0, len(req.Lines))
	for i, l := range req.Lines {
		docDate, err := ledger.ParseDate(l.DocDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid doc_date on line %d", i), err)
			return
		}
		line := sellout.Line{
			RowNumber:   l.RowNumber,
			SKUID:       ledger.SKUID(l.SKUID),
			CustSKUCode: l.CustSKUCode,
			DocDate:     docDate,
			Qty:         decimal.NewFromFloat(l.Qty),
		}
		if l.ReportedSOH != nil {
			soh := decimal.NewFromFloat(*l.ReportedSOH)
			line.ReportedSOH = &soh
		}
		lines = append(lines, line)
	}

	id, err := h.stores.Batches.CreateUpload(r.Context(), sellout.Upload{
		CustomerID:  ledger.CustomerID(req.CustomerID),
		Brand:       req.Brand,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		SourceFile:  req.SourceFile,
		CreatedBy:   req.CreatedBy,
	}, lines)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create upload", err)
		return
	}

	if err := h.stores.Batches.AddApproval(r.Context(), sellout.Approval{
		UploadID: id,
		Action:   sellout.ActionSubmit,
		Actor:    req.CreatedBy,
		At:       time.Now().UTC(),
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record submission", err)
		return
	}

	upload, err := h.stores.Batches.GetUpload(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUploadDTO(*upload))
}

// GetUpload returns one batch header.
// GET /api/sellout/uploads/{id}
func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload id", err)
		return
	}

	upload, err := h.stores.Batches.GetUpload(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Upload not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get upload", err)
		return
	}

	writeJSON(w, http.StatusOK, toUploadDTO(*upload))
}

// GetPreview returns the admission preview, computing and persisting it on
// first request. ?force=true recomputes.
// GET /api/sellout/uploads/{id}/preview
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload id", err)
		return
	}

	force := r.URL.Query().Get("force") == "true"
	hasNegatives, rows, err := h.previewer.Cached(r.Context(), id, force)
	if errors.Is(err, ledger.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Upload not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute preview", err)
		return
	}

	resp := PreviewResponse{
		UploadID:     int64(id),
		HasNegatives: hasNegatives,
		Rows:         make([]PreviewRowDTO, len(rows)),
	}
	for i, row := range rows {
		resp.Rows[i] = toPreviewRowDTO(row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetApprovals returns the audit trail for one upload.
// GET /api/sellout/uploads/{id}/approvals
func (h *Handler) GetApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := pathUploadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload id", err)
		return
	}

	approvals, err := h.stores.Batches.Approvals(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get approvals", err)
		return
	}

	dtos := make([]ApprovalDTO, len(approvals))
	for i, a := range approvals {
		dtos[i] = ApprovalDTO{
			UploadID: int64(a.UploadID),
			Action:   a.Action,
			Actor:    a.Actor,
			Comment:  a.Comment,
			At:       a.At.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveUploads posts the given drafts into the ledger.
// POST /api/sellout/approve
func (h *Handler) ApproveUploads(w http.ResponseWriter, r *http.Request) {
	h.batchAction(w, r, h.poster.Post)
}

// RejectUploads moves drafts to Rejected.
// POST /api/sellout/reject
func (h *Handler) RejectUploads(w http.ResponseWriter, r *http.Request) {
	h.batchAction(w, r, h.poster.Reject)
}

// ResubmitUploads moves rejected batches back to Draft.
// POST /api/sellout/resubmit
func (h *Handler) ResubmitUploads(w http.ResponseWriter, r *http.Request) {
	h.batchAction(w, r, h.poster.Resubmit)
}

func (h *Handler) batchAction(w http.ResponseWriter, r *http.Request,
	action func(ctx context.Context, ids []ledger.UploadID, actor, comment string) (sellout.PostResult, error)) {

	var req BatchActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.UploadIDs) == 0 {
		writeError(w, http.StatusBadRequest, "No upload ids provided", nil)
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "Actor is required", nil)
		return
	}

	ids := make([]ledger.UploadID, len(req.UploadIDs))
	for i, id := range req.UploadIDs {
		ids[i] = ledger.UploadID(id)
	}

	result, err := action(r.Context(), ids, req.Actor, req.Comment)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch action failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostResultDTO(result))
}

// =============================================================================
// MASTER DATA + ADMIN HANDLERS
// =============================================================================

// ListCustomers returns all customers with their status tags.
// GET /api/customers
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.stores.Master.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list customers", err)
		return
	}

	dtos := make([]CustomerDTO, len(customers))
	for i, c := range customers {
		tags, err := h.stores.Master.CustomerTags(r.Context(), c.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load tags", err)
			return
		}
		dtos[i] = toCustomerDTO(c, tags)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertCustomer creates or updates a customer.
// POST /api/customers
func (h *Handler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	var dto CustomerDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c := ledger.Customer{
		ID:     ledger.CustomerID(dto.ID),
		Code:   dto.Code,
		Name:   dto.Name,
		Status: dto.Status,
	}
	if dto.StatusDate != nil {
		d, err := ledger.ParseDate(*dto.StatusDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid status_date (use YYYY-MM-DD)", err)
			return
		}
		c.StatusDate = &d
	}

	if err := h.stores.Master.UpsertCustomer(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to upsert customer", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListSKUs returns all SKUs.
// GET /api/skus
func (h *Handler) ListSKUs(w http.ResponseWriter, r *http.Request) {
	skus, err := h.stores.Master.ListSKUs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list skus", err)
		return
	}

	dtos := make([]SKUDTO, len(skus))
	for i, s := range skus {
		dtos[i] = toSKUDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertSKU creates or updates a SKU.
// POST /api/skus
func (h *Handler) UpsertSKU(w http.ResponseWriter, r *http.Request) {
	var dto SKUDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.stores.Master.UpsertSKU(r.Context(), ledger.SKU{
		ID:          ledger.SKUID(dto.ID),
		ArticleCode: dto.ArticleCode,
		Description: dto.Description,
		Brand:       dto.Brand,
		Category:    dto.Category,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to upsert sku", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// TriggerRecompute runs the customer status recompute now.
// POST /api/admin/status/recompute
func (h *Handler) TriggerRecompute(w http.ResponseWriter, r *http.Request) {
	tally, err := h.recomputer.Run(r.Context(), ledger.Today())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Status recompute failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RecomputeResponse{
		PrimaryUpdated:  tally.PrimaryUpdated,
		TagsUpdated:     tally.TagsUpdated,
		SkippedDisabled: tally.SkippedDisabled,
	})
}

// GetConfig returns one config value.
// GET /api/config/{key}
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok, err := h.stores.Config.GetConfig(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read config", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Config key not set", nil)
		return
	}
	writeJSON(w, http.StatusOK, ConfigDTO{Key: key, Value: value})
}

// SetConfig sets one config value.
// PUT /api/config/{key}
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var dto ConfigDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.stores.Config.SetConfig(r.Context(), key, dto.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to set config", err)
		return
	}
	writeJSON(w, http.StatusOK, ConfigDTO{Key: key, Value: dto.Value})
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Error(message)
	}
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func queryInt64(r *http.Request, key string) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return strconv.ParseInt(v, 10, 64)
}

func queryDate(r *http.Request, key string, fallback ledger.Date) (ledger.Date, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return ledger.ParseDate(v)
}

func pathUploadID(r *http.Request) (ledger.UploadID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return ledger.UploadID(id), err
}
