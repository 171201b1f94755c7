/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Domain types
  stay decimal/Date internally; DTOs use float64 and YYYY-MM-DD strings at
  the boundary.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pulse/inventory-engine/aging"
	"github.com/pulse/inventory-engine/ledger"
	"github.com/pulse/inventory-engine/sellout"
)

// =============================================================================
// ERROR RESPONSE
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// LEDGER CAPTURE
// =============================================================================

// EntryRequest is one movement to capture.
type EntryRequest struct {
	CustomerID     int64    `json:"customer_id"`
	SKUID          int64    `json:"sku_id"`
	DocDate        string   `json:"doc_date"`
	Movement       string   `json:"movement"`
	SubType        string   `json:"sub_type,omitempty"`
	Qty            float64  `json:"qty"`
	UnitPrice      *float64 `json:"unit_price,omitempty"`
	RefTable       string   `json:"ref_table,omitempty"`
	RefID          string   `json:"ref_id,omitempty"`
	IdempotencyKey string   `json:"idempotency_key"`
}

type CaptureRequest struct {
	Entries []EntryRequest `json:"entries"`
}

type CaptureResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

func (e EntryRequest) toEntry() (ledger.Entry, error) {
	docDate, err := ledger.ParseDate(e.DocDate)
	if err != nil {
		return ledger.Entry{}, err
	}
	entry := ledger.Entry{
		CustomerID:     ledger.CustomerID(e.CustomerID),
		SKUID:          ledger.SKUID(e.SKUID),
		DocDate:        docDate,
		Movement:       ledger.MovementType(e.Movement),
		SubType:        e.SubType,
		Qty:            decimal.NewFromFloat(e.Qty),
		RefTable:       e.RefTable,
		RefID:          e.RefID,
		IdempotencyKey: e.IdempotencyKey,
	}
	if e.UnitPrice != nil {
		p := decimal.NewFromFloat(*e.UnitPrice)
		entry.UnitPrice = &p
	}
	return entry, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

type SnapshotRequest struct {
	CustomerID int64   `json:"customer_id"`
	SKUID      int64   `json:"sku_id"`
	Brand      string  `json:"brand,omitempty"`
	Date       string  `json:"date"`
	Qty        float64 `json:"qty"`
	Kind       string  `json:"kind,omitempty"` // "Initial" or "Snapshot"
}

type SnapshotResponse struct {
	ID int64 `json:"id"`
}

// =============================================================================
// BALANCE
// =============================================================================

type BalanceDTO struct {
	CustomerID int64   `json:"customer_id"`
	SKUID      int64   `json:"sku_id"`
	AsOf       string  `json:"as_of"`
	Qty        float64 `json:"qty"`
	Anchor     *string `json:"anchor,omitempty"`
	Source     string  `json:"source"`
}

func toBalanceDTO(customerID ledger.CustomerID, skuID ledger.SKUID, b ledger.Balance) BalanceDTO {
	dto := BalanceDTO{
		CustomerID: int64(customerID),
		SKUID:      int64(skuID),
		AsOf:       b.AsOf.String(),
		Qty:        f64(b.Qty),
		Source:     string(b.Source),
	}
	dto.Anchor = dateStr(b.Anchor)
	return dto
}

// =============================================================================
// AGING
// =============================================================================

type AgingRowDTO struct {
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	SKUID        int64  `json:"sku_id"`
	ArticleCode  string `json:"article_code"`
	Description  string `json:"description"`
	Brand        string `json:"brand"`
	Category     string `json:"category,omitempty"`

	Bucket0to30  float64  `json:"bucket_0_30"`
	Bucket31to60 float64  `json:"bucket_31_60"`
	Bucket61to90 float64  `json:"bucket_61_90"`
	Bucket90Plus float64  `json:"bucket_90_plus"`
	SOHQty       float64  `json:"soh_qty"`
	AvgAgeDays   *float64 `json:"avg_age_days,omitempty"`

	OldestLot *string `json:"oldest_lot,omitempty"`
	NewestLot *string `json:"newest_lot,omitempty"`

	TotalReceipts float64 `json:"total_receipts"`
	TotalIssues   float64 `json:"total_issues"`
	LastSellout   *string `json:"last_sellout,omitempty"`
	LastMovement  *string `json:"last_movement,omitempty"`

	AvgPrice  *float64 `json:"avg_price,omitempty"`
	HighPrice *float64 `json:"high_price,omitempty"`
	LowPrice  *float64 `json:"low_price,omitempty"`
	LastPrice *float64 `json:"last_price,omitempty"`
}

type AgingLayerDTO struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	SKUID        int64   `json:"sku_id"`
	ArticleCode  string  `json:"article_code"`
	Description  string  `json:"description"`
	Brand        string  `json:"brand"`
	LotDate      string  `json:"lot_date"`
	Remaining    float64 `json:"remaining"`
	AgeDays      int     `json:"age_days"`
}

func toAgingRowDTO(r aging.Row) AgingRowDTO {
	dto := AgingRowDTO{
		CustomerID:    int64(r.CustomerID),
		CustomerName:  r.CustomerName,
		SKUID:         int64(r.SKUID),
		ArticleCode:   r.ArticleCode,
		Description:   r.Description,
		Brand:         r.Brand,
		Category:      r.Category,
		Bucket0to30:   f64(r.Bucket0to30),
		Bucket31to60:  f64(r.Bucket31to60),
		Bucket61to90:  f64(r.Bucket61to90),
		Bucket90Plus:  f64(r.Bucket90Plus),
		SOHQty:        f64(r.SOHQty),
		AvgAgeDays:    f64Ptr(r.AvgAgeDays),
		OldestLot:     dateStr(r.OldestLot),
		NewestLot:     dateStr(r.NewestLot),
		TotalReceipts: f64(r.TotalReceipts),
		TotalIssues:   f64(r.TotalIssues),
		LastSellout:   dateStr(r.LastSellout),
		LastMovement:  dateStr(r.LastMovement),
	}
	if r.Price != nil {
		avg, high, low, last := f64(r.Price.Avg), f64(r.Price.High), f64(r.Price.Low), f64(r.Price.Last)
		dto.AvgPrice, dto.HighPrice, dto.LowPrice, dto.LastPrice = &avg, &high, &low, &last
	}
	return dto
}

func toAgingLayerDTO(l aging.Layer) AgingLayerDTO {
	return AgingLayerDTO{
		CustomerID:   int64(l.CustomerID),
		CustomerName: l.CustomerName,
		SKUID:        int64(l.SKUID),
		ArticleCode:  l.ArticleCode,
		Description:  l.Description,
		Brand:        l.Brand,
		LotDate:      l.LotDate.String(),
		Remaining:    f64(l.Remaining),
		AgeDays:      l.AgeDays,
	}
}

// =============================================================================
// SELL-OUT BATCHES
// =============================================================================

type UploadDTO struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	Brand       string `json:"brand,omitempty"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Status      string `json:"status"`
	SourceFile  string `json:"source_file,omitempty"`

	CreatedBy  string  `json:"created_by,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ApprovedBy string  `json:"approved_by,omitempty"`
	ApprovedAt *string `json:"approved_at,omitempty"`

	HasPotentialNegatives bool    `json:"has_potential_negatives"`
	NegPreviewComputedAt  *string `json:"neg_preview_computed_at,omitempty"`
}

type LineRequest struct {
	RowNumber   int      `json:"row_number,omitempty"`
	SKUID       int64    `json:"sku_id"`
	CustSKUCode string   `json:"cust_sku_code,omitempty"`
	DocDate     string   `json:"doc_date"`
	Qty         float64  `json:"qty"`
	ReportedSOH *float64 `json:"reported_soh,omitempty"`
}

type CreateUploadRequest struct {
	CustomerID  int64         `json:"customer_id"`
	Brand       string        `json:"brand,omitempty"`
	PeriodStart string        `json:"period_start"`
	PeriodEnd   string        `json:"period_end"`
	SourceFile  string        `json:"source_file,omitempty"`
	CreatedBy   string        `json:"created_by,omitempty"`
	Lines       []LineRequest `json:"lines"`
}

type PreviewRowDTO struct {
	RowNumber            int     `json:"row_number"`
	SKUID                int64   `json:"sku_id"`
	DocDate              string  `json:"doc_date"`
	Qty                  float64 `json:"qty"`
	AvailableBefore      float64 `json:"available_before"`
	CumulativeFromUpload float64 `json:"cumulative_from_upload"`
	ResultingBalance     float64 `json:"resulting_balance"`
	IsNegative           bool    `json:"is_negative"`
}

type PreviewResponse struct {
	UploadID     int64           `json:"upload_id"`
	HasNegatives bool            `json:"has_negatives"`
	Rows         []PreviewRowDTO `json:"rows"`
}

// BatchActionRequest drives approve/reject/resubmit.
type BatchActionRequest struct {
	UploadIDs []int64 `json:"upload_ids"`
	Actor     string  `json:"actor"`
	Comment   string  `json:"comment,omitempty"`
}

type PostSkipDTO struct {
	UploadID int64  `json:"upload_id"`
	Status   string `json:"status"`
}

type PostFailureDTO struct {
	UploadID int64  `json:"upload_id"`
	Reason   string `json:"reason"`
}

type PostResultDTO struct {
	Posted  []int64          `json:"posted"`
	Skipped []PostSkipDTO    `json:"skipped"`
	Failed  []PostFailureDTO `json:"failed"`
}

type ApprovalDTO struct {
	UploadID int64  `json:"upload_id"`
	Action   string `json:"action"`
	Actor    string `json:"actor"`
	Comment  string `json:"comment,omitempty"`
	At       string `json:"at"`
}

func toUploadDTO(u sellout.Upload) UploadDTO {
	dto := UploadDTO{
		ID:                    int64(u.ID),
		CustomerID:            int64(u.CustomerID),
		Brand:                 u.Brand,
		PeriodStart:           u.PeriodStart.String(),
		PeriodEnd:             u.PeriodEnd.String(),
		Status:                u.Status,
		SourceFile:            u.SourceFile,
		CreatedBy:             u.CreatedBy,
		CreatedAt:             u.CreatedAt.Format(time.RFC3339),
		ApprovedBy:            u.ApprovedBy,
		HasPotentialNegatives: u.HasPotentialNegatives,
	}
	if u.ApprovedAt != nil {
		s := u.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &s
	}
	if u.NegPreviewComputedAt != nil {
		s := u.NegPreviewComputedAt.Format(time.RFC3339)
		dto.NegPreviewComputedAt = &s
	}
	return dto
}

func toPreviewRowDTO(r sellout.PreviewRow) PreviewRowDTO {
	return PreviewRowDTO{
		RowNumber:            r.RowNumber,
		SKUID:                int64(r.SKUID),
		DocDate:              r.DocDate.String(),
		Qty:                  f64(r.Qty),
		AvailableBefore:      f64(r.AvailableBefore),
		CumulativeFromUpload: f64(r.CumulativeFromUpload),
		ResultingBalance:     f64(r.ResultingBalance),
		IsNegative:           r.IsNegative,
	}
}

func toPostResultDTO(res sellout.PostResult) PostResultDTO {
	dto := PostResultDTO{
		Posted:  make([]int64, 0, len(res.Posted)),
		Skipped: make([]PostSkipDTO, 0, len(res.Skipped)),
		Failed:  make([]PostFailureDTO, 0, len(res.Failed)),
	}
	for _, id := range res.Posted {
		dto.Posted = append(dto.Posted, int64(id))
	}
	for _, s := range res.Skipped {
		dto.Skipped = append(dto.Skipped, PostSkipDTO{UploadID: int64(s.UploadID), Status: s.Status})
	}
	for _, f := range res.Failed {
		dto.Failed = append(dto.Failed, PostFailureDTO{UploadID: int64(f.UploadID), Reason: f.Reason})
	}
	return dto
}

// =============================================================================
// MASTER DATA + STATUS
// =============================================================================

type CustomerDTO struct {
	ID         int64    `json:"id"`
	Code       string   `json:"code,omitempty"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	StatusDate *string  `json:"status_date,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type SKUDTO struct {
	ID          int64  `json:"id"`
	ArticleCode string `json:"article_code"`
	Description string `json:"description,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Category    string `json:"category,omitempty"`
}

type RecomputeResponse struct {
	PrimaryUpdated  int `json:"primary_updated"`
	TagsUpdated     int `json:"tags_updated"`
	SkippedDisabled int `json:"skipped_disabled"`
}

type ConfigDTO struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

func toCustomerDTO(c ledger.Customer, tags []string) CustomerDTO {
	dto := CustomerDTO{
		ID:     int64(c.ID),
		Code:   c.Code,
		Name:   c.Name,
		Status: c.Status,
		Tags:   tags,
	}
	dto.StatusDate = dateStr(c.StatusDate)
	return dto
}

func toSKUDTO(s ledger.SKU) SKUDTO {
	return SKUDTO{
		ID:          int64(s.ID),
		ArticleCode: s.ArticleCode,
		Description: s.Description,
		Brand:       s.Brand,
		Category:    s.Category,
	}
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func f64Ptr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := f64(*d)
	return &v
}

func dateStr(d *ledger.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
