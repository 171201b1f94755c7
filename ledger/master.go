package ledger

// =============================================================================
// MASTER DATA - Customers, SKUs, status vocabulary
// =============================================================================

// Primary customer statuses. Exactly one applies at a time.
const (
	StatusActive   = "Active"
	StatusDead     = "DEAD"
	StatusDisabled = "Disabled" // manual; recompute never touches these customers
)

// Secondary status tags. Independent of each other and of the primary status.
const (
	TagHibernatingSellIn  = "Hibernating-Sell-in"
	TagHibernatingSellOut = "Hibernating-Sell-out"
)

type Customer struct {
	ID         CustomerID
	Code       string
	Name       string
	Status     string
	StatusDate *Date // when the primary status last changed
}

type SKU struct {
	ID          SKUID
	ArticleCode string
	Description string
	Brand       string
	Category    string
}

// =============================================================================
// GLOBAL CONFIG KEYS
// =============================================================================

const (
	ConfigDeadThresholdDays    = "DeadThresholdDays"
	ConfigHibernateSellInDays  = "HibernatingSellInThresholdDays"
	ConfigHibernateSellOutDays = "HibernatingSellOutThresholdDays"

	// ConfigUnitPriceCapability ("1"/"0") declares whether sell-in entries
	// carry unit prices. Stores read it once at open.
	ConfigUnitPriceCapability = "UnitPriceCapability"
)
