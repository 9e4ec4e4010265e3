package batch

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product types for sellables.
const (
	ProductSimple       = "simple"
	ProductConfigurable = "configurable"
)

// Sellable is a base product. A configurable sellable carries size variants;
// a simple one is sold as-is.
type Sellable struct {
	ID            uuid.UUID
	Name          string
	Slug          string
	SKU           string
	Category      string
	Description   string
	ProductType   string
	BasePrice     decimal.Decimal
	ImportBatchID *uuid.UUID
}

// SellableVariant is one size of a configurable sellable. PriceAdjustment is
// nil when no price was observed for the variant or its base.
type SellableVariant struct {
	ID                uuid.UUID
	SellableID        uuid.UUID
	Name              string
	SizeCode          string
	SizeName          string
	SortOrder         int
	PriceAdjustment   *decimal.Decimal
	PortionMultiplier float64
	SKU               string
	ImportBatchID     *uuid.UUID
}

// Customer modes describe how a customer row was attributed.
const (
	CustomerModeNamed    = "named"
	CustomerModePlatform = "platform"
	CustomerModeEvent    = "event"
	CustomerModeWalkIn   = "walk_in"
	CustomerModeNone     = "none"
)

// Customer is an identifiable or synthetic fallback customer.
type Customer struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         string
	Mode          string
	Platform      string
	ExternalID    string
	ImportBatchID *uuid.UUID
}

// Location types inferred from names.
const (
	LocationStore     = "store"
	LocationWarehouse = "warehouse"
	LocationKitchen   = "kitchen"
	LocationStation   = "station"
	LocationStorage   = "storage"
	LocationEvent     = "event"
)

// Location is a physical or logical site rows can reference.
type Location struct {
	ID            uuid.UUID
	Name          string
	Type          string
	ExternalID    string
	Address       string
	City          string
	Zip           string
	RowCount      int
	ImportBatchID *uuid.UUID
}
