package domain

import (
	"github.com/shopspring/decimal"
)

// ColumnRole identifies which canonical field a price list column feeds
type ColumnRole int

const (
	RoleProductName ColumnRole = iota
	RoleUnitPrice
	RoleUnitWeight
)

// Roles lists every column role in the order records are assembled
var Roles = []ColumnRole{RoleProductName, RoleUnitPrice, RoleUnitWeight}

func (r ColumnRole) String() string {
	switch r {
	case RoleProductName:
		return "name"
	case RoleUnitPrice:
		return "price"
	case RoleUnitWeight:
		return "weight"
	default:
		return "unknown"
	}
}

// PriceRecord represents one normalized product line from a price list
type PriceRecord struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Weight     int             `json:"weight"` // kilograms
	SourceFile string          `json:"source_file"`
}

// PricedRecord is a PriceRecord enriched with its price per kilogram
type PricedRecord struct {
	PriceRecord
	UnitPrice decimal.Decimal `json:"unit_price"`
}
