package materials

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultType is assumed when a material is saved without a type.
const DefaultType = "PLA"

// Material is a filament or resin kept in stock. Quantities are in grams.
type Material struct {
	ID               uuid.UUID `json:"id"`
	OrgID            uuid.UUID `json:"org_id"`
	Name             string    `json:"name"`
	Brand            string    `json:"brand"`
	Type             string    `json:"type"`
	Color            string    `json:"color"`
	PricePerKg       float64   `json:"price_per_kg"`
	StockGrams       float64   `json:"stock_grams"`
	ReorderThreshold float64   `json:"reorder_threshold"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LowStock reports whether stock has fallen below the reorder threshold.
func (m Material) LowStock() bool {
	return m.StockGrams < m.ReorderThreshold
}

// LowStock returns the materials below their reorder threshold, in order.
func LowStock(materials []Material) []Material {
	out := []Material{}
	for _, m := range materials {
		if m.LowStock() {
			out = append(out, m)
		}
	}
	return out
}

// Input is the writable part of a Material.
type Input struct {
	Name             string  `json:"name" validate:"notblank,max=200"`
	Brand            string  `json:"brand" validate:"notblank,max=200"`
	Type             string  `json:"type" validate:"notblank,max=50"`
	Color            string  `json:"color" validate:"omitempty,hexcolor"`
	PricePerKg       float64 `json:"price_per_kg" validate:"gte=0"`
	StockGrams       float64 `json:"stock_grams" validate:"gte=0"`
	ReorderThreshold float64 `json:"reorder_threshold" validate:"gte=0"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Type = strings.TrimSpace(in.Type)
	in.Color = strings.ToUpper(strings.TrimSpace(in.Color))
	if in.Type == "" {
		in.Type = DefaultType
	}
}
