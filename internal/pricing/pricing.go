// Package pricing computes price quotes for print jobs.
package pricing

import (
	"math"
	"strings"
)

// Input describes the job being quoted.
type Input struct {
	Material      string  `json:"material" validate:"notblank,max=100"`
	WeightGrams   float64 `json:"weight_grams" validate:"gte=0"`
	DesignHours   float64 `json:"design_hours" validate:"gte=0"`
	MarginPercent float64 `json:"margin_percent" validate:"gte=0,lte=1000"`
	Bulk          bool    `json:"bulk"`
	Quantity      int     `json:"quantity" validate:"gte=1"`
}

func (in *Input) normalize() {
	in.Material = strings.TrimSpace(in.Material)
	if in.Quantity == 0 {
		in.Quantity = 1
	}
}

// Quote is a computed price. Money values are rounded to cents.
type Quote struct {
	Material      string  `json:"material"`
	PricePerKg    float64 `json:"price_per_kg"`
	HourlyRate    float64 `json:"hourly_rate"`
	MaterialCost  float64 `json:"material_cost"`
	DesignCost    float64 `json:"design_cost"`
	TotalCost     float64 `json:"total_cost"`
	MarginPercent float64 `json:"margin_percent"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	Bulk          bool    `json:"bulk"`
	FinalPrice    float64 `json:"final_price"`
}

// Calculate prices a job:
//
//	materialCost = weight × pricePerKg / 1000
//	designCost   = hours × hourlyRate
//	final        = (materialCost + designCost) × (1 + margin/100) × (quantity if bulk, else 1)
//
// Rounding is applied to the reported figures only.
func Calculate(in Input, pricePerKg, hourlyRate float64) Quote {
	materialCost := in.WeightGrams * (pricePerKg / 1000)
	designCost := in.DesignHours * hourlyRate
	total := materialCost + designCost
	unit := total * (1 + in.MarginPercent/100)

	final := unit
	if in.Bulk {
		final = unit * float64(in.Quantity)
	}

	return Quote{
		Material:      in.Material,
		PricePerKg:    pricePerKg,
		HourlyRate:    hourlyRate,
		MaterialCost:  roundCents(materialCost),
		DesignCost:    roundCents(designCost),
		TotalCost:     roundCents(total),
		MarginPercent: in.MarginPercent,
		UnitPrice:     roundCents(unit),
		Quantity:      in.Quantity,
		Bulk:          in.Bulk,
		FinalPrice:    roundCents(final),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
