package expenses

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Expense categories.
const (
	CategoryMaterial = "Material"
	CategoryShipping = "Shipping"
	CategorySoftware = "Software"
	CategoryTools    = "Tools"
	CategoryOther    = "Other"
)

const dateLayout = "2006-01-02"

// Expense is money spent by the shop.
type Expense struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	SpentOn     time.Time `json:"spent_on"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input is the writable part of an Expense. SpentOn is YYYY-MM-DD.
type Input struct {
	Description string  `json:"description" validate:"notblank,max=500"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Category    string  `json:"category" validate:"oneof=Material Shipping Software Tools Other"`
	SpentOn     string  `json:"spent_on" validate:"required,datetime=2006-01-02"`
}

func (in *Input) normalize() {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.SpentOn = strings.TrimSpace(in.SpentOn)
	if in.Category == "" {
		in.Category = CategoryMaterial
	}
}

// spentOn must only be called on validated input.
func (in *Input) spentOn() time.Time {
	t, _ := time.Parse(dateLayout, in.SpentOn)
	return t
}

// Total sums the amounts of expenses.
func Total(expenses []Expense) float64 {
	var sum float64
	for _, e := range expenses {
		sum += e.Amount
	}
	return sum
}
