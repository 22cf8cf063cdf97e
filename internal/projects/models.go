package projects

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the production stage of a project.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Project is a print job for a client.
type Project struct {
	ID                uuid.UUID  `json:"id"`
	OrgID             uuid.UUID  `json:"org_id"`
	Name              string     `json:"name"`
	ClientName        string     `json:"client_name"`
	Status            Status     `json:"status"`
	Type              string     `json:"type"`
	Description       string     `json:"description"`
	Material          string     `json:"material"`
	WeightGrams       float64    `json:"weight_grams"`
	DesignHours       float64    `json:"design_hours"`
	Quantity          int        `json:"quantity"`
	Budget            float64    `json:"budget"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const dateLayout = "2006-01-02"

// Input is the writable part of a Project. EstimatedDelivery is a calendar
// date in YYYY-MM-DD form.
type Input struct {
	Name              string  `json:"name" validate:"notblank,max=200"`
	ClientName        string  `json:"client_name" validate:"max=200"`
	Status            Status  `json:"status" validate:"oneof=queued in_progress completed"`
	Type              string  `json:"type" validate:"max=100"`
	Description       string  `json:"description" validate:"max=4000"`
	Material          string  `json:"material" validate:"max=100"`
	WeightGrams       float64 `json:"weight_grams" validate:"gte=0"`
	DesignHours       float64 `json:"design_hours" validate:"gte=0"`
	Quantity          int     `json:"quantity" validate:"gte=1"`
	Budget            float64 `json:"budget" validate:"gte=0"`
	EstimatedDelivery string  `json:"estimated_delivery" validate:"omitempty,datetime=2006-01-02"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.Type = strings.TrimSpace(in.Type)
	in.Material = strings.TrimSpace(in.Material)
	in.EstimatedDelivery = strings.TrimSpace(in.EstimatedDelivery)
	if in.Status == "" {
		in.Status = StatusQueued
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
}

// deliveryDate must only be called on validated input.
func (in *Input) deliveryDate() *time.Time {
	if in.EstimatedDelivery == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, in.EstimatedDelivery)
	if err != nil {
		return nil
	}
	return &t
}

// StatusRequest is the body of PUT /projects/{id}/status.
type StatusRequest struct {
	Status Status `json:"status" validate:"oneof=queued in_progress completed"`
}

// QuoteFields are the project fields written when a price quote is saved.
type QuoteFields struct {
	Material    string  `json:"material" validate:"notblank,max=100"`
	WeightGrams float64 `json:"weight_grams" validate:"gte=0"`
	DesignHours float64 `json:"design_hours" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=1"`
	Budget      float64 `json:"budget" validate:"gte=0"`
}
