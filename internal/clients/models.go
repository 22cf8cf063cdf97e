package clients

import (
	"strings"
	"time"

	"github.com/aliuyar1234/printshop/internal/validation"
	"github.com/google/uuid"
)

// Client is a customer of the print shop.
type Client struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Input is the writable part of a Client.
type Input struct {
	Name  string `json:"name" validate:"notblank,max=200"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Phone string `json:"phone" validate:"max=50"`
	Notes string `json:"notes" validate:"max=4000"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = validation.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
}
