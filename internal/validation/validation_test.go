package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type clientPayload struct {
	Name   string  `json:"name" validate:"notblank,max=200"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(clientPayload{Name: "  ", Email: "nope", Amount: 0})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))

	var verr *Error
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	require.Equal(t, "notblank", fields["name"])
	require.Equal(t, "email", fields["email"])
	require.Equal(t, "gt", fields["amount"])
	require.Contains(t, err.Error(), "name is required")
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(clientPayload{Name: "Ada", Amount: 12.5}))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "b@x.com", NormalizeEmail("  B@X.com "))
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("b@x.com"))
	require.ErrorIs(t, ValidateEmail(""), ErrInvalid)
	require.ErrorIs(t, ValidateEmail("not-an-email"), ErrInvalidEmail)
	require.ErrorIs(t, ValidateEmail("Bob <b@x.com>"), ErrInvalidEmail)
}

func TestEmailLocalPart(t *testing.T) {
	require.Equal(t, "maria", EmailLocalPart("maria@shop.example"))
	require.Equal(t, "plain", EmailLocalPart("plain"))
}
