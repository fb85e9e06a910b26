package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addItemRequest struct {
	ProductID string `validate:"required,uuid"`
	Quantity  int    `validate:"gte=1"`
	Currency  string `validate:"omitempty,len=3"`
}

func TestValidate_Passes(t *testing.T) {
	req := addItemRequest{
		ProductID: "0b019923-69fa-4bd5-a3c0-0a6f0fb1f24e",
		Quantity:  2,
		Currency:  "EGP",
	}
	assert.NoError(t, Validate(req))
}

func TestValidate_CollectsFieldErrors(t *testing.T) {
	req := addItemRequest{ProductID: "not-a-uuid", Quantity: 0, Currency: "EGYP"}

	err := Validate(req)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := verr.Fields()
	assert.Equal(t, "must be a valid UUID", fields["ProductID"])
	assert.Equal(t, "must be greater than or equal to 1", fields["Quantity"])
	assert.Equal(t, "must be exactly 3 characters", fields["Currency"])
	assert.Contains(t, verr.Error(), "ProductID")
}

func TestValidate_RequiredMissing(t *testing.T) {
	err := Validate(addItemRequest{Quantity: 1})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields()["ProductID"])
}
