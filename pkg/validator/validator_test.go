package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	Name  string          `validate:"required"`
	Price decimal.Decimal `validate:"gte=0"`
	Stock *int            `validate:"omitempty,gte=0"`
}

func TestValidateStructDecimal(t *testing.T) {
	assert.Empty(t, ValidateStruct(line{Name: "Soda", Price: decimal.RequireFromString("1.50")}))
	assert.Empty(t, ValidateStruct(line{Name: "Free sample", Price: decimal.Zero}))

	errs := ValidateStruct(line{Name: "Soda", Price: decimal.RequireFromString("-0.01")})
	require.Len(t, errs, 1)
	assert.Equal(t, "line.Price", errs[0].FailedField)
	assert.Equal(t, "gte", errs[0].Tag)
}

func TestFirst(t *testing.T) {
	negative := -1
	err := First(line{Price: decimal.NewFromInt(1), Stock: &negative})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line.Name")

	assert.NoError(t, First(line{Name: "Chips", Price: decimal.NewFromInt(2)}))
}
