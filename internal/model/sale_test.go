package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSaleHistoryEntry(t *testing.T) {
	soda := &Product{ID: "1", Name: "Soda"}
	sale := &Sale{
		ID:    "20250301101500.000001",
		Date:  "2025-03-01 10:15",
		Total: decimal.RequireFromString("32.00"),
		Extra: datatypes.NewJSONType(SaleExtra{Rounding: decimal.RequireFromString("0.75")}),
		Items: []SaleItem{
			{ProductID: "1", Product: soda, Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
			{ProductID: "adhoc-x", Quantity: 1, UnitPrice: decimal.RequireFromString("6.25")},
			{ProductID: "1", Product: soda, Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
		},
	}

	entry := sale.HistoryEntry()
	assert.Equal(t, "2025-03-01", entry.Date)
	assert.Equal(t, "10:15", entry.Hour)
	assert.True(t, entry.Rounding.Equal(decimal.RequireFromString("0.75")))
	require.Len(t, entry.Products, 2)
	assert.Equal(t, HistoryLine{Name: "Soda", Quantity: 3}, entry.Products[0])
	assert.Equal(t, HistoryLine{Name: "adhoc-x", Quantity: 1}, entry.Products[1])

	groups := sale.GroupedItems()
	assert.True(t, groups[0].Subtotal.Equal(decimal.RequireFromString("37.50")))
}

func TestSaleDateParts(t *testing.T) {
	s := &Sale{Date: "2025-03-01"}
	assert.Equal(t, "2025-03-01", s.Day())
	assert.Equal(t, "", s.Hour())
}
