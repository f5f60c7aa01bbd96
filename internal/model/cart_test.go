package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRemoveAt(t *testing.T) {
	c := &Cart{}
	c.Add("Soda", decimal.RequireFromString("12.50"))
	c.Add("Chips", decimal.RequireFromString("6.75"))

	t.Run("out of range leaves cart untouched", func(t *testing.T) {
		assert.False(t, c.RemoveAt(2))
		assert.False(t, c.RemoveAt(-1))
		assert.Equal(t, 2, c.Count())
	})

	t.Run("in range", func(t *testing.T) {
		require.True(t, c.RemoveAt(0))
		assert.Equal(t, 1, c.Count())
		assert.Equal(t, "Chips", c.Lines[0].Name)
		assert.True(t, c.Total().Equal(decimal.RequireFromString("6.75")))
	})
}

func TestCartGroup(t *testing.T) {
	c := &Cart{}
	c.Add("Soda", decimal.RequireFromString("12.50"))
	c.Add("Chips", decimal.RequireFromString("6.75"))
	c.Add("Soda", decimal.RequireFromString("13.00"))

	groups := c.Group()
	require.Len(t, groups, 2)
	assert.Equal(t, "Soda", groups[0].Name)
	assert.Equal(t, 2, groups[0].Quantity)
	assert.True(t, groups[0].Price.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "Chips", groups[1].Name)
	assert.Equal(t, 1, groups[1].Quantity)
}

func TestCartEncodeParse(t *testing.T) {
	empty, err := ParseCart("")
	require.NoError(t, err)
	assert.True(t, empty.Empty())

	c := &Cart{}
	c.Add("Soda", decimal.RequireFromString("12.50"))
	raw, err := c.Encode()
	require.NoError(t, err)

	back, err := ParseCart(raw)
	require.NoError(t, err)
	require.Equal(t, 1, back.Count())
	assert.True(t, back.Total().Equal(decimal.RequireFromString("12.5")))

	_, err = ParseCart("{not json")
	assert.Error(t, err)
}
