package service

import (
	"testing"

	"pilotopos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFromCatalog(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "1", "Soda", "12.50", 5)
	cart := &model.Cart{}

	p, err := f.cart.AddFromCatalog(ctx, tenant, cart, "1")
	require.NoError(t, err)
	assert.Equal(t, "Soda", p.Name)
	require.Equal(t, 1, cart.Count())
	assert.True(t, cart.Lines[0].Price.Equal(dec("12.50")))

	_, err = f.cart.AddFromCatalog(ctx, tenant, cart, "999")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 1, cart.Count())
}

func TestAddManual(t *testing.T) {
	f := newFixture(t)
	cart := &model.Cart{}

	sum, err := f.cart.AddManual(cart, "  Hielo ", dec("15"))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, "Hielo", cart.Lines[0].Name)

	_, err = f.cart.AddManual(cart, "  ", dec("1"))
	assert.ErrorIs(t, err, ErrInvalidCartLine)
	_, err = f.cart.AddManual(cart, "Bolsa", dec("-0.50"))
	assert.ErrorIs(t, err, ErrInvalidCartLine)
	assert.Equal(t, 1, cart.Count())
}

func TestRemoveAtBounds(t *testing.T) {
	f := newFixture(t)
	cart := cartOf("Soda", "12.50", "Chips", "6.755")

	_, err := f.cart.RemoveAt(cart, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = f.cart.RemoveAt(cart, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.Equal(t, 2, cart.Count())

	sum, err := f.cart.RemoveAt(cart, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, "6.76", sum.Total.StringFixed(2))
}
