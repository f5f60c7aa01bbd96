package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"
	"pilotopos/pkg/database/databasetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
)

func TestRefreshWritesBothFiles(t *testing.T) {
	db := databasetest.Open(t, model.All()...)
	gdb := db.Gorm()
	require.NoError(t, gdb.Create(&model.Product{ID: "1", Name: "Soda", Price: decimal.RequireFromString("12.50"), Stock: 3, Kind: model.KindCatalog}).Error)
	require.NoError(t, gdb.Create(&model.Sale{
		ID:    "20250301101500.000001",
		Date:  "2025-03-01 10:15",
		Total: decimal.RequireFromString("13.00"),
		Extra: datatypes.NewJSONType(model.SaleExtra{Rounding: decimal.RequireFromString("0.50")}),
	}).Error)
	require.NoError(t, gdb.Create(&model.SaleItem{SaleID: "20250301101500.000001", ProductID: "1", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")}).Error)

	dir := t.TempDir()
	m := NewMirror(dir, db, repository.NewProductRepo(), repository.NewSaleRepo(), zaptest.NewLogger(t), nil)
	require.NoError(t, m.Refresh(context.Background(), database.DefaultTenant))

	raw, err := os.ReadFile(filepath.Join(dir, ProductsFile))
	require.NoError(t, err)
	var products map[string]ProductEntry
	require.NoError(t, json.Unmarshal(raw, &products))
	require.Contains(t, products, "1")
	assert.Equal(t, "Soda", products["1"].Name)
	assert.Equal(t, 3, products["1"].Stock)

	raw, err = os.ReadFile(filepath.Join(dir, HistoryFile))
	require.NoError(t, err)
	var history []model.HistoryEntry
	require.NoError(t, json.Unmarshal(raw, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "10:15", history[0].Hour)
	assert.Equal(t, []model.HistoryLine{{Name: "Soda", Quantity: 1}}, history[0].Products)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDirPerTenant(t *testing.T) {
	m := &Mirror{dir: "/data/export"}
	assert.Equal(t, "/data/export", m.Dir(database.DefaultTenant))
	assert.Equal(t, filepath.Join("/data/export", "shop2"), m.Dir("shop2"))
}

func TestRefreshQuietlyOnNil(t *testing.T) {
	var m *Mirror
	assert.NotPanics(t, func() { m.RefreshQuietly(context.Background(), database.DefaultTenant) })
}
