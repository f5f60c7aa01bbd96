package service

import (
	"context"
	"testing"
	"time"

	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"
	"pilotopos/pkg/database/databasetest"
	"pilotopos/pkg/jwt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	ctx    = context.Background()
	tenant = database.DefaultTenant
	cst    = time.FixedZone("CST", -6*60*60)
)

type fixture struct {
	db      *database.DB
	catalog CatalogService
	cart    CartService
	sales   SaleService
	history HistoryService
	auth    AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.Open(t, model.All()...)
	log := zaptest.NewLogger(t)
	products := repository.NewProductRepo()
	suppliers := repository.NewSupplierRepo()
	sales := repository.NewSaleRepo()

	return &fixture{
		db:      db,
		catalog: NewCatalogService(db, products, suppliers, sales, nil, log),
		cart:    NewCartService(db, products),
		sales:   NewSaleService(db, products, sales, nil, nil, nil, cst, log),
		history: NewHistoryService(db, sales, nil, log),
		auth:    NewAuthService(db, repository.NewUserRepo(), jwt.NewIssuer("test-secret", time.Hour, "pilotopos"), nil, log),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) seedProduct(t *testing.T, id, name, price string, stock int) {
	t.Helper()
	require.NoError(t, f.db.Gorm().Create(&model.Product{
		ID: id, Name: name, Price: dec(price), Stock: stock, Kind: model.KindCatalog,
	}).Error)
}

func (f *fixture) product(t *testing.T, id string) *model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, f.db.Gorm().First(&p, "id = ?", id).Error)
	return &p
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Gorm().Model(m).Count(&n).Error)
	return n
}

// fixClock pins the sale clock so dates and ids are predictable.
func (f *fixture) fixClock(at time.Time) {
	f.sales.(*saleService).now = func() time.Time { return at }
}

func cartOf(lines ...string) *model.Cart {
	c := &model.Cart{}
	for i := 0; i+1 < len(lines); i += 2 {
		c.Add(lines[i], decimal.RequireFromString(lines[i+1]))
	}
	return c
}
