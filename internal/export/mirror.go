package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"pilotopos/internal/metrics"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ProductsFile = "productos.json"
	HistoryFile  = "historial.json"
)

// ProductEntry is one value of productos.json, keyed by product id.
type ProductEntry struct {
	Name     string            `json:"nombre"`
	Price    decimal.Decimal   `json:"precio"`
	Stock    int               `json:"stock"`
	Category string            `json:"categoria"`
	Kind     model.ProductKind `json:"tipo"`
}

// Mirror keeps a JSON copy of the catalog and the sale history on disk.
// The tables stay the source of truth.
type Mirror struct {
	dir      string
	db       *database.DB
	products repository.ProductRepository
	sales    repository.SaleRepository
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewMirror(dir string, db *database.DB, products repository.ProductRepository, sales repository.SaleRepository, log *zap.Logger, m *metrics.Metrics) *Mirror {
	return &Mirror{dir: dir, db: db, products: products, sales: sales, log: log.Named("export"), metrics: m}
}

// Dir returns the directory the files of tenant are written to.
func (m *Mirror) Dir(tenant database.Tenant) string {
	if tenant == database.DefaultTenant {
		return m.dir
	}
	return filepath.Join(m.dir, string(tenant))
}

// Refresh rewrites both files from the current tables.
func (m *Mirror) Refresh(ctx context.Context, tenant database.Tenant) error {
	var (
		products []model.Product
		sales    []model.Sale
	)
	err := m.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		if products, err = m.products.FindAll(tx, true); err != nil {
			return errors.Wrap(err, "load products")
		}
		if sales, err = m.sales.FindAll(tx, repository.SaleFilter{}); err != nil {
			return errors.Wrap(err, "load sales")
		}
		return nil
	})
	if err != nil {
		return m.fail(err)
	}

	byID := make(map[string]ProductEntry, len(products))
	for _, p := range products {
		byID[p.ID] = ProductEntry{Name: p.Name, Price: p.Price, Stock: p.Stock, Category: p.Category, Kind: p.Kind}
	}
	history := make([]model.HistoryEntry, 0, len(sales))
	for i := range sales {
		history = append(history, sales[i].HistoryEntry())
	}

	dir := m.Dir(tenant)
	if err := writeJSON(dir, ProductsFile, byID); err != nil {
		return m.fail(err)
	}
	if err := writeJSON(dir, HistoryFile, history); err != nil {
		return m.fail(err)
	}
	return nil
}

// RefreshQuietly is Refresh for side-channel callers: failures are logged
// and counted, never returned.
func (m *Mirror) RefreshQuietly(ctx context.Context, tenant database.Tenant) {
	if m == nil {
		return
	}
	if err := m.Refresh(ctx, tenant); err != nil {
		m.log.Warn("export mirror refresh failed", zap.Error(err))
	}
}

func (m *Mirror) fail(err error) error {
	m.metrics.RecordExportFailure()
	return err
}

// writeJSON replaces dir/name atomically: readers see the old or the new
// file, never a partial one.
func writeJSON(dir, name string, v interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create export dir")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", name)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "sync %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), filepath.Join(dir, name)), "rename %s", name)
}
