package service

import (
	"context"
	"sync"
	"time"

	"pilotopos/internal/metrics"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/internal/ws"
	"pilotopos/pkg/database"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	saleDateLayout = "2006-01-02 15:04"
	saleIDLayout   = "20060102150405.000000"
	adHocPrefix    = "adhoc-"
)

var half = decimal.RequireFromString("0.5")

// RoundUp returns the cash total offered at checkout, the sum plus one half
// rounded half away from zero, and the amount it adds.
func RoundUp(total decimal.Decimal) (rounded, rounding decimal.Decimal) {
	rounded = total.Add(half).Round(0)
	return rounded, rounded.Sub(total)
}

// SaleNotifier tells connected admin clients about completed sales.
type SaleNotifier interface {
	NotifyAdmins(event string, data interface{}) error
}

type SaleService interface {
	Checkout(ctx context.Context, tenant database.Tenant, cart *model.Cart, roundingAccepted bool) (*model.Sale, error)
}

type saleService struct {
	db          *database.DB
	productRepo repository.ProductRepository
	saleRepo    repository.SaleRepository
	mirror      Mirror
	notifier    SaleNotifier
	metrics     *metrics.Metrics
	log         *zap.Logger
	loc         *time.Location
	now         func() time.Time
	ids         *saleIDs
}

func NewSaleService(db *database.DB, pRepo repository.ProductRepository, sRepo repository.SaleRepository, mirror Mirror, notifier SaleNotifier, m *metrics.Metrics, loc *time.Location, log *zap.Logger) SaleService {
	return &saleService{
		db:          db,
		productRepo: pRepo,
		saleRepo:    sRepo,
		mirror:      mirror,
		notifier:    notifier,
		metrics:     m,
		log:         log.Named("sale"),
		loc:         loc,
		now:         time.Now,
		ids:         &saleIDs{},
	}
}

// Checkout records the cart as one sale. The header, the stock changes and
// the line items commit together or not at all; on failure the cart is left
// for the caller to keep.
func (s *saleService) Checkout(ctx context.Context, tenant database.Tenant, cart *model.Cart, roundingAccepted bool) (*model.Sale, error) {
	if cart == nil || cart.Empty() {
		return nil, ErrEmptyCart
	}

	total := cart.Total().Round(2)
	charged, rounding := total, decimal.Zero
	if roundingAccepted {
		charged, rounding = RoundUp(total)
	}

	at := s.ids.next(s.now())
	sale := &model.Sale{
		ID:    at.In(s.loc).Format(saleIDLayout),
		Date:  at.In(s.loc).Format(saleDateLayout),
		Total: charged,
		Extra: datatypes.NewJSONType(model.SaleExtra{
			Rounding:   rounding,
			CapturedAt: at,
		}),
	}

	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		if err := s.saleRepo.Create(tx, sale); err != nil {
			return err
		}

		groups := cart.Group()
		items := make([]model.SaleItem, 0, len(groups))
		for _, g := range groups {
			item, err := s.resolveLine(tx, g)
			if err != nil {
				return err
			}
			item.SaleID = sale.ID
			items = append(items, item)
		}
		if err := s.saleRepo.CreateItems(tx, items); err != nil {
			return err
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		s.metrics.RecordCheckoutFailure()
		s.log.Error("checkout rolled back", zap.Error(err), zap.Int("lines", cart.Count()))
		return nil, checkoutFailed(err)
	}

	s.metrics.RecordSale(roundingAccepted, rounding)
	s.log.Info("sale completed",
		zap.String("id", sale.ID),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.String("redondeo", rounding.StringFixed(2)),
	)
	s.afterSale(ctx, tenant, sale)
	return sale, nil
}

// resolveLine turns one aggregated cart line into a sale item. Catalog hits
// are charged at their current price and lose stock, floored at zero. Misses
// get an ad-hoc product with no stock of its own.
func (s *saleService) resolveLine(tx *gorm.DB, g model.CartGroup) (model.SaleItem, error) {
	product, err := s.productRepo.FindCatalogByNameForUpdate(tx, g.Name)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		product = &model.Product{
			ID:    adHocPrefix + uuid.NewString(),
			Name:  g.Name,
			Price: g.Price,
			Kind:  model.KindAdHoc,
		}
		if err := s.productRepo.Create(tx, product); err != nil {
			return model.SaleItem{}, err
		}
	case err != nil:
		return model.SaleItem{}, errors.Wrapf(err, "look up %q", g.Name)
	default:
		stock := product.Stock - g.Quantity
		if stock < 0 {
			stock = 0
		}
		if err := s.productRepo.UpdateStock(tx, product.ID, stock); err != nil {
			return model.SaleItem{}, errors.Wrapf(err, "update stock of %s", product.ID)
		}
	}

	return model.SaleItem{
		ProductID: product.ID,
		Quantity:  g.Quantity,
		UnitPrice: product.Price,
	}, nil
}

func (s *saleService) afterSale(ctx context.Context, tenant database.Tenant, sale *model.Sale) {
	if s.mirror != nil {
		s.mirror.RefreshQuietly(ctx, tenant)
	}
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifyAdmins(ws.EventSaleRecorded, map[string]interface{}{
		"id":       sale.ID,
		"fecha":    sale.Date,
		"total":    sale.Total,
		"redondeo": sale.Rounding(),
	})
	if err != nil {
		s.log.Warn("sale notification failed", zap.Error(err))
	}
}

// saleIDs hands out strictly increasing capture times at microsecond
// resolution, which keeps the derived sale ids unique within the process.
type saleIDs struct {
	mu   sync.Mutex
	last time.Time
}

func (g *saleIDs) next(now time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	now = now.Round(0).Truncate(time.Microsecond)
	if !now.After(g.last) {
		now = g.last.Add(time.Microsecond)
	}
	g.last = now
	return now
}
