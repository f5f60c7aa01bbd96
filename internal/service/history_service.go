package service

import (
	"context"
	"strings"
	"time"

	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"
	"pilotopos/pkg/validator"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Receipt is a printable view of one sale.
type Receipt struct {
	ID       string            `json:"id"`
	Date     string            `json:"fecha"`
	Hour     string            `json:"hora"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Rounding decimal.Decimal   `json:"redondeo"`
	Total    decimal.Decimal   `json:"total"`
	Lines    []model.ItemGroup `json:"productos"`
}

type RoundingReport struct {
	Sales []model.HistoryEntry `json:"ventas"`
	Total decimal.Decimal      `json:"total_redondeo"`
}

// SaleUpdate carries the header fields an admin may correct.
type SaleUpdate struct {
	ID       string          `json:"id" validate:"required"`
	Date     string          `json:"fecha" validate:"required"`
	Hour     string          `json:"hora" validate:"required"`
	Total    decimal.Decimal `json:"total" validate:"gte=0"`
	Rounding decimal.Decimal `json:"redondeo" validate:"gte=0"`
}

type HistoryService interface {
	ListSales(ctx context.Context, tenant database.Tenant, filter repository.SaleFilter) ([]model.HistoryEntry, error)
	History(ctx context.Context, tenant database.Tenant) ([]model.HistoryEntry, error)
	Receipt(ctx context.Context, tenant database.Tenant, id string) (*Receipt, error)
	RoundingReport(ctx context.Context, tenant database.Tenant) (*RoundingReport, error)
	UpdateSale(ctx context.Context, tenant database.Tenant, in *SaleUpdate) error
	DeleteSale(ctx context.Context, tenant database.Tenant, id string) error
}

type historyService struct {
	db       *database.DB
	saleRepo repository.SaleRepository
	mirror   Mirror
	log      *zap.Logger
}

func NewHistoryService(db *database.DB, sRepo repository.SaleRepository, mirror Mirror, log *zap.Logger) HistoryService {
	return &historyService{db: db, saleRepo: sRepo, mirror: mirror, log: log.Named("history")}
}

func (s *historyService) ListSales(ctx context.Context, tenant database.Tenant, filter repository.SaleFilter) ([]model.HistoryEntry, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.From = strings.TrimSpace(filter.From)
	filter.To = strings.TrimSpace(filter.To)

	sales, err := s.load(ctx, tenant, filter)
	if err != nil {
		return nil, err
	}
	entries := make([]model.HistoryEntry, 0, len(sales))
	for i := range sales {
		entries = append(entries, sales[i].HistoryEntry())
	}
	return entries, nil
}

func (s *historyService) History(ctx context.Context, tenant database.Tenant) ([]model.HistoryEntry, error) {
	return s.ListSales(ctx, tenant, repository.SaleFilter{})
}

func (s *historyService) Receipt(ctx context.Context, tenant database.Tenant, id string) (*Receipt, error) {
	var sale *model.Sale
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		sale, err = s.saleRepo.FindByID(tx, strings.TrimSpace(id))
		return notFound(err, ErrSaleNotFound)
	})
	if err != nil {
		return nil, err
	}

	rounding := sale.Rounding()
	return &Receipt{
		ID:       sale.ID,
		Date:     sale.Day(),
		Hour:     sale.Hour(),
		Subtotal: sale.Total.Sub(rounding),
		Rounding: rounding,
		Total:    sale.Total,
		Lines:    sale.GroupedItems(),
	}, nil
}

// RoundingReport lists the sales that were rounded up and what that added.
func (s *historyService) RoundingReport(ctx context.Context, tenant database.Tenant) (*RoundingReport, error) {
	sales, err := s.load(ctx, tenant, repository.SaleFilter{})
	if err != nil {
		return nil, err
	}
	report := &RoundingReport{Sales: []model.HistoryEntry{}, Total: decimal.Zero}
	for i := range sales {
		r := sales[i].Rounding()
		if !r.IsPositive() {
			continue
		}
		report.Sales = append(report.Sales, sales[i].HistoryEntry())
		report.Total = report.Total.Add(r)
	}
	return report, nil
}

// UpdateSale rewrites date, total and rounding of a sale header. Line items
// are left as they are, so the total may stop matching them. The capture
// time and other attributes are carried over.
func (s *historyService) UpdateSale(ctx context.Context, tenant database.Tenant, in *SaleUpdate) error {
	if err := validator.First(in); err != nil {
		return invalid(err.Error())
	}
	date := strings.TrimSpace(in.Date) + " " + strings.TrimSpace(in.Hour)
	if _, err := time.Parse(saleDateLayout, date); err != nil {
		return invalid("fecha must be YYYY-MM-DD and hora HH:MM")
	}

	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		sale, err := s.saleRepo.FindByID(tx, strings.TrimSpace(in.ID))
		if err != nil {
			return notFound(err, ErrSaleNotFound)
		}
		extra := sale.Extra.Data()
		extra.Rounding = in.Rounding.Round(2)
		_, err = s.saleRepo.UpdateHeader(tx, sale.ID, date, in.Total.Round(2), extra)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("sale header updated", zap.String("id", in.ID))
	s.refresh(ctx, tenant)
	return nil
}

// DeleteSale removes a sale and its items. Stock is not given back.
func (s *historyService) DeleteSale(ctx context.Context, tenant database.Tenant, id string) error {
	id = strings.TrimSpace(id)
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		n, err := s.saleRepo.Delete(tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSaleNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("sale deleted", zap.String("id", id))
	s.refresh(ctx, tenant)
	return nil
}

func (s *historyService) load(ctx context.Context, tenant database.Tenant, filter repository.SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		sales, err = s.saleRepo.FindAll(tx, filter)
		return err
	})
	return sales, errors.Wrap(err, "list sales")
}

func (s *historyService) refresh(ctx context.Context, tenant database.Tenant) {
	if s.mirror != nil {
		s.mirror.RefreshQuietly(ctx, tenant)
	}
}
