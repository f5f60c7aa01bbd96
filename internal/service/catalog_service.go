package service

import (
	"context"
	"strings"

	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/pkg/database"
	"pilotopos/pkg/validator"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mirror is refreshed after every write that changes the catalog or the
// history. Refresh failures never reach the caller.
type Mirror interface {
	RefreshQuietly(ctx context.Context, tenant database.Tenant)
}

type CatalogService interface {
	ListProducts(ctx context.Context, tenant database.Tenant, includeAdHoc bool) ([]model.Product, error)
	GetProduct(ctx context.Context, tenant database.Tenant, id string) (*model.Product, error)
	SaveProduct(ctx context.Context, tenant database.Tenant, in *model.ProductInput) (string, error)
	DeleteProduct(ctx context.Context, tenant database.Tenant, id string) error

	ListSuppliers(ctx context.Context, tenant database.Tenant) ([]model.Supplier, error)
	GetSupplier(ctx context.Context, tenant database.Tenant, id string) (*model.Supplier, error)
	SaveSupplier(ctx context.Context, tenant database.Tenant, in *model.SupplierInput) (string, error)
	DeleteSupplier(ctx context.Context, tenant database.Tenant, id string) error
}

type catalogService struct {
	db           *database.DB
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	saleRepo     repository.SaleRepository
	mirror       Mirror
	log          *zap.Logger
}

func NewCatalogService(db *database.DB, pRepo repository.ProductRepository, sRepo repository.SupplierRepository, saleRepo repository.SaleRepository, mirror Mirror, log *zap.Logger) CatalogService {
	return &catalogService{
		db:           db,
		productRepo:  pRepo,
		supplierRepo: sRepo,
		saleRepo:     saleRepo,
		mirror:       mirror,
		log:          log.Named("catalog"),
	}
}

func (s *catalogService) ListProducts(ctx context.Context, tenant database.Tenant, includeAdHoc bool) ([]model.Product, error) {
	var products []model.Product
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		products, err = s.productRepo.FindAll(tx, includeAdHoc)
		return err
	})
	return products, errors.Wrap(err, "list products")
}

func (s *catalogService) GetProduct(ctx context.Context, tenant database.Tenant, id string) (*model.Product, error) {
	var product *model.Product
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		product, err = s.productRepo.FindByID(tx, strings.TrimSpace(id))
		return notFound(err, ErrProductNotFound)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// SaveProduct upserts by id. An empty id takes the next sequential number;
// fields missing from the input keep their stored value.
func (s *catalogService) SaveProduct(ctx context.Context, tenant database.Tenant, in *model.ProductInput) (string, error) {
	if errs := validator.ValidateStruct(in); len(errs) > 0 {
		return "", invalid(errs[0].Error())
	}
	requested := strings.TrimSpace(in.ID)
	var id string

	err := retryNextID(requested == "", func() error {
		id = requested
		return s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
			var err error
			id, err = s.saveProduct(tx, in, id)
			return err
		})
	})
	if err != nil {
		return "", err
	}

	s.log.Info("product saved", zap.String("id", id))
	s.refresh(ctx, tenant)
	return id, nil
}

// saveProduct runs one upsert attempt and returns the id it used.
func (s *catalogService) saveProduct(tx *gorm.DB, in *model.ProductInput, id string) (string, error) {
	if id == "" {
		next, err := s.productRepo.NextID(tx)
		if err != nil {
			return "", errors.Wrap(err, "next product id")
		}
		id = next
	}

	existing, err := s.productRepo.FindByID(tx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		product := &model.Product{ID: id, Kind: model.KindCatalog}
		in.MergeInto(product)
		product.Name = strings.TrimSpace(product.Name)
		if err := validator.First(product); err != nil {
			return id, invalid(err.Error())
		}
		return id, s.productRepo.Create(tx, product)
	case err != nil:
		return id, errors.Wrap(err, "load product")
	}

	in.MergeInto(existing)
	existing.Name = strings.TrimSpace(existing.Name)
	if err := validator.First(existing); err != nil {
		return id, invalid(err.Error())
	}
	return id, s.productRepo.Update(tx, existing)
}

// DeleteProduct removes the product and the sale lines that reference it.
func (s *catalogService) DeleteProduct(ctx context.Context, tenant database.Tenant, id string) error {
	id = strings.TrimSpace(id)
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		if _, err := s.productRepo.FindByID(tx, id); err != nil {
			return notFound(err, ErrProductNotFound)
		}
		if err := s.saleRepo.DeleteItemsByProduct(tx, id); err != nil {
			return err
		}
		_, err := s.productRepo.Delete(tx, id)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("product deleted", zap.String("id", id))
	s.refresh(ctx, tenant)
	return nil
}

func (s *catalogService) ListSuppliers(ctx context.Context, tenant database.Tenant) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		suppliers, err = s.supplierRepo.FindAll(tx)
		return err
	})
	return suppliers, errors.Wrap(err, "list suppliers")
}

func (s *catalogService) GetSupplier(ctx context.Context, tenant database.Tenant, id string) (*model.Supplier, error) {
	var supplier *model.Supplier
	err := s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		var err error
		supplier, err = s.supplierRepo.FindByID(tx, strings.TrimSpace(id))
		return notFound(err, ErrSupplierNotFound)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *catalogService) SaveSupplier(ctx context.Context, tenant database.Tenant, in *model.SupplierInput) (string, error) {
	requested := strings.TrimSpace(in.ID)
	var id string

	err := retryNextID(requested == "", func() error {
		id = requested
		return s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
			if id == "" {
				next, err := s.supplierRepo.NextID(tx)
				if err != nil {
					return errors.Wrap(err, "next supplier id")
				}
				id = next
			}

			existing, err := s.supplierRepo.FindByID(tx, id)
			create := errors.Is(err, gorm.ErrRecordNotFound)
			if err != nil && !create {
				return errors.Wrap(err, "load supplier")
			}
			if create {
				existing = &model.Supplier{ID: id}
			}

			in.MergeInto(existing)
			existing.Name = strings.TrimSpace(existing.Name)
			if err := validator.First(existing); err != nil {
				return invalid(err.Error())
			}
			if create {
				return s.supplierRepo.Create(tx, existing)
			}
			return s.supplierRepo.Update(tx, existing)
		})
	})
	if err != nil {
		return "", err
	}

	s.log.Info("supplier saved", zap.String("id", id))
	return id, nil
}

func (s *catalogService) DeleteSupplier(ctx context.Context, tenant database.Tenant, id string) error {
	return s.db.Transaction(ctx, tenant, func(tx *gorm.DB) error {
		n, err := s.supplierRepo.Delete(tx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSupplierNotFound
		}
		return nil
	})
}

func (s *catalogService) refresh(ctx context.Context, tenant database.Tenant) {
	if s.mirror != nil {
		s.mirror.RefreshQuietly(ctx, tenant)
	}
}

// idAttempts bounds how often a save with an auto-assigned id is rerun.
const idAttempts = 3

// retryNextID reruns save while an auto-assigned id collides with a
// concurrent insert. Each run is its own transaction.
func retryNextID(auto bool, save func() error) error {
	err := save()
	for i := 1; auto && i < idAttempts && errors.Is(err, database.ErrConstraint); i++ {
		err = save()
	}
	return err
}
