package repository

import (
	"pilotopos/internal/model"
	"pilotopos/pkg/database"

	"gorm.io/gorm"
)

// ProductRepository methods run on the transaction handed out by
// database.DB.Transaction so the tenant schema is already selected.
type ProductRepository interface {
	FindAll(tx *gorm.DB, includeAdHoc bool) ([]model.Product, error)
	FindByID(tx *gorm.DB, id string) (*model.Product, error)
	FindCatalogByNameForUpdate(tx *gorm.DB, name string) (*model.Product, error)
	NextID(tx *gorm.DB) (string, error)
	Create(tx *gorm.DB, product *model.Product) error
	Update(tx *gorm.DB, product *model.Product) error
	UpdateStock(tx *gorm.DB, id string, newStock int) error
	Delete(tx *gorm.DB, id string) (int64, error)
}

type productRepo struct{}

func NewProductRepo() ProductRepository {
	return &productRepo{}
}

func (r *productRepo) FindAll(tx *gorm.DB, includeAdHoc bool) ([]model.Product, error) {
	var products []model.Product
	q := tx.Order("nombre ASC").Order("id ASC")
	if !includeAdHoc {
		q = q.Scopes(model.CatalogOnly)
	}
	err := q.Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(tx *gorm.DB, id string) (*model.Product, error) {
	var product model.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindCatalogByNameForUpdate returns the catalog product with the lowest id
// among those named exactly name, locking the row.
func (r *productRepo) FindCatalogByNameForUpdate(tx *gorm.DB, name string) (*model.Product, error) {
	var product model.Product
	err := database.ForUpdate(tx).
		Scopes(model.CatalogOnly).
		Where("nombre = ?", name).
		Order("LENGTH(id) ASC").Order("id ASC").
		Take(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) NextID(tx *gorm.DB) (string, error) {
	return nextSequentialID(tx, &model.Product{})
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return database.Classify(tx.Create(product).Error, "insert product")
}

func (r *productRepo) Update(tx *gorm.DB, product *model.Product) error {
	return database.Classify(tx.Save(product).Error, "update product")
}

// UpdateStock sets the absolute stock level; callers floor it at zero.
func (r *productRepo) UpdateStock(tx *gorm.DB, id string, newStock int) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", newStock).Error
}

func (r *productRepo) Delete(tx *gorm.DB, id string) (int64, error) {
	res := tx.Delete(&model.Product{}, "id = ?", id)
	return res.RowsAffected, database.Classify(res.Error, "delete product")
}
