package repository

import (
	"pilotopos/internal/model"
	"pilotopos/pkg/database"

	"gorm.io/gorm"
)

type SupplierRepository interface {
	FindAll(tx *gorm.DB) ([]model.Supplier, error)
	FindByID(tx *gorm.DB, id string) (*model.Supplier, error)
	NextID(tx *gorm.DB) (string, error)
	Create(tx *gorm.DB, supplier *model.Supplier) error
	Update(tx *gorm.DB, supplier *model.Supplier) error
	Delete(tx *gorm.DB, id string) (int64, error)
}

type supplierRepo struct{}

func NewSupplierRepo() SupplierRepository {
	return &supplierRepo{}
}

func (r *supplierRepo) FindAll(tx *gorm.DB) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := tx.Order("nombre ASC").Order("id ASC").Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) FindByID(tx *gorm.DB, id string) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := tx.First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *supplierRepo) NextID(tx *gorm.DB) (string, error) {
	return nextSequentialID(tx, &model.Supplier{})
}

func (r *supplierRepo) Create(tx *gorm.DB, supplier *model.Supplier) error {
	return database.Classify(tx.Create(supplier).Error, "insert supplier")
}

func (r *supplierRepo) Update(tx *gorm.DB, supplier *model.Supplier) error {
	return database.Classify(tx.Save(supplier).Error, "update supplier")
}

func (r *supplierRepo) Delete(tx *gorm.DB, id string) (int64, error) {
	res := tx.Delete(&model.Supplier{}, "id = ?", id)
	return res.RowsAffected, database.Classify(res.Error, "delete supplier")
}
