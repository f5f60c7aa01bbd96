package repository

import (
	"strings"

	"pilotopos/internal/model"
	"pilotopos/pkg/database"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SaleFilter narrows the sales listing. Empty fields do not filter.
type SaleFilter struct {
	Query string // substring of id or fecha
	From  string // YYYY-MM-DD, inclusive
	To    string // YYYY-MM-DD, inclusive
}

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	CreateItems(tx *gorm.DB, items []model.SaleItem) error
	FindAll(tx *gorm.DB, filter SaleFilter) ([]model.Sale, error)
	FindByID(tx *gorm.DB, id string) (*model.Sale, error)
	UpdateHeader(tx *gorm.DB, id, date string, total decimal.Decimal, extra model.SaleExtra) (int64, error)
	Delete(tx *gorm.DB, id string) (int64, error)
	DeleteItemsByProduct(tx *gorm.DB, productID string) error
}

type saleRepo struct{}

func NewSaleRepo() SaleRepository {
	return &saleRepo{}
}

func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return database.Classify(tx.Omit("Items").Create(sale).Error, "insert sale")
}

func (r *saleRepo) CreateItems(tx *gorm.DB, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return database.Classify(tx.Omit("Product").Create(&items).Error, "insert sale items")
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *saleRepo) FindAll(tx *gorm.DB, filter SaleFilter) ([]model.Sale, error) {
	var sales []model.Sale
	q := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Items.Product")

	if filter.Query != "" {
		like := "%" + likeEscaper.Replace(filter.Query) + "%"
		q = q.Where(`id LIKE ? ESCAPE '\' OR fecha LIKE ? ESCAPE '\'`, like, like)
	}
	if filter.From != "" {
		q = q.Where("SUBSTR(fecha, 1, 10) >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("SUBSTR(fecha, 1, 10) <= ?", filter.To)
	}

	err := q.Order("fecha DESC").Order("id DESC").Find(&sales).Error
	return sales, err
}

func (r *saleRepo) FindByID(tx *gorm.DB, id string) (*model.Sale, error) {
	var sale model.Sale
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Preload("Items.Product").First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpdateHeader rewrites the header columns only. Line items are not touched.
func (r *saleRepo) UpdateHeader(tx *gorm.DB, id, date string, total decimal.Decimal, extra model.SaleExtra) (int64, error) {
	res := tx.Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"fecha": date,
			"total": total,
			"extra": datatypes.NewJSONType(extra),
		})
	return res.RowsAffected, database.Classify(res.Error, "update sale")
}

// Delete removes the sale and its line items.
func (r *saleRepo) Delete(tx *gorm.DB, id string) (int64, error) {
	if err := tx.Where("venta_id = ?", id).Delete(&model.SaleItem{}).Error; err != nil {
		return 0, database.Classify(err, "delete sale items")
	}
	res := tx.Delete(&model.Sale{}, "id = ?", id)
	return res.RowsAffected, database.Classify(res.Error, "delete sale")
}

func (r *saleRepo) DeleteItemsByProduct(tx *gorm.DB, productID string) error {
	err := tx.Where("producto_id = ?", productID).Delete(&model.SaleItem{}).Error
	return database.Classify(err, "delete product sale items")
}
