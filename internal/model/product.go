package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductKind tells regular catalog items apart from the ones minted at
// checkout for lines that had no catalog entry.
type ProductKind string

const (
	KindCatalog ProductKind = "catalog"
	KindAdHoc   ProductKind = "adhoc"
)

type Product struct {
	ID       string          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name     string          `gorm:"column:nombre;type:varchar(255);not null;index" json:"nombre" validate:"required"`
	Price    decimal.Decimal `gorm:"column:precio;type:decimal(12,2);not null;default:0" json:"precio" validate:"gte=0"`
	Stock    int             `gorm:"column:stock;not null;default:0" json:"stock" validate:"gte=0"`
	Category string          `gorm:"column:categoria;type:varchar(100)" json:"categoria"`
	Kind     ProductKind     `gorm:"column:tipo;type:varchar(10);not null;default:catalog;index" json:"tipo"`
	Timestamps
}

func (Product) TableName() string { return "productos" }

func (p *Product) IsAdHoc() bool { return p.Kind == KindAdHoc }

// CatalogOnly restricts a product query to regular catalog items.
func CatalogOnly(db *gorm.DB) *gorm.DB {
	return db.Where("tipo = ?", KindCatalog)
}

// ProductInput is a save request. Nil fields keep the stored value.
type ProductInput struct {
	ID       string           `json:"codigo"`
	Name     *string          `json:"nombre"`
	Price    *decimal.Decimal `json:"precio" validate:"omitempty,gte=0"`
	Stock    *int             `json:"stock" validate:"omitempty,gte=0"`
	Category *string          `json:"categoria"`
}

// MergeInto applies the present fields of in onto p.
func (in *ProductInput) MergeInto(p *Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
}
