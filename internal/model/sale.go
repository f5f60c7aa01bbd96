package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SaleExtra is the attribute bag stored with every sale header.
type SaleExtra struct {
	Rounding   decimal.Decimal   `json:"redondeo"`
	CapturedAt time.Time         `json:"capturado_en"`
	Attributes map[string]string `json:"atributos,omitempty"`
}

type Sale struct {
	ID       string                        `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Date     string                        `gorm:"column:fecha;type:varchar(16);not null;index" json:"fecha"`
	Customer string                        `gorm:"column:cliente;type:varchar(255)" json:"cliente,omitempty"`
	Total    decimal.Decimal               `gorm:"column:total;type:decimal(12,2);not null" json:"total"`
	Extra    datatypes.JSONType[SaleExtra] `gorm:"column:extra" json:"extra"`
	Items    []SaleItem                    `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

func (Sale) TableName() string { return "ventas" }

// Rounding returns the amount added to the cart sum at checkout.
func (s *Sale) Rounding() decimal.Decimal { return s.Extra.Data().Rounding }

// Day and Hour split the stored "YYYY-MM-DD HH:MM" timestamp.
func (s *Sale) Day() string {
	if len(s.Date) < 10 {
		return s.Date
	}
	return s.Date[:10]
}

func (s *Sale) Hour() string {
	if len(s.Date) < 16 {
		return ""
	}
	return s.Date[11:16]
}

type SaleItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID    string          `gorm:"column:venta_id;type:varchar(32);not null;index" json:"venta_id"`
	ProductID string          `gorm:"column:producto_id;type:varchar(64);not null;index" json:"producto_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"producto,omitempty"`
	Quantity  int             `gorm:"column:cantidad;not null" json:"cantidad"`
	UnitPrice decimal.Decimal `gorm:"column:precio_unitario;type:decimal(12,2);not null" json:"precio_unitario"`
}

func (SaleItem) TableName() string { return "venta_items" }

// DisplayName falls back to the product id when the product row is gone.
func (i *SaleItem) DisplayName() string {
	if i.Product != nil && i.Product.Name != "" {
		return i.Product.Name
	}
	return i.ProductID
}

// ItemGroup is a sale line summed by product name.
type ItemGroup struct {
	Name      string          `json:"nombre"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio_unitario"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// GroupedItems sums the sale's line items by display name in first-seen
// order. The unit price is the one of the first line.
func (s *Sale) GroupedItems() []ItemGroup {
	index := make(map[string]int, len(s.Items))
	var groups []ItemGroup
	for i := range s.Items {
		it := &s.Items[i]
		name := it.DisplayName()
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		if j, ok := index[name]; ok {
			groups[j].Quantity += it.Quantity
			groups[j].Subtotal = groups[j].Subtotal.Add(line)
			continue
		}
		index[name] = len(groups)
		groups = append(groups, ItemGroup{Name: name, Quantity: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: line})
	}
	return groups
}

// HistoryLine and HistoryEntry are the history listing shape.
type HistoryLine struct {
	Name     string `json:"nombre"`
	Quantity int    `json:"cantidad"`
}

type HistoryEntry struct {
	ID       string          `json:"id"`
	Date     string          `json:"fecha"`
	Hour     string          `json:"hora"`
	Total    decimal.Decimal `json:"total"`
	Rounding decimal.Decimal `json:"redondeo"`
	Products []HistoryLine   `json:"productos"`
}

func (s *Sale) HistoryEntry() HistoryEntry {
	groups := s.GroupedItems()
	lines := make([]HistoryLine, len(groups))
	for i, g := range groups {
		lines[i] = HistoryLine{Name: g.Name, Quantity: g.Quantity}
	}
	return HistoryEntry{
		ID:       s.ID,
		Date:     s.Day(),
		Hour:     s.Hour(),
		Total:    s.Total,
		Rounding: s.Rounding(),
		Products: lines,
	}
}
