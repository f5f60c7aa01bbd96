package model

import "time"

// Timestamps is the audit trail shared by the catalog tables.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All lists every table the service migrates.
func All() []interface{} {
	return []interface{}{&Product{}, &Supplier{}, &Sale{}, &SaleItem{}, &User{}}
}
