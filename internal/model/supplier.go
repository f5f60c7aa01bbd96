package model

// Supplier is informational only; products do not reference it.
type Supplier struct {
	ID      string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name    string `gorm:"column:nombre;type:varchar(255);not null;index" json:"nombre" validate:"required"`
	Phone   string `gorm:"column:telefono;type:varchar(50)" json:"telefono"`
	Email   string `gorm:"column:email;type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address string `gorm:"column:direccion;type:text" json:"direccion"`
	Timestamps
}

func (Supplier) TableName() string { return "proveedores" }

type SupplierInput struct {
	ID      string  `json:"id"`
	Name    *string `json:"nombre"`
	Phone   *string `json:"telefono"`
	Email   *string `json:"email"`
	Address *string `json:"direccion"`
}

func (in *SupplierInput) MergeInto(s *Supplier) {
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.Phone != nil {
		s.Phone = *in.Phone
	}
	if in.Email != nil {
		s.Email = *in.Email
	}
	if in.Address != nil {
		s.Address = *in.Address
	}
}
