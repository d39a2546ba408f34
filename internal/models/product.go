package models

import "github.com/shopspring/decimal"

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"nombre"`
	Description *string         `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"activo"`
}

type CreateProductRequest struct {
	Name        string          `json:"nombre" validate:"required,max=150"`
	Description *string         `json:"descripcion"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Active      *bool           `json:"activo"`
}

// UpdateProductRequest carries only the fields to change; nil means untouched.
type UpdateProductRequest struct {
	Name        *string          `json:"nombre" validate:"omitempty,min=1,max=150"`
	Description *string          `json:"descripcion"`
	Price       *decimal.Decimal `json:"precio"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Active      *bool            `json:"activo"`
}

func (r UpdateProductRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil && r.Stock == nil && r.Active == nil
}
