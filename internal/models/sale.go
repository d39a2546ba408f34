package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID        int             `json:"id"`
	ProductID int             `json:"producto_id"`
	SellerID  int             `json:"vendedor_id"`
	Quantity  int             `json:"cantidad"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"fecha"`
}

type SelfSaleRequest struct {
	ProductID int `json:"producto_id" validate:"required,gt=0"`
	Quantity  int `json:"cantidad" validate:"gt=0"`
}

type AdminSaleRequest struct {
	ProductID int              `json:"producto_id" validate:"required,gt=0"`
	SellerID  int              `json:"vendedor_id" validate:"required,gt=0"`
	Quantity  int              `json:"cantidad" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"precio_unitario" validate:"required"`
}

type SalesSummary struct {
	Count int             `json:"total_ventas"`
	Total decimal.Decimal `json:"monto_total"`
}
