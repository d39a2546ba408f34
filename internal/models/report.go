package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PeriodSummary struct {
	Count int             `json:"total_ventas"`
	Total decimal.Decimal `json:"monto_total"`
	From  *time.Time      `json:"fecha_desde"`
	To    *time.Time      `json:"fecha_hasta"`
}

type ProductRanking struct {
	ProductID int             `json:"producto_id"`
	Name      string          `json:"nombre_producto"`
	Quantity  int             `json:"cantidad_vendida"`
	Amount    decimal.Decimal `json:"monto_total"`
}

type SellerRanking struct {
	SellerID  int             `json:"vendedor_id"`
	Name      string          `json:"nombre_vendedor"`
	SaleCount int             `json:"total_ventas"`
	Amount    decimal.Decimal `json:"monto_total"`
}

type Commission struct {
	SellerID   int             `json:"vendedor_id"`
	Name       string          `json:"nombre_vendedor"`
	SaleCount  int             `json:"total_ventas"`
	Total      decimal.Decimal `json:"monto_total_vendido"`
	Percentage decimal.Decimal `json:"porcentaje_comision"`
	Amount     decimal.Decimal `json:"monto_comision"`
}

type Dashboard struct {
	Summary     PeriodSummary    `json:"resumen"`
	TopProducts []ProductRanking `json:"top_productos"`
	TopSellers  []SellerRanking  `json:"top_vendedores"`
}
