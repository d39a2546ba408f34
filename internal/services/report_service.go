package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socialsellers/internal/db"
	"socialsellers/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTopProducts = 5
	MaxTopProducts     = 20
	DefaultTopSellers  = 10
	MaxTopSellers      = 50
	DashboardTop       = 5
)

var (
	DefaultCommissionPercentage = decimal.NewFromInt(10)
	hundred                     = decimal.NewFromInt(100)
)

// ReportService computes read-only aggregates over the sales ledger.
type ReportService struct {
	db     *db.DB
	logger zerolog.Logger
}

func NewReportService(database *db.DB, logger zerolog.Logger) *ReportService {
	return &ReportService{
		db:     database,
		logger: logger,
	}
}

// Summary counts and sums sales whose date falls within [from, to]. Either
// bound may be nil.
func (s *ReportService) Summary(ctx context.Context, from, to *time.Time) (*models.PeriodSummary, error) {
	query := "SELECT COUNT(*), COALESCE(SUM(total), 0) FROM ventas"
	var conds []string
	var args []any
	if from != nil {
		conds, args = append(conds, "fecha >= ?"), append(args, from.UTC())
	}
	if to != nil {
		conds, args = append(conds, "fecha <= ?"), append(args, to.UTC())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	summary := &models.PeriodSummary{From: from, To: to}
	err := s.db.QueryRowContext(ctx, s.db.Rebind(query), args...).Scan(&summary.Count, &summary.Total)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error computing sales summary")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return summary, nil
}

// TopProducts ranks products by units sold. Ties keep the order in which
// each product was first sold.
func (s *ReportService) TopProducts(ctx context.Context, limit int) ([]models.ProductRanking, error) {
	if limit < 1 || limit > MaxTopProducts {
		return nil, newValidationError("limite", fmt.Sprintf("El límite debe estar entre 1 y %d", MaxTopProducts))
	}

	query := `
		SELECT v.producto_id, p.nombre, SUM(v.cantidad) AS cantidad_vendida, SUM(v.total) AS monto_total
		FROM ventas v
		JOIN productos p ON p.id = v.producto_id
		GROUP BY v.producto_id, p.nombre
		ORDER BY cantidad_vendida DESC, MIN(v.id) ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error ranking products")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	ranking := []models.ProductRanking{}
	for rows.Next() {
		var r models.ProductRanking
		if err := rows.Scan(&r.ProductID, &r.Name, &r.Quantity, &r.Amount); err != nil {
			return nil, fmt.Errorf("error scanning product ranking: %w", err)
		}
		ranking = append(ranking, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product ranking: %w", err)
	}
	return ranking, nil
}

// TopSellers ranks sellers by amount sold. Ties keep the order in which each
// seller first sold.
func (s *ReportService) TopSellers(ctx context.Context, limit int) ([]models.SellerRanking, error) {
	if limit < 1 || limit > MaxTopSellers {
		return nil, newValidationError("limite", fmt.Sprintf("El límite debe estar entre 1 y %d", MaxTopSellers))
	}

	query := `
		SELECT v.vendedor_id, u.nombre, COUNT(v.id) AS total_ventas, SUM(v.total) AS monto_total
		FROM ventas v
		JOIN usuarios u ON u.id = v.vendedor_id
		GROUP BY v.vendedor_id, u.nombre
		ORDER BY monto_total DESC, MIN(v.id) ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error ranking sellers")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	ranking := []models.SellerRanking{}
	for rows.Next() {
		var r models.SellerRanking
		if err := rows.Scan(&r.SellerID, &r.Name, &r.SaleCount, &r.Amount); err != nil {
			return nil, fmt.Errorf("error scanning seller ranking: %w", err)
		}
		ranking = append(ranking, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seller ranking: %w", err)
	}
	return ranking, nil
}

// Commissions projects the commission owed to every seller with sales, in
// seller id order. Nothing is persisted.
func (s *ReportService) Commissions(ctx context.Context, percentage decimal.Decimal) ([]models.Commission, error) {
	if percentage.IsNegative() || percentage.GreaterThan(hundred) {
		return nil, newValidationError("porcentaje", "El porcentaje debe estar entre 0 y 100")
	}

	query := `
		SELECT v.vendedor_id, u.nombre, COUNT(v.id) AS total_ventas, SUM(v.total) AS monto_total
		FROM ventas v
		JOIN usuarios u ON u.id = v.vendedor_id
		GROUP BY v.vendedor_id, u.nombre
		ORDER BY v.vendedor_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error computing commissions")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	commissions := []models.Commission{}
	for rows.Next() {
		var c models.Commission
		if err := rows.Scan(&c.SellerID, &c.Name, &c.SaleCount, &c.Total); err != nil {
			return nil, fmt.Errorf("error scanning commission: %w", err)
		}
		c.Percentage = percentage
		c.Amount = CommissionAmount(c.Total, percentage)
		commissions = append(commissions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commissions: %w", err)
	}
	return commissions, nil
}

// CommissionAmount returns total × percentage / 100 rounded half-up to two
// decimals.
func CommissionAmount(total, percentage decimal.Decimal) decimal.Decimal {
	return total.Mul(percentage).Div(hundred).Round(2)
}

// Dashboard loads the global summary and both rankings concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var dashboard models.Dashboard

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.Summary(gctx, nil, nil)
		if err != nil {
			return err
		}
		dashboard.Summary = *summary
		return nil
	})
	g.Go(func() error {
		products, err := s.TopProducts(gctx, DashboardTop)
		if err != nil {
			return err
		}
		dashboard.TopProducts = products
		return nil
	})
	g.Go(func() error {
		sellers, err := s.TopSellers(gctx, DashboardTop)
		if err != nil {
			return err
		}
		dashboard.TopSellers = sellers
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dashboard, nil
}
