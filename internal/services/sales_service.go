package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"socialsellers/internal/db"
	"socialsellers/internal/metrics"
	"socialsellers/internal/models"
	"socialsellers/internal/notifier"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const saleColumns = "id, producto_id, vendedor_id, cantidad, total, fecha"

const notifyTimeout = 10 * time.Second

type SaleNotifier interface {
	NotifySale(ctx context.Context, sale notifier.SaleNotification) error
	NotifyLowStock(ctx context.Context, alert notifier.LowStockNotification) error
}

type SalesOptions struct {
	Notifier          SaleNotifier
	Metrics           *metrics.Metrics
	LowStockThreshold int
}

// SalesService is the only writer of sales and the only mutator of product
// stock. Every sale is one transaction: the stock decrement and the sale row
// commit together or not at all.
type SalesService struct {
	db       *db.DB
	products *ProductService
	reports  *ReportService
	notifier SaleNotifier
	metrics  *metrics.Metrics
	lowStock int
	now      func() time.Time
	logger   zerolog.Logger

	pending sync.WaitGroup
}

func NewSalesService(database *db.DB, products *ProductService, reports *ReportService, opts SalesOptions, logger zerolog.Logger) *SalesService {
	return &SalesService{
		db:       database,
		products: products,
		reports:  reports,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		lowStock: opts.LowStockThreshold,
		now:      time.Now,
		logger:   logger,
	}
}

// RecordSelfSale sells quantity units of a product at its catalog price on
// behalf of seller.
func (s *SalesService) RecordSelfSale(ctx context.Context, seller *models.User, productID, quantity int) (*models.Sale, error) {
	if quantity <= 0 {
		s.metrics.SaleRejected("validation")
		return nil, newValidationError("cantidad", "La cantidad debe ser mayor que 0")
	}
	if err := RequireRole(seller, models.RoleSeller, models.RoleAdmin); err != nil {
		return nil, err
	}

	var sale *models.Sale
	var product *models.Product

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := s.products.Get(ctx, tx, productID)
		if err != nil {
			return err
		}
		if current.Stock < quantity {
			return &InsufficientStockError{Available: current.Stock, Requested: quantity}
		}

		// The conditional update is authoritative; the read above only
		// short-circuits the common case.
		updated, err := s.products.Decrement(ctx, tx, productID, quantity)
		if err != nil {
			return err
		}

		total := updated.Price.Mul(decimal.NewFromInt(int64(quantity)))
		sale, err = insertSale(ctx, s.db, tx, productID, seller.ID, quantity, total, s.now())
		if err != nil {
			return err
		}

		product = updated
		return nil
	})
	if err != nil {
		s.rejected(err, productID, seller.ID, quantity)
		return nil, err
	}

	s.metrics.SaleRecorded("self", quantity)
	s.logger.Info().
		Int("sale_id", sale.ID).
		Int("product_id", productID).
		Int("seller_id", seller.ID).
		Int("quantity", quantity).
		Str("total", sale.Total.StringFixed(2)).
		Int("stock_left", product.Stock).
		Msg("Sale recorded")

	s.dispatch(ctx, seller, product, sale)
	return sale, nil
}

// RecordAdminSale records a sale for any seller at an admin-supplied unit
// price. Admin sales are manual ledger corrections that bypass inventory:
// stock is neither checked nor decremented.
func (s *SalesService) RecordAdminSale(ctx context.Context, admin *models.User, req *models.AdminSaleRequest) (*models.Sale, error) {
	if req.Quantity <= 0 {
		s.metrics.SaleRejected("validation")
		return nil, newValidationError("cantidad", "La cantidad debe ser mayor que 0")
	}
	if req.UnitPrice == nil {
		s.metrics.SaleRejected("validation")
		return nil, newValidationError("precio_unitario", "El precio unitario es obligatorio")
	}
	if err := validatePrice("precio_unitario", *req.UnitPrice); err != nil {
		s.metrics.SaleRejected("validation")
		return nil, err
	}
	if err := RequireRole(admin, models.RoleAdmin); err != nil {
		return nil, err
	}

	var sale *models.Sale
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.products.Get(ctx, tx, req.ProductID); err != nil {
			return err
		}
		if _, err := getUser(ctx, s.db, tx, req.SellerID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrSellerNotFound
			}
			return err
		}

		total := req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		var err error
		sale, err = insertSale(ctx, s.db, tx, req.ProductID, req.SellerID, req.Quantity, total, s.now())
		return err
	})
	if err != nil {
		s.rejected(err, req.ProductID, req.SellerID, req.Quantity)
		return nil, err
	}

	s.metrics.SaleRecorded("admin", req.Quantity)
	s.logger.Info().
		Int("sale_id", sale.ID).
		Int("admin_id", admin.ID).
		Int("seller_id", req.SellerID).
		Str("total", sale.Total.StringFixed(2)).
		Msg("Admin sale recorded")

	return sale, nil
}

// ListVisible returns every sale to admins and only their own sales to
// everyone else, oldest first.
func (s *SalesService) ListVisible(ctx context.Context, requester *models.User) ([]*models.Sale, error) {
	if requester == nil {
		return nil, ErrUnauthenticated
	}

	var rows *sql.Rows
	var err error
	if requester.IsAdmin() {
		rows, err = s.db.QueryContext(ctx, "SELECT "+saleColumns+" FROM ventas ORDER BY id")
	} else {
		rows, err = s.db.QueryContext(ctx, s.db.Rebind("SELECT "+saleColumns+" FROM ventas WHERE vendedor_id = ? ORDER BY id"), requester.ID)
	}
	if err != nil {
		s.logger.Error().Err(err).Int("user_id", requester.ID).Msg("Error listing sales")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	sales := []*models.Sale{}
	for rows.Next() {
		var sale models.Sale
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.SellerID, &sale.Quantity, &sale.Total, &sale.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning sale: %w", err)
		}
		sales = append(sales, &sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}
	return sales, nil
}

func (s *SalesService) Summary(ctx context.Context) (*models.SalesSummary, error) {
	summary, err := s.reports.Summary(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return &models.SalesSummary{Count: summary.Count, Total: summary.Total}, nil
}

// Wait blocks until every in-flight notification has finished.
func (s *SalesService) Wait() {
	s.pending.Wait()
}

func (s *SalesService) dispatch(ctx context.Context, seller *models.User, product *models.Product, sale *models.Sale) {
	if s.notifier == nil {
		return
	}

	saleMsg := notifier.SaleNotification{
		SellerName:  seller.Name,
		SellerEmail: seller.Email,
		ProductName: product.Name,
		Quantity:    sale.Quantity,
		Total:       sale.Total,
	}
	if seller.Phone != nil {
		saleMsg.SellerPhone = *seller.Phone
	}
	lowStock := product.Stock <= s.lowStock

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := s.notifier.NotifySale(nctx, saleMsg); err != nil {
			s.metrics.NotificationFailed()
			s.logger.Warn().Err(err).Int("sale_id", sale.ID).Msg("Sale notification failed")
		}
		if lowStock {
			err := s.notifier.NotifyLowStock(nctx, notifier.LowStockNotification{
				ProductName:  product.Name,
				CurrentStock: product.Stock,
				MinimumStock: s.lowStock,
			})
			if err != nil {
				s.metrics.NotificationFailed()
				s.logger.Warn().Err(err).Int("product_id", product.ID).Msg("Low stock notification failed")
			}
		}
	}()
}

func (s *SalesService) rejected(err error, productID, sellerID, quantity int) {
	var stockErr *InsufficientStockError
	var forbidden *ForbiddenError
	event := s.logger.Warn()
	switch {
	case errors.As(err, &stockErr):
		s.metrics.SaleRejected("insufficient_stock")
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrSellerNotFound):
		s.metrics.SaleRejected("not_found")
	case errors.As(err, &forbidden):
		s.metrics.SaleRejected("forbidden")
	case errors.Is(err, ErrTransient):
		s.metrics.SaleRejected("transient")
	default:
		s.metrics.SaleRejected("error")
		event = s.logger.Error()
	}
	event.Err(err).
		Int("product_id", productID).
		Int("seller_id", sellerID).
		Int("quantity", quantity).
		Msg("Sale rejected")
}

func insertSale(ctx context.Context, d *db.DB, q db.Querier, productID, sellerID, quantity int, total decimal.Decimal, at time.Time) (*models.Sale, error) {
	at = at.UTC().Truncate(time.Microsecond)

	saleID, err := d.InsertID(ctx, q,
		"INSERT INTO ventas (producto_id, vendedor_id, cantidad, total, fecha) VALUES (?, ?, ?, ?, ?)",
		productID, sellerID, quantity, total, at,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	return &models.Sale{
		ID:        int(saleID),
		ProductID: productID,
		SellerID:  sellerID,
		Quantity:  quantity,
		Total:     total,
		CreatedAt: at,
	}, nil
}
