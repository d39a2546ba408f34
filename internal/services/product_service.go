package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"socialsellers/internal/db"
	"socialsellers/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const productColumns = "id, nombre, descripcion, precio, stock, activo"

// ProductService owns the product catalog and its stock counters. Stock is
// only ever read from the store; nothing here caches it.
type ProductService struct {
	db     *db.DB
	logger zerolog.Logger
}

func NewProductService(database *db.DB, logger zerolog.Logger) *ProductService {
	return &ProductService{
		db:     database,
		logger: logger,
	}
}

// Get reads a product on q, which may be the pool or an open transaction.
func (s *ProductService) Get(ctx context.Context, q db.Querier, productID int) (*models.Product, error) {
	if q == nil {
		q = s.db
	}
	row := q.QueryRowContext(ctx, s.db.Rebind("SELECT "+productColumns+" FROM productos WHERE id = ?"), productID)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return product, nil
}

// Decrement takes quantity units out of stock with a single conditional
// update, so two concurrent callers can never both take the last unit. It
// must run on the transaction that also writes the sale.
func (s *ProductService) Decrement(ctx context.Context, q db.Querier, productID, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, newValidationError("cantidad", "La cantidad debe ser mayor que 0")
	}

	result, err := q.ExecContext(ctx,
		s.db.Rebind("UPDATE productos SET stock = stock - ? WHERE id = ? AND stock >= ?"),
		quantity, productID, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		// A plain read could return the transaction's snapshot; the locking
		// read sees the stock the competing sale committed.
		product, err := s.lock(ctx, q, productID)
		if err != nil {
			return nil, err
		}
		return nil, &InsufficientStockError{Available: product.Stock, Requested: quantity}
	}

	return s.Get(ctx, q, productID)
}

// lock reads a product with SELECT ... FOR UPDATE on q.
func (s *ProductService) lock(ctx context.Context, q db.Querier, productID int) (*models.Product, error) {
	row := q.QueryRowContext(ctx, s.db.Rebind("SELECT "+productColumns+" FROM productos WHERE id = ? FOR UPDATE"), productID)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, newValidationError("nombre", "El nombre es obligatorio")
	}
	if err := validatePrice("precio", req.Price); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, newValidationError("stock", "El stock no puede ser negativo")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	productID, err := s.db.InsertID(ctx, s.db,
		"INSERT INTO productos (nombre, descripcion, precio, stock, activo) VALUES (?, ?, ?, ?, ?)",
		req.Name, req.Description, req.Price, req.Stock, active,
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error creating product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	product := &models.Product{
		ID:          int(productID),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Active:      active,
	}

	s.logger.Info().Int("product_id", product.ID).Str("name", product.Name).Msg("Product created")
	return product, nil
}

// UpdatePartial changes only the fields present in req.
func (s *ProductService) UpdatePartial(ctx context.Context, productID int, req *models.UpdateProductRequest) (*models.Product, error) {
	if req.Empty() {
		return nil, newValidationError("", "Debe indicar al menos un campo a modificar")
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, newValidationError("nombre", "El nombre no puede estar vacío")
	}
	if req.Price != nil {
		if err := validatePrice("precio", *req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, newValidationError("stock", "El stock no puede ser negativo")
	}

	var updated *models.Product
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		product, err := s.lock(ctx, tx, productID)
		if err != nil {
			return err
		}

		var sets []string
		var args []any
		if req.Name != nil {
			product.Name = strings.TrimSpace(*req.Name)
			sets, args = append(sets, "nombre = ?"), append(args, product.Name)
		}
		if req.Description != nil {
			product.Description = req.Description
			sets, args = append(sets, "descripcion = ?"), append(args, *req.Description)
		}
		if req.Price != nil {
			product.Price = *req.Price
			sets, args = append(sets, "precio = ?"), append(args, *req.Price)
		}
		if req.Stock != nil {
			product.Stock = *req.Stock
			sets, args = append(sets, "stock = ?"), append(args, *req.Stock)
		}
		if req.Active != nil {
			product.Active = *req.Active
			sets, args = append(sets, "activo = ?"), append(args, *req.Active)
		}

		args = append(args, productID)
		query := "UPDATE productos SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		updated = product
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			s.logger.Error().Err(err).Int("product_id", productID).Msg("Error updating product")
		}
		return nil, err
	}

	s.logger.Info().Int("product_id", productID).Msg("Product updated")
	return updated, nil
}

func (s *ProductService) List(ctx context.Context) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+productColumns+" FROM productos ORDER BY id")
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing products")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var product models.Product
	var description sql.NullString

	err := row.Scan(&product.ID, &product.Name, &description, &product.Price, &product.Stock, &product.Active)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		product.Description = &description.String
	}
	return &product, nil
}

// validatePrice accepts non-negative amounts with at most two decimals.
func validatePrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return newValidationError(field, "El precio no puede ser negativo")
	}
	if !price.Equal(price.Round(2)) {
		return newValidationError(field, "El precio admite como máximo 2 decimales")
	}
	return nil
}
