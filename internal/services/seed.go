package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"socialsellers/internal/config"
	"socialsellers/internal/db"
	"socialsellers/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type seedProduct struct {
	name        string
	description string
	price       decimal.Decimal
	stock       int
}

var demoProducts = []seedProduct{
	{"Shampoo Keratina", "Shampoo restaurador con keratina", decimal.RequireFromString("12.50"), 15},
	{"Acondicionador Argán", "Acondicionador nutritivo con aceite de argán", decimal.RequireFromString("15.00"), 20},
	{"Tratamiento Capilar", "Tratamiento intensivo para cabello dañado", decimal.RequireFromString("25.00"), 10},
}

const demoSales = 5

type SeedReport struct {
	UsersCreated    int `json:"usuarios_creados"`
	ProductsCreated int `json:"productos_creados"`
	SalesCreated    int `json:"ventas_creadas"`
}

// Seeder populates an empty database with demo accounts, products and a few
// historical sales. Running it again creates nothing new.
type Seeder struct {
	db     *db.DB
	cfg    config.SeedConfig
	rng    *rand.Rand
	now    func() time.Time
	logger zerolog.Logger
}

func NewSeeder(database *db.DB, cfg config.SeedConfig, logger zerolog.Logger) *Seeder {
	return &Seeder{
		db:     database,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:    time.Now,
		logger: logger,
	}
}

func (s *Seeder) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		users := []struct {
			name, email, password string
			role                  models.Role
		}{
			{s.cfg.AdminName, s.cfg.AdminEmail, s.cfg.AdminPassword, models.RoleAdmin},
			{s.cfg.SellerName, s.cfg.SellerEmail, s.cfg.SellerPassword, models.RoleSeller},
		}
		for _, u := range users {
			created, err := s.ensureUser(ctx, tx, u.name, u.email, u.password, u.role)
			if err != nil {
				return err
			}
			if created {
				report.UsersCreated++
			}
		}

		for _, p := range demoProducts {
			created, err := s.ensureProduct(ctx, tx, p)
			if err != nil {
				return err
			}
			if created {
				report.ProductsCreated++
			}
		}

		created, err := s.seedSales(ctx, tx)
		if err != nil {
			return err
		}
		report.SalesCreated = created
		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Seeding failed")
		return nil, err
	}

	s.logger.Info().
		Int("users", report.UsersCreated).
		Int("products", report.ProductsCreated).
		Int("sales", report.SalesCreated).
		Msg("Seeding completed")
	return report, nil
}

func (s *Seeder) ensureUser(ctx context.Context, tx *sql.Tx, name, email, password string, role models.Role) (bool, error) {
	var id int
	err := tx.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM usuarios WHERE email = ?"), email).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to look up seed user: %w", err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash seed password: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		s.db.Rebind("INSERT INTO usuarios (nombre, email, password, rol) VALUES (?, ?, ?, ?)"),
		name, email, hashed, string(role),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create seed user: %w", err)
	}
	return true, nil
}

func (s *Seeder) ensureProduct(ctx context.Context, tx *sql.Tx, p seedProduct) (bool, error) {
	var id int
	err := tx.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM productos WHERE nombre = ?"), p.name).Scan(&id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to look up seed product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		s.db.Rebind("INSERT INTO productos (nombre, descripcion, precio, stock, activo) VALUES (?, ?, ?, ?, ?)"),
		p.name, p.description, p.price, p.stock, true,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create seed product: %w", err)
	}
	return true, nil
}

// seedSales backfills historical sales only while the ledger is empty. They
// are dated in the past and, like admin sales, leave stock untouched.
func (s *Seeder) seedSales(ctx context.Context, tx *sql.Tx) (int, error) {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM ventas").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	var sellerID int
	err := tx.QueryRowContext(ctx,
		s.db.Rebind("SELECT id FROM usuarios WHERE rol = ? ORDER BY id LIMIT 1"), string(models.RoleSeller),
	).Scan(&sellerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find seed seller: %w", err)
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, precio FROM productos ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("failed to list seed products: %w", err)
	}
	type priced struct {
		id    int
		price decimal.Decimal
	}
	var products []priced
	for rows.Next() {
		var p priced
		if err := rows.Scan(&p.id, &p.price); err != nil {
			rows.Close()
			return 0, fmt.Errorf("error scanning seed product: %w", err)
		}
		products = append(products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating seed products: %w", err)
	}
	if len(products) == 0 {
		return 0, nil
	}

	now := s.now()
	for i := 0; i < demoSales; i++ {
		p := products[s.rng.IntN(len(products))]
		quantity := 1 + s.rng.IntN(3)
		at := now.AddDate(0, 0, -(1 + s.rng.IntN(30)))
		total := p.price.Mul(decimal.NewFromInt(int64(quantity)))

		if _, err := insertSale(ctx, s.db, tx, p.id, sellerID, quantity, total, at); err != nil {
			return 0, err
		}
	}
	return demoSales, nil
}
