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
)

// SellerService manages social seller profiles. Profiles are not linked to
// users or sales.
type SellerService struct {
	db     *db.DB
	logger zerolog.Logger
}

func NewSellerService(database *db.DB, logger zerolog.Logger) *SellerService {
	return &SellerService{
		db:     database,
		logger: logger,
	}
}

func (s *SellerService) Register(ctx context.Context, req *models.RegisterSellerRequest) (*models.Seller, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Network = strings.TrimSpace(req.Network)
	req.Handle = strings.TrimSpace(req.Handle)
	if req.Name == "" || req.Network == "" || req.Handle == "" {
		return nil, newValidationError("", "nombre, red_social y usuario son obligatorios")
	}

	var existingID int
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM vendedores WHERE usuario = ?"), req.Handle).Scan(&existingID)
	if err == nil {
		return nil, ErrDuplicateHandle
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error().Err(err).Msg("Error checking existing seller")
		return nil, fmt.Errorf("database error: %w", err)
	}

	sellerID, err := s.db.InsertID(ctx, s.db,
		"INSERT INTO vendedores (nombre, red_social, usuario) VALUES (?, ?, ?)",
		req.Name, req.Network, req.Handle,
	)
	if err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrDuplicateHandle
		}
		s.logger.Error().Err(err).Msg("Error creating seller")
		return nil, fmt.Errorf("failed to create seller: %w", err)
	}

	network := req.Network
	seller := &models.Seller{
		ID:      int(sellerID),
		Name:    req.Name,
		Network: &network,
		Handle:  req.Handle,
	}

	s.logger.Info().Int("seller_id", seller.ID).Str("handle", seller.Handle).Msg("Seller registered")
	return seller, nil
}

func (s *SellerService) List(ctx context.Context) ([]*models.Seller, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, nombre, red_social, usuario FROM vendedores ORDER BY id")
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing sellers")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	sellers := []*models.Seller{}
	for rows.Next() {
		var seller models.Seller
		var network sql.NullString
		if err := rows.Scan(&seller.ID, &seller.Name, &network, &seller.Handle); err != nil {
			return nil, fmt.Errorf("error scanning seller: %w", err)
		}
		if network.Valid {
			seller.Network = &network.String
		}
		sellers = append(sellers, &seller)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sellers: %w", err)
	}
	return sellers, nil
}
