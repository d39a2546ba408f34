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

const userColumns = "id, nombre, email, password, rol, telefono"

type UserService struct {
	db     *db.DB
	logger zerolog.Logger
}

func NewUserService(database *db.DB, logger zerolog.Logger) *UserService {
	return &UserService{
		db:     database,
		logger: logger,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, newValidationError("", "nombre, email y password son obligatorios")
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, newValidationError("rol", err.Error())
	}

	var existingID int
	err = s.db.QueryRowContext(ctx, s.db.Rebind("SELECT id FROM usuarios WHERE email = ?"), req.Email).Scan(&existingID)
	if err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error().Err(err).Msg("Error checking existing user")
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error hashing password")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.db.InsertID(ctx, s.db,
		"INSERT INTO usuarios (nombre, email, password, rol, telefono) VALUES (?, ?, ?, ?, ?)",
		req.Name, req.Email, hashedPassword, string(role), req.Phone,
	)
	if err != nil {
		if db.IsDuplicate(err) {
			return nil, ErrDuplicateEmail
		}
		s.logger.Error().Err(err).Msg("Error creating user")
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user := &models.User{
		ID:           int(userID),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		Phone:        req.Phone,
	}

	s.logger.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User registered successfully")
	return user, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		s.logger.Warn().Str("email", email).Msg("Failed authentication attempt")
		return nil, ErrInvalidCredentials
	}

	s.logger.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User authenticated successfully")
	return user, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT "+userColumns+" FROM usuarios WHERE email = ?"), email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Error fetching user")
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM usuarios ORDER BY id")
	if err != nil {
		s.logger.Error().Err(err).Msg("Error listing users")
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// getUser reads a user on q, which may be the pool or an open transaction.
func getUser(ctx context.Context, d *db.DB, q db.Querier, userID int) (*models.User, error) {
	row := q.QueryRowContext(ctx, d.Rebind("SELECT "+userColumns+" FROM usuarios WHERE id = ?"), userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var role string
	var phone sql.NullString

	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &phone); err != nil {
		return nil, err
	}

	user.Role = models.Role(role)
	if phone.Valid {
		user.Phone = &phone.String
	}
	return &user, nil
}
