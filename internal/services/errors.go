package services

import (
	"errors"
	"fmt"
	"strings"

	"socialsellers/internal/db"
	"socialsellers/internal/models"
)

var (
	ErrUnauthenticated    = errors.New("No se pudieron validar las credenciales")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("Email o contraseña incorrectos")
	ErrUserNotFound       = errors.New("Usuario no encontrado")
	ErrProductNotFound    = errors.New("Producto no encontrado")
	ErrSellerNotFound     = errors.New("Vendedor no encontrado")
	ErrDuplicateEmail     = errors.New("El email ya está registrado")
	ErrDuplicateHandle    = errors.New("El usuario ya está registrado")

	// ErrTransient is returned when the store aborted the unit of work and the
	// whole operation can be retried.
	ErrTransient = db.ErrTransient
)

type ForbiddenError struct {
	Allowed []models.Role
}

func (e *ForbiddenError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		names[i] = string(r)
	}
	return "Acceso denegado. Roles permitidos: " + strings.Join(names, ", ")
}

type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente. Disponible: %d, solicitado: %d", e.Available, e.Requested)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
