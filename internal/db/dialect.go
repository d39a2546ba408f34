package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect captures the few places where MySQL and PostgreSQL differ for this
// service: placeholders, generated keys, schema and error codes.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "pgx"
)

func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites ? placeholders into $n for PostgreSQL. Question marks inside
// single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (d Dialect) InsertID(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	if d == Postgres {
		var id int64
		if err := q.QueryRowContext(ctx, d.Rebind(query)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// IsTransient reports deadlocks, lock wait timeouts and serialization failures.
func IsTransient(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsDuplicate reports unique constraint violations.
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (d Dialect) Migrations() []string {
	if d == Postgres {
		return postgresMigrations
	}
	return mysqlMigrations
}

var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS usuarios (
		id INT AUTO_INCREMENT PRIMARY KEY,
		nombre VARCHAR(100) NOT NULL,
		email VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
		password VARCHAR(255) NOT NULL,
		rol VARCHAR(20) NOT NULL DEFAULT 'vendedor',
		telefono VARCHAR(32) NULL,
		UNIQUE KEY uq_usuarios_email (email)
	);`,
	`CREATE TABLE IF NOT EXISTS productos (
		id INT AUTO_INCREMENT PRIMARY KEY,
		nombre VARCHAR(150) NOT NULL,
		descripcion TEXT NULL,
		precio DECIMAL(12,2) NOT NULL,
		stock INT NOT NULL DEFAULT 0,
		activo BOOLEAN NOT NULL DEFAULT TRUE,
		INDEX idx_productos_nombre (nombre),
		CONSTRAINT chk_productos_stock CHECK (stock >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS ventas (
		id INT AUTO_INCREMENT PRIMARY KEY,
		producto_id INT NOT NULL,
		vendedor_id INT NOT NULL,
		cantidad INT NOT NULL DEFAULT 1,
		total DECIMAL(12,2) NOT NULL,
		fecha DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_ventas_vendedor (vendedor_id),
		INDEX idx_ventas_fecha (fecha),
		FOREIGN KEY (producto_id) REFERENCES productos(id),
		FOREIGN KEY (vendedor_id) REFERENCES usuarios(id)
	);`,
	`CREATE TABLE IF NOT EXISTS vendedores (
		id INT AUTO_INCREMENT PRIMARY KEY,
		nombre VARCHAR(100) NOT NULL,
		red_social VARCHAR(100) NULL,
		usuario VARCHAR(100) NOT NULL,
		UNIQUE KEY uq_vendedores_usuario (usuario)
	);`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS usuarios (
		id SERIAL PRIMARY KEY,
		nombre VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		rol VARCHAR(20) NOT NULL DEFAULT 'vendedor',
		telefono VARCHAR(32) NULL
	);`,
	`CREATE TABLE IF NOT EXISTS productos (
		id SERIAL PRIMARY KEY,
		nombre VARCHAR(150) NOT NULL,
		descripcion TEXT NULL,
		precio NUMERIC(12,2) NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		activo BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_productos_nombre ON productos (nombre);`,
	`CREATE TABLE IF NOT EXISTS ventas (
		id SERIAL PRIMARY KEY,
		producto_id INTEGER NOT NULL REFERENCES productos(id),
		vendedor_id INTEGER NOT NULL REFERENCES usuarios(id),
		cantidad INTEGER NOT NULL DEFAULT 1,
		total NUMERIC(12,2) NOT NULL,
		fecha TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_vendedor ON ventas (vendedor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_ventas_fecha ON ventas (fecha);`,
	`CREATE TABLE IF NOT EXISTS vendedores (
		id SERIAL PRIMARY KEY,
		nombre VARCHAR(100) NOT NULL,
		red_social VARCHAR(100) NULL,
		usuario VARCHAR(100) NOT NULL UNIQUE
	);`,
}
