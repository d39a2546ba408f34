package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ErrTransient marks failures the caller may retry as a whole: deadlocks,
// serialization failures and lock wait timeouts.
var ErrTransient = errors.New("transient database error, retry the operation")

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	*sql.DB
	dialect Dialect
}

func New(sqlDB *sql.DB, dialect Dialect) *DB {
	return &DB{DB: sqlDB, dialect: dialect}
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Rebind(query string) string {
	return d.dialect.Rebind(query)
}

// InsertID runs an INSERT and returns the generated primary key.
func (d *DB) InsertID(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	return d.dialect.InsertID(ctx, q, query, args...)
}

func InitDB(driver, dbURL string) (*DB, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	var sqlDB *sql.DB
	switch dialect {
	case MySQL:
		cfg, err := mysql.ParseDSN(dbURL)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql DSN: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build mysql connector: %w", err)
		}
		sqlDB = sql.OpenDB(connector)
	case Postgres:
		cfg, err := pgx.ParseConfig(dbURL)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres DSN: %w", err)
		}
		sqlDB = stdlib.OpenDB(*cfg)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("database is not responding: %w", err)
	}

	return New(sqlDB, dialect), nil
}

func (d *DB) RunMigrations(ctx context.Context) error {
	for _, q := range d.dialect.Migrations() {
		if _, err := d.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on error or panic.
func (d *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to start transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func classify(err error) error {
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
