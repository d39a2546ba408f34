package services

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"socialsellers/internal/db"
	"socialsellers/internal/models"
	"socialsellers/internal/notifier"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockDB(t *testing.T) (*db.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		sqlDB.Close()
	})
	return db.New(sqlDB, db.MySQL), mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

var (
	productQuery     = q("SELECT id, nombre, descripcion, precio, stock, activo FROM productos WHERE id = ?")
	productLockQuery = q("SELECT id, nombre, descripcion, precio, stock, activo FROM productos WHERE id = ? FOR UPDATE")
	userQuery        = q("SELECT id, nombre, email, password, rol, telefono FROM usuarios WHERE id = ?")
)

func productRow(id int, name, price string, stock int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "nombre", "descripcion", "precio", "stock", "activo"}).
		AddRow(id, name, nil, price, stock, true)
}

func userRow(id int, name, email string, role models.Role) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "nombre", "email", "password", "rol", "telefono"}).
		AddRow(id, name, email, "hash", string(role), nil)
}

type recordingNotifier struct {
	mu       sync.Mutex
	sales    []notifier.SaleNotification
	lowStock []notifier.LowStockNotification
	err      error
}

func (r *recordingNotifier) NotifySale(_ context.Context, sale notifier.SaleNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
	return r.err
}

func (r *recordingNotifier) NotifyLowStock(_ context.Context, alert notifier.LowStockNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lowStock = append(r.lowStock, alert)
	return r.err
}

var (
	testAdmin  = &models.User{ID: 1, Name: "Admin Demo", Email: "admin@socialsellers.com", Role: models.RoleAdmin}
	testSeller = &models.User{ID: 7, Name: "Carlos Vendedor", Email: "vendedor@socialsellers.com", Role: models.RoleSeller}
)
