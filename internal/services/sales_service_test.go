package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"socialsellers/internal/metrics"
	"socialsellers/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	decrementQuery  = q("UPDATE productos SET stock = stock - ? WHERE id = ? AND stock >= ?")
	insertSaleQuery = q("INSERT INTO ventas (producto_id, vendedor_id, cantidad, total, fecha) VALUES (?, ?, ?, ?, ?)")
)

func newSalesService(t *testing.T, opts SalesOptions) (*SalesService, sqlmock.Sqlmock) {
	t.Helper()
	database, mock := newMockDB(t)
	products := NewProductService(database, zerolog.Nop())
	reports := NewReportService(database, zerolog.Nop())
	svc := NewSalesService(database, products, reports, opts, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC) }
	return svc, mock
}

func TestRecordSelfSaleDecrementsStockAndComputesTotal(t *testing.T) {
	rec := &recordingNotifier{}
	m := metrics.New()
	svc, mock := newSalesService(t, SalesOptions{Notifier: rec, Metrics: m, LowStockThreshold: 5})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo Keratina", "50.00", 20))
	mock.ExpectExec(decrementQuery).WithArgs(3, 1, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo Keratina", "50.00", 17))
	mock.ExpectExec(insertSaleQuery).
		WithArgs(1, testSeller.ID, 3, decimal.RequireFromString("150"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(10, 1))
	mock.ExpectCommit()

	sale, err := svc.RecordSelfSale(context.Background(), testSeller, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Wait()

	if sale.ID != 10 || sale.SellerID != testSeller.ID || sale.Quantity != 3 {
		t.Errorf("unexpected sale %+v", sale)
	}
	if !sale.Total.Equal(decimal.RequireFromString("150.0")) {
		t.Errorf("expected total 150, got %s", sale.Total)
	}
	if !sale.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected fecha %s", sale.CreatedAt)
	}

	if len(rec.sales) != 1 || rec.sales[0].ProductName != "Shampoo Keratina" || rec.sales[0].SellerEmail != testSeller.Email {
		t.Errorf("unexpected notifications %+v", rec.sales)
	}
	if len(rec.lowStock) != 0 {
		t.Errorf("did not expect a low stock alert with 17 units left")
	}
	if got := testutil.ToFloat64(m.SalesTotal.WithLabelValues("self")); got != 1 {
		t.Errorf("expected sale counter 1, got %v", got)
	}
}

func TestRecordSelfSaleRejectsInsufficientStock(t *testing.T) {
	rec := &recordingNotifier{}
	svc, mock := newSalesService(t, SalesOptions{Notifier: rec})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 5))
	mock.ExpectRollback()

	_, err := svc.RecordSelfSale(context.Background(), testSeller, 1, 10)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 5 || !strings.Contains(err.Error(), "Stock insuficiente") {
		t.Errorf("unexpected error %v", err)
	}
	svc.Wait()
	if len(rec.sales) != 0 {
		t.Error("rejected sale must not notify")
	}
}

// The first read sees stock 1 from the transaction snapshot while a
// competing sale has already taken the unit. The reported availability must
// come from the locking read, not the snapshot.
func TestRecordSelfSaleLosesRaceOnConditionalUpdate(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 1))
	mock.ExpectExec(decrementQuery).WithArgs(1, 1, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(productLockQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 0))
	mock.ExpectRollback()

	_, err := svc.RecordSelfSale(context.Background(), testSeller, 1, 1)
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.Available != 0 || stockErr.Requested != 1 {
		t.Errorf("unexpected error fields %+v", stockErr)
	}
}

func TestRecordSelfSaleMissingProduct(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "descripcion", "precio", "stock", "activo"}))
	mock.ExpectRollback()

	_, err := svc.RecordSelfSale(context.Background(), testSeller, 99, 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "no encontrado") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRecordSelfSaleRollsBackWhenInsertFails(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 4))
	mock.ExpectExec(decrementQuery).WithArgs(2, 1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 2))
	mock.ExpectExec(insertSaleQuery).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := svc.RecordSelfSale(context.Background(), testSeller, 1, 2); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordSelfSaleSurfacesDeadlockAsTransient(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "10.00", 4))
	mock.ExpectExec(decrementQuery).WithArgs(1, 1, 1).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	_, err := svc.RecordSelfSale(context.Background(), testSeller, 1, 1)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		t.Error("transient failure must be distinct from insufficient stock")
	}
}

func TestRecordSelfSaleValidatesQuantity(t *testing.T) {
	svc, _ := newSalesService(t, SalesOptions{})

	for _, qty := range []int{0, -2} {
		_, err := svc.RecordSelfSale(context.Background(), testSeller, 1, qty)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("quantity %d: expected validation error, got %v", qty, err)
		}
	}
}

func TestRecordSelfSaleAlertsOnLowStockAndIgnoresNotifierFailure(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("smtp down")}
	m := metrics.New()
	svc, mock := newSalesService(t, SalesOptions{Notifier: rec, Metrics: m, LowStockThreshold: 5})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(3).WillReturnRows(productRow(3, "Tratamiento Capilar", "25.00", 6))
	mock.ExpectExec(decrementQuery).WithArgs(2, 3, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(productQuery).WithArgs(3).WillReturnRows(productRow(3, "Tratamiento Capilar", "25.00", 4))
	mock.ExpectExec(insertSaleQuery).
		WithArgs(3, testSeller.ID, 2, decimal.RequireFromString("50"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	sale, err := svc.RecordSelfSale(context.Background(), testSeller, 3, 2)
	if err != nil {
		t.Fatalf("notifier failure must not fail the sale: %v", err)
	}
	svc.Wait()

	if sale.ID != 11 {
		t.Errorf("unexpected sale id %d", sale.ID)
	}
	if len(rec.lowStock) != 1 || rec.lowStock[0].CurrentStock != 4 || rec.lowStock[0].MinimumStock != 5 {
		t.Errorf("unexpected low stock alerts %+v", rec.lowStock)
	}
	if got := testutil.ToFloat64(m.NotificationFailures); got != 2 {
		t.Errorf("expected 2 notification failures, got %v", got)
	}
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestRecordAdminSaleUsesSuppliedPriceWithoutTouchingStock(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "50.00", 0))
	mock.ExpectQuery(userQuery).WithArgs(7).WillReturnRows(userRow(7, "Carlos", "c@s.com", models.RoleSeller))
	mock.ExpectExec(insertSaleQuery).
		WithArgs(1, 7, 4, decimal.RequireFromString("39.96"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(20, 1))
	mock.ExpectCommit()

	sale, err := svc.RecordAdminSale(context.Background(), testAdmin, &models.AdminSaleRequest{
		ProductID: 1,
		SellerID:  7,
		Quantity:  4,
		UnitPrice: price("9.99"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sale.Total.Equal(decimal.RequireFromString("39.96")) {
		t.Errorf("expected exact total 39.96, got %s", sale.Total)
	}
}

func TestRecordAdminSaleSellerNotFound(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo", "50.00", 3))
	mock.ExpectQuery(userQuery).WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "email", "password", "rol", "telefono"}))
	mock.ExpectRollback()

	_, err := svc.RecordAdminSale(context.Background(), testAdmin, &models.AdminSaleRequest{
		ProductID: 1,
		SellerID:  404,
		Quantity:  1,
		UnitPrice: price("5"),
	})
	if !errors.Is(err, ErrSellerNotFound) {
		t.Fatalf("expected ErrSellerNotFound, got %v", err)
	}
	if err.Error() != "Vendedor no encontrado" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRecordAdminSaleRequiresAdmin(t *testing.T) {
	svc, _ := newSalesService(t, SalesOptions{})

	_, err := svc.RecordAdminSale(context.Background(), testSeller, &models.AdminSaleRequest{
		ProductID: 1,
		SellerID:  7,
		Quantity:  1,
		UnitPrice: price("5"),
	})
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestRecordAdminSaleValidatesInput(t *testing.T) {
	svc, _ := newSalesService(t, SalesOptions{})

	cases := []*models.AdminSaleRequest{
		{ProductID: 1, SellerID: 7, Quantity: 0, UnitPrice: price("5")},
		{ProductID: 1, SellerID: 7, Quantity: 1, UnitPrice: price("-5")},
		{ProductID: 1, SellerID: 7, Quantity: 1, UnitPrice: price("5.001")},
		{ProductID: 1, SellerID: 7, Quantity: 1},
	}
	for _, req := range cases {
		_, err := svc.RecordAdminSale(context.Background(), testAdmin, req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%+v: expected validation error, got %v", req, err)
		}
	}
}

func TestListVisibleFiltersBySeller(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})
	cols := []string{"id", "producto_id", "vendedor_id", "cantidad", "total", "fecha"}
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("SELECT id, producto_id, vendedor_id, cantidad, total, fecha FROM ventas WHERE vendedor_id = ? ORDER BY id")).
		WithArgs(testSeller.ID).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, 1, testSeller.ID, 1, "12.50", at))
	mock.ExpectQuery(q("SELECT id, producto_id, vendedor_id, cantidad, total, fecha FROM ventas ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, 1, 3, 2, "25.00", at).
			AddRow(2, 1, testSeller.ID, 1, "12.50", at))

	own, err := svc.ListVisible(context.Background(), testSeller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(own) != 1 || own[0].SellerID != testSeller.ID {
		t.Errorf("seller should only see own sales, got %+v", own)
	}

	all, err := svc.ListVisible(context.Background(), testAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 {
		t.Errorf("admin should see every sale in insertion order, got %+v", all)
	}
}

func TestSalesSummaryDelegatesToReports(t *testing.T) {
	svc, mock := newSalesService(t, SalesOptions{})

	mock.ExpectQuery(q("SELECT COUNT(*), COALESCE(SUM(total), 0) FROM ventas")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(3, "450.00"))

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Count != 3 || !summary.Total.Equal(decimal.NewFromInt(450)) {
		t.Errorf("unexpected summary %+v", summary)
	}
}
