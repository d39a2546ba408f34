package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"socialsellers/internal/db"
	"socialsellers/internal/middleware"
	"socialsellers/internal/models"
	"socialsellers/internal/notifier"
	"socialsellers/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

var (
	productQuery    = regexp.QuoteMeta("SELECT id, nombre, descripcion, precio, stock, activo FROM productos WHERE id = ?")
	decrementQuery  = regexp.QuoteMeta("UPDATE productos SET stock = stock - ? WHERE id = ? AND stock >= ?")
	insertSaleQuery = regexp.QuoteMeta("INSERT INTO ventas (producto_id, vendedor_id, cantidad, total, fecha) VALUES (?, ?, ?, ?, ?)")
	userByEmail     = regexp.QuoteMeta("SELECT id, nombre, email, password, rol, telefono FROM usuarios WHERE email = ?")

	seller = &models.User{ID: 7, Name: "Carlos Vendedor", Email: "vendedor@socialsellers.com", Role: models.RoleSeller}
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

func productRow(id int, name, price string, stock int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "nombre", "descripcion", "precio", "stock", "activo"}).
		AddRow(id, name, nil, price, stock, true)
}

func newSaleHandler(t *testing.T) (*SaleHandler, sqlmock.Sqlmock) {
	t.Helper()
	database, mock := newMockDB(t)
	products := services.NewProductService(database, zerolog.Nop())
	reports := services.NewReportService(database, zerolog.Nop())
	sales := services.NewSalesService(database, products, reports, services.SalesOptions{}, zerolog.Nop())
	return NewSaleHandler(sales, zerolog.Nop()), mock
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func postJSON(path, body string, user *models.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = middleware.WithUser(req, user)
	}
	return req
}

func TestRegisterSaleDefaultsQuantityToOne(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo Keratina", "12.50", 15))
	mock.ExpectExec(decrementQuery).WithArgs(1, 1, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo Keratina", "12.50", 14))
	mock.ExpectExec(insertSaleQuery).WithArgs(1, seller.ID, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/ventas/registrar", `{"producto_id": 1}`, seller))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sale models.Sale
	if err := json.NewDecoder(rec.Body).Decode(&sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if sale.ID != 3 || sale.Quantity != 1 || sale.SellerID != seller.ID {
		t.Errorf("unexpected sale %+v", sale)
	}
	if sale.Total.StringFixed(2) != "12.50" {
		t.Errorf("expected total 12.50, got %s", sale.Total.StringFixed(2))
	}
}

func TestRegisterSaleInsufficientStock(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnRows(productRow(1, "Shampoo Keratina", "12.50", 2))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/ventas/registrar", `{"producto_id": 1, "cantidad": 5}`, seller))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Stock insuficiente. Disponible: 2, solicitado: 5" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestRegisterSaleProductNotFound(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nombre", "descripcion", "precio", "stock", "activo"}))
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/ventas/registrar", `{"producto_id": 99, "cantidad": 1}`, seller))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Producto no encontrado" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestRegisterSaleRejectsInvalidBodies(t *testing.T) {
	h, _ := newSaleHandler(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"zero quantity", `{"producto_id": 1, "cantidad": 0}`, http.StatusUnprocessableEntity},
		{"negative quantity", `{"producto_id": 1, "cantidad": -2}`, http.StatusUnprocessableEntity},
		{"missing product", `{"cantidad": 1}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"producto_id": `, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Register(rec, postJSON("/ventas/registrar", tt.body, seller))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegisterSaleTransientFailure(t *testing.T) {
	h, mock := newSaleHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(productQuery).WithArgs(1).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/ventas/registrar", `{"producto_id": 1, "cantidad": 1}`, seller))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestAdminSaleRequiresAdmin(t *testing.T) {
	h, _ := newSaleHandler(t)

	rec := httptest.NewRecorder()
	h.CreateForSeller(rec, postJSON("/ventas", `{"producto_id": 1, "vendedor_id": 7, "cantidad": 2, "precio_unitario": 10}`, seller))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Acceso denegado. Roles permitidos: admin" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestAdminSaleRequiresUnitPrice(t *testing.T) {
	h, _ := newSaleHandler(t)
	admin := &models.User{ID: 1, Name: "Admin", Email: "admin@socialsellers.com", Role: models.RoleAdmin}

	rec := httptest.NewRecorder()
	h.CreateForSeller(rec, postJSON("/ventas", `{"producto_id": 1, "vendedor_id": 7, "cantidad": 3}`, admin))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Error != "validation_error" {
		t.Errorf("unexpected error code %q", body.Error)
	}
}

func TestReportQueryValidation(t *testing.T) {
	database, _ := newMockDB(t)
	h := NewReportHandler(services.NewReportService(database, zerolog.Nop()), zerolog.Nop())

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{"bad date", h.Summary, "/reportes/resumen?desde=ayer"},
		{"non numeric limit", h.TopProducts, "/reportes/top-productos?limite=cinco"},
		{"limit too small", h.TopProducts, "/reportes/top-productos?limite=0"},
		{"limit too large", h.TopSellers, "/reportes/top-vendedores?limite=51"},
		{"non numeric percentage", h.Commissions, "/comisiones/calcular?porcentaje=diez"},
		{"percentage above 100", h.Commissions, "/comisiones/calcular?porcentaje=150"},
		{"negative percentage", h.Commissions, "/comisiones/calcular?porcentaje=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReportSummaryParsesBounds(t *testing.T) {
	database, mock := newMockDB(t)
	h := NewReportHandler(services.NewReportService(database, zerolog.Nop()), zerolog.Nop())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COALESCE(SUM(total), 0) FROM ventas WHERE fecha >= ? AND fecha <= ?")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sum"}).AddRow(4, "87.50"))

	rec := httptest.NewRecorder()
	h.Summary(rec, httptest.NewRequest(http.MethodGet, "/reportes/resumen?desde=2026-01-01&hasta=2026-01-31T23:59:59", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.PeriodSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Count != 4 || summary.Total.StringFixed(2) != "87.50" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestLoginWithFormAndJSON(t *testing.T) {
	hash, err := services.HashPassword("vendedor123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	database, mock := newMockDB(t)
	tokens := services.NewTokenService("test-secret", 15*time.Minute, zerolog.Nop())
	h := NewAuthHandler(services.NewUserService(database, zerolog.Nop()), tokens, 30*time.Minute, zerolog.Nop())

	userRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "nombre", "email", "password", "rol", "telefono"}).
			AddRow(seller.ID, seller.Name, seller.Email, hash, "vendedor", nil)
	}
	mock.ExpectQuery(userByEmail).WithArgs(seller.Email).WillReturnRows(userRows())
	mock.ExpectQuery(userByEmail).WithArgs(seller.Email).WillReturnRows(userRows())
	mock.ExpectQuery(userByEmail).WithArgs(seller.Email).WillReturnRows(userRows())

	form := url.Values{"username": {seller.Email}, "password": {"vendedor123"}}
	formReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	for _, req := range []*http.Request{
		formReq,
		postJSON("/auth/login", `{"email": "vendedor@socialsellers.com", "password": "vendedor123"}`, nil),
	} {
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp models.TokenResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.TokenType != "bearer" || resp.User == nil || resp.User.Email != seller.Email {
			t.Errorf("unexpected response %+v", resp)
		}
		subject, err := tokens.Validate(resp.AccessToken)
		if err != nil || subject != seller.Email {
			t.Errorf("token does not validate: %q %v", subject, err)
		}
	}

	rec := httptest.NewRecorder()
	h.Login(rec, postJSON("/auth/login", `{"email": "vendedor@socialsellers.com", "password": "wrong"}`, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Message != "Email o contraseña incorrectos" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	database, _ := newMockDB(t)
	tokens := services.NewTokenService("test-secret", 15*time.Minute, zerolog.Nop())
	h := NewAuthHandler(services.NewUserService(database, zerolog.Nop()), tokens, 30*time.Minute, zerolog.Nop())

	tests := []string{
		`{"nombre": "Ana", "email": "no-es-email", "password": "secreto1"}`,
		`{"nombre": "Ana", "email": "ana@example.com", "password": "secreto1", "rol": "gerente"}`,
		`{"email": "ana@example.com", "password": "secreto1"}`,
	}
	for _, body := range tests {
		rec := httptest.NewRecorder()
		h.Register(rec, postJSON("/auth/registrar", body, nil))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected 422, got %d", body, rec.Code)
		}
	}
}

func TestMeReturnsCurrentUser(t *testing.T) {
	h := NewAuthHandler(nil, nil, time.Minute, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Me(rec, middleware.WithUser(httptest.NewRequest(http.MethodGet, "/auth/me", nil), seller))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var user models.User
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if user.Email != seller.Email || user.Role != models.RoleSeller {
		t.Errorf("unexpected user %+v", user)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("password hash must never be serialized")
	}
}

func TestUpdateProductRejectsBadID(t *testing.T) {
	database, _ := newMockDB(t)
	h := NewProductHandler(services.NewProductService(database, zerolog.Nop()), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPatch, "/productos/abc", strings.NewReader(`{"stock": 3}`))
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

type failingSender struct{}

func (failingSender) Send(context.Context, notifier.Message) error {
	return errors.New("smtp down")
}

func TestNotificationEndpoints(t *testing.T) {
	ok := NewNotificationHandler(notifier.New(notifier.NewLogSender(zerolog.Nop()), "admin@socialsellers.com", zerolog.Nop()), zerolog.Nop())
	failing := NewNotificationHandler(notifier.New(failingSender{}, "admin@socialsellers.com", zerolog.Nop()), zerolog.Nop())

	rec := httptest.NewRecorder()
	ok.Test(rec, httptest.NewRequest(http.MethodGet, "/notificaciones/test", nil))
	var result notifier.TestResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.EmailSent || !result.WhatsAppSent {
		t.Errorf("expected both channels to succeed, got %+v", result)
	}

	saleBody := `{"vendedor_nombre": "Carlos", "vendedor_email": "vendedor@socialsellers.com", "producto_nombre": "Shampoo", "cantidad": 2, "total": 25}`

	rec = httptest.NewRecorder()
	ok.Sale(rec, postJSON("/notificaciones/venta", saleBody, seller))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	failing.Sale(rec, postJSON("/notificaciones/venta", saleBody, seller))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when delivery fails, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ok.Sale(rec, postJSON("/notificaciones/venta", `{"vendedor_nombre": "Carlos", "cantidad": 2}`, seller))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for incomplete body, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ok.LowStock(rec, postJSON("/notificaciones/stock-bajo", `{"producto_nombre": "Shampoo", "stock_actual": 2, "stock_minimo": 5}`, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestSystemEndpoints(t *testing.T) {
	h := NewSystemHandler(stubPinger{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.TrimSpace(rec.Body.String()) != `{"mensaje":"API Social Sellers activa"}` {
		t.Errorf("unexpected root body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	down := NewSystemHandler(stubPinger{err: errors.New("down")}, zerolog.Nop())
	rec = httptest.NewRecorder()
	down.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
