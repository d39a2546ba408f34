package router

import (
	"net/http"

	"socialsellers/internal/config"
	"socialsellers/internal/db"
	"socialsellers/internal/handlers"
	"socialsellers/internal/metrics"
	"socialsellers/internal/middleware"
	"socialsellers/internal/models"
	"socialsellers/internal/notifier"
	"socialsellers/internal/services"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Services bundles everything the HTTP layer needs. It is built once in main.
type Services struct {
	DB       *db.DB
	Tokens   *services.TokenService
	Gate     *services.Gate
	Users    *services.UserService
	Products *services.ProductService
	Sales    *services.SalesService
	Reports  *services.ReportService
	Sellers  *services.SellerService
	Notifier *notifier.Notifier
	Metrics  *metrics.Metrics
}

func SetupRouter(cfg config.Config, svc Services, logger zerolog.Logger) *mux.Router {
	systemHandler := handlers.NewSystemHandler(svc.DB, logger)
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Tokens, cfg.AccessTokenTTL, logger)
	userHandler := handlers.NewUserHandler(svc.Users, logger)
	productHandler := handlers.NewProductHandler(svc.Products, logger)
	saleHandler := handlers.NewSaleHandler(svc.Sales, logger)
	reportHandler := handlers.NewReportHandler(svc.Reports, logger)
	sellerHandler := handlers.NewSellerHandler(svc.Sellers, logger)
	notificationHandler := handlers.NewNotificationHandler(svc.Notifier, logger)

	r := mux.NewRouter()

	rateLimiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, svc.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimiter.Middleware())

	authenticated := middleware.Authentication(svc.Gate, logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	sellerOrAdmin := middleware.RequireRole(models.RoleSeller, models.RoleAdmin)

	r.HandleFunc("/", systemHandler.Root).Methods("GET")
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")
	r.Handle("/metrics", svc.Metrics.Handler()).Methods("GET")

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/registrar", authHandler.Register).Methods("POST")
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")

	protectedAuth := auth.PathPrefix("").Subrouter()
	protectedAuth.Use(authenticated)
	protectedAuth.HandleFunc("/me", authHandler.Me).Methods("GET")

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(authenticated, adminOnly)
	admin.HandleFunc("/usuarios", userHandler.GetUsers).Methods("GET")

	sellers := r.PathPrefix("/vendedores").Subrouter()
	sellers.Use(authenticated, sellerOrAdmin)
	sellers.HandleFunc("/registrar", sellerHandler.Register).Methods("POST")
	sellers.HandleFunc("/listar", sellerHandler.List).Methods("GET")

	products := r.PathPrefix("/productos").Subrouter()
	products.Use(authenticated)
	products.HandleFunc("/listar", productHandler.List).Methods("GET")
	productsAdmin := products.PathPrefix("").Subrouter()
	productsAdmin.Use(adminOnly)
	productsAdmin.HandleFunc("/registrar", productHandler.Create).Methods("POST")
	productsAdmin.HandleFunc("/{id:[0-9]+}", productHandler.Update).Methods("PATCH")

	sales := r.PathPrefix("/ventas").Subrouter()
	sales.Use(authenticated)
	sales.HandleFunc("/listar", saleHandler.List).Methods("GET")
	sales.Handle("/registrar", sellerOrAdmin(http.HandlerFunc(saleHandler.Register))).Methods("POST")
	salesAdmin := sales.PathPrefix("").Subrouter()
	salesAdmin.Use(adminOnly)
	salesAdmin.HandleFunc("", saleHandler.CreateForSeller).Methods("POST")
	salesAdmin.HandleFunc("/resumen", saleHandler.Summary).Methods("GET")

	reports := r.PathPrefix("/reportes").Subrouter()
	reports.Use(authenticated, adminOnly)
	reports.HandleFunc("/resumen", reportHandler.Summary).Methods("GET")
	reports.HandleFunc("/top-productos", reportHandler.TopProducts).Methods("GET")
	reports.HandleFunc("/top-vendedores", reportHandler.TopSellers).Methods("GET")
	reports.HandleFunc("/dashboard", reportHandler.Dashboard).Methods("GET")

	commissions := r.PathPrefix("/comisiones").Subrouter()
	commissions.Use(authenticated, adminOnly)
	commissions.HandleFunc("/calcular", reportHandler.Commissions).Methods("GET")

	notifications := r.PathPrefix("/notificaciones").Subrouter()
	notifications.HandleFunc("/test", notificationHandler.Test).Methods("GET")
	notificationsAuth := notifications.PathPrefix("").Subrouter()
	notificationsAuth.Use(authenticated)
	notificationsAuth.HandleFunc("/venta", notificationHandler.Sale).Methods("POST")
	notificationsAuth.Handle("/stock-bajo", adminOnly(http.HandlerFunc(notificationHandler.LowStock))).Methods("POST")

	return r
}
