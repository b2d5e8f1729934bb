package routes

import (
	"net/http"

	"github.com/duckieducksrgood/winchpoint/configs"
	"github.com/duckieducksrgood/winchpoint/controllers"
	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/middlewares"
	"github.com/duckieducksrgood/winchpoint/pkg/mailer"
	"github.com/duckieducksrgood/winchpoint/pkg/metrics"
	"github.com/duckieducksrgood/winchpoint/pkg/outbox"
	"github.com/duckieducksrgood/winchpoint/pkg/storage"
	"github.com/duckieducksrgood/winchpoint/repository"
	"github.com/duckieducksrgood/winchpoint/services"
	"github.com/duckieducksrgood/winchpoint/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the outside-world collaborators; tests swap them for fakes.
type Deps struct {
	Mail     mailer.Sender
	Store    storage.Presigner
	Registry *prometheus.Registry
}

// App is the wired server: the gin engine plus the background pieces main
// has to start and stop.
type App struct {
	Engine *gin.Engine
	Bus    *outbox.Bus
	Hub    *ws.OrderHub
}

func Build(db *gorm.DB, cfg *configs.Config, log *zap.Logger, d Deps) (*App, error) {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	m := metrics.NewApp(metrics.New(d.Registry, "winchpoint"))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	qrRepo := repository.NewPaymentQRRepository(db)
	reportRepo, err := repository.NewReportRepository(db)
	if err != nil {
		return nil, err
	}

	// Events
	bus := outbox.NewBus(log, outbox.Options{})
	tpl, err := mailer.NewRenderer()
	if err != nil {
		return nil, err
	}
	services.NewNotificationService(d.Mail, tpl, cfg.SiteURL, m.EmailsSent).Register(bus)
	hub := ws.NewOrderHub(log, cfg.CORSOrigins)
	bus.Subscribe(services.EventOrderStatusChanged, hub.HandleOrderStatusChanged)

	// Services
	catalogSvc := services.NewCatalogService(db, productRepo, categoryRepo)
	cartSvc := services.NewCartService(db, cartRepo, productRepo)
	orderSvc := services.NewOrderService(db, orderRepo, cartRepo, productRepo, bus, m)
	authSvc := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, cfg.JWTRefreshTTL)
	resetSvc := services.NewPasswordResetService(userRepo, bus)
	qrSvc := services.NewPaymentQRService(qrRepo)
	uploadSvc := services.NewUploadService(d.Store)
	reportSvc := services.NewReportService(reportRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.Observability(log, m))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "wsClients": hub.Clients()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	RegisterRoutes(r, cfg.JWTSecret, Controllers{
		Auth:      controllers.NewAuthController(authSvc, cfg.IsProduction()),
		Users:     controllers.NewUserController(authSvc),
		Reset:     controllers.NewPasswordResetController(resetSvc),
		Products:  controllers.NewProductController(catalogSvc),
		Categ:     controllers.NewCategoryController(catalogSvc),
		Cart:      controllers.NewCartController(cartSvc),
		Orders:    controllers.NewOrderController(orderSvc),
		PaymentQR: controllers.NewPaymentQRController(qrSvc),
		Uploads:   controllers.NewUploadController(uploadSvc),
		Reports:   controllers.NewReportController(reportSvc),
		Hub:       hub,
	})

	return &App{Engine: r, Bus: bus, Hub: hub}, nil
}

type Controllers struct {
	Auth      *controllers.AuthController
	Users     *controllers.UserController
	Reset     *controllers.PasswordResetController
	Products  *controllers.ProductController
	Categ     *controllers.CategoryController
	Cart      *controllers.CartController
	Orders    *controllers.OrderController
	PaymentQR *controllers.PaymentQRController
	Uploads   *controllers.UploadController
	Reports   *controllers.ReportController
	Hub       *ws.OrderHub
}

func RegisterRoutes(r *gin.Engine, secret string, h Controllers) {
	authed := middlewares.AuthMiddleware(secret)
	admin := middlewares.AuthMiddleware(secret, entity.RoleAdmin)

	// Auth (public)
	a := r.Group("/auth")
	{
		a.POST("/register", h.Auth.Register)
		a.POST("/login", h.Auth.Login)
		a.POST("/refresh", h.Auth.Refresh)
		a.POST("/logout", h.Auth.Logout)
		a.POST("/password-reset/request", h.Reset.Request)
		a.POST("/password-reset/verify", h.Reset.Verify)
		a.POST("/password-reset/confirm", h.Reset.Confirm)
	}

	// Auth (protected)
	aAuth := a.Group("", authed)
	{
		aAuth.GET("/decode", h.Auth.Decode)
		aAuth.GET("/me", h.Auth.Me)
		aAuth.PATCH("/me", h.Auth.UpdateMe)
	}

	// Catalog (public reads)
	r.GET("/products", h.Products.List)
	r.GET("/products/:id", h.Products.Get)
	r.GET("/categories", h.Categ.List)
	r.GET("/categories/:id", h.Categ.Get)
	r.GET("/payment-qr", h.PaymentQR.List)
	r.GET("/payment-qr/:id", h.PaymentQR.Get)

	// Customer
	u := r.Group("/", authed)
	{
		u.GET("/cart", h.Cart.Get)
		u.DELETE("/cart", h.Cart.Clear)
		u.POST("/cart/items", h.Cart.Add)
		u.PATCH("/cart/items/:productId", h.Cart.UpdateQty)
		u.DELETE("/cart/items/:productId", h.Cart.RemoveItem)

		u.POST("/orders", h.Orders.Checkout)
		u.GET("/orders", h.Orders.List)
		u.GET("/orders/:id", h.Orders.Detail)
		u.PATCH("/orders/:id", h.Orders.Update)
		u.DELETE("/orders/:id", h.Orders.Cancel)

		u.POST("/uploads/presign", h.Uploads.Presign)
	}

	// Admin
	ad := r.Group("/admin", admin)
	{
		ad.GET("/products/export", h.Products.Export)
		ad.POST("/products/import", h.Products.Import)
		ad.POST("/products", h.Products.Create)
		ad.PATCH("/products/:id", h.Products.Update)
		ad.DELETE("/products/:id", h.Products.Delete)

		ad.POST("/categories", h.Categ.Create)
		ad.PATCH("/categories/:id", h.Categ.Update)
		ad.DELETE("/categories/:id", h.Categ.Delete)

		ad.POST("/payment-qr", h.PaymentQR.Create)
		ad.PATCH("/payment-qr/:id", h.PaymentQR.Update)
		ad.DELETE("/payment-qr/:id", h.PaymentQR.Delete)

		ad.GET("/users", h.Users.List)
		ad.PATCH("/users/:id", h.Users.Update)
		ad.DELETE("/users/:id", h.Users.Delete)

		ad.GET("/reports/revenue", h.Reports.Revenue)
		ad.GET("/reports/revenue/export", h.Reports.Export)
		ad.GET("/reports/dashboard", h.Reports.Dashboard)
	}

	r.GET("/ws/orders", middlewares.WSAuthMiddleware(secret, entity.RoleAdmin), h.Hub.HandleWebSocket)
}
