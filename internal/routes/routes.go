package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/orchid/internal/config"
	"github.com/example/orchid/internal/gateway"
	"github.com/example/orchid/internal/handlers"
	"github.com/example/orchid/internal/middleware"
	"github.com/example/orchid/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	orderStatusService := services.NewOrderStatusService(db)
	confirmService := services.NewPaymentConfirmationService(db)

	vnpay := gateway.NewVNPay(cfg.VNPayHashSecret, cfg.AllowUnverifiedCallbacks)
	momo := gateway.NewMoMo(cfg.MoMoAccessKey, cfg.MoMoSecretKey, cfg.AllowUnverifiedCallbacks)

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(db, telegramService)
	paymentHandler := handlers.NewPaymentHandler(db, confirmService, vnpay, momo, telegramService)
	profileHandler := handlers.NewProfileHandler(db)
	adminHandler := handlers.NewAdminHandler(db, orderStatusService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog routes
	categories := api.Group("/categories")
	categories.Get("/", catalogHandler.ListCategories)
	categories.Post("/", catalogHandler.CreateCategory)
	categories.Get("/:id", catalogHandler.GetCategory)
	categories.Put("/:id", catalogHandler.UpdateCategory)
	categories.Delete("/:id", catalogHandler.DeleteCategory)

	sizes := api.Group("/sizes")
	sizes.Get("/", catalogHandler.ListSizes)
	sizes.Post("/", catalogHandler.CreateSize)
	sizes.Get("/:id", catalogHandler.GetSize)
	sizes.Put("/:id", catalogHandler.UpdateSize)
	sizes.Delete("/:id", catalogHandler.DeleteSize)

	colors := api.Group("/colors")
	colors.Get("/", catalogHandler.ListColors)
	colors.Post("/", catalogHandler.CreateColor)
	colors.Get("/:id", catalogHandler.GetColor)
	colors.Put("/:id", catalogHandler.UpdateColor)
	colors.Delete("/:id", catalogHandler.DeleteColor)

	// Products
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/", productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)
	products.Put("/:id", productHandler.UpdateProduct)
	products.Delete("/:id", productHandler.DeleteProduct)

	// Gateway callbacks. Authenticity comes from the HMAC signature
	// inside the payload, not from a session.
	payments := api.Group("/payments")
	payments.Get("/vnpay/return", paymentHandler.VNPayReturn)
	payments.Get("/vnpay/ipn", paymentHandler.VNPayIPN)
	payments.Post("/momo/ipn", paymentHandler.MoMoIPN)

	// Protected customer routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/products/:id/reviews", productHandler.CreateReview)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/orders/:id/timeline", orderHandler.GetOrderTimeline)
	protected.Post("/orders/:id/pay", paymentHandler.InitiatePayment)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)

	// Staff back office
	admin := api.Group("/admin", middleware.AuthMiddleware(cfg), middleware.StaffMiddleware())
	admin.Get("/dashboard", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrderDetail)
	admin.Put("/orders/:id/status", adminHandler.AdvanceOrderStatus)
	admin.Post("/orders/:id/cancel", adminHandler.CancelOrder)
	admin.Get("/payments", adminHandler.ListPayments)
	admin.Post("/payments/confirm", paymentHandler.Confirm)
}
