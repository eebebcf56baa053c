package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"cardvault/internal/apperr"
	"cardvault/internal/cardsearch"
	"cardvault/internal/catalog"
	"cardvault/internal/config"
	"cardvault/internal/database"
	"cardvault/internal/email"
	"cardvault/internal/logger"
	"cardvault/internal/metrics"
	"cardvault/internal/middleware"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
)

// Services are the collaborators handlers pull from the request context.
type Services struct {
	Catalog    *catalog.Service
	CardSearch *cardsearch.Client
	Email      *email.Service
	Metrics    metrics.Recorder
}

func SetupRoutes(r *gin.Engine, db *sql.DB, cfg *config.Config, services Services) {
	if services.Metrics == nil {
		services.Metrics = metrics.Nop{}
	}

	r.Use(middleware.LogRequests())
	r.Use(middleware.Metrics(services.Metrics))
	r.Use(middleware.SecurityHeaders(cfg))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.NotFoundGuard(cfg))
	r.Use(middleware.RateLimit(cfg))
	r.Use(middleware.AddDBContext(db))
	r.Use(addServiceContext(cfg, services))

	r.GET("/health", handleHealth)

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.AuthRateLimit(cfg), handleRegister)
		auth.POST("/login", middleware.AuthRateLimit(cfg), handleLogin)
		auth.POST("/logout", handleLogout)
		auth.GET("/me", middleware.AuthRequired(db, cfg), handleMe)
	}

	public := api.Group("/")
	public.Use(middleware.AuthOptional(db, cfg))
	{
		public.GET("/categories", handleCategories)
		public.GET("/sets", handleSets)
		public.GET("/products", handleProducts)
		public.GET("/products/:id", handleProductDetail)
		public.GET("/products/slug/:slug", handleProductBySlug)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthRequired(db, cfg))
	protected.Use(middleware.CSRF(cfg))
	{
		protected.GET("/csrf-token", handleCSRFToken)
		protected.GET("/products/search", handleProductSearch)

		protected.GET("/external/search", middleware.SearchRateLimit(cfg), handleExternalSearch)
		protected.POST("/external/import", handleExternalImport)

		protected.GET("/binders", handleBinders)
		protected.POST("/binders", handleCreateBinder)
		protected.GET("/binders/:id", handleBinderDetail)
		protected.POST("/binders/:id/settings", handleUpdateBinder)
		protected.DELETE("/binders/:id", handleDeleteBinder)
		protected.GET("/binders/:id/cards", handleBinderCards)
		protected.POST("/binders/:id/cards/add", handleAddBinderCards)
		protected.POST("/binders/:id/cards/remove", handleRemoveBinderCard)

		protected.GET("/cart", handleCart)
		protected.POST("/cart", handleAddToCart)
		protected.PUT("/cart/:id", handleUpdateCartItem)
		protected.DELETE("/cart/:id", handleDeleteCartItem)
		protected.POST("/checkout", handleCheckout)

		protected.GET("/orders", handleMyOrders)
		protected.GET("/orders/:id", handleMyOrder)

		protected.GET("/tickets", handleMyTickets)
		protected.POST("/tickets", handleCreateTicket)
		protected.POST("/messages", handleSendMessage)
	}

	// Reorder and toggle fire once per drag or click, so they hand out the
	// next CSRF token with each response.
	renewing := api.Group("/binders/:id/cards")
	renewing.Use(middleware.AuthRequired(db, cfg))
	renewing.Use(middleware.CSRFWithRenewal(cfg))
	{
		renewing.POST("/reorder", handleReorderBinderCards)
		renewing.POST("/toggle", handleToggleBinderCard)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(db, cfg))
	admin.Use(middleware.CSRF(cfg))
	{
		admin.GET("/dashboard", handleAdminDashboard)

		admin.GET("/inventory", handleAdminInventory)
		admin.POST("/inventory", handleAdminCreateProduct)
		admin.PUT("/inventory/:id", handleAdminUpdateProduct)

		admin.GET("/orders", handleAdminOrders)
		admin.GET("/orders/:id", handleAdminOrder)
		admin.POST("/orders/:id/status", handleAdminUpdateOrderStatus)

		admin.GET("/coupons", handleAdminCoupons)
		admin.POST("/coupons", handleAdminCreateCoupon)
		admin.PUT("/coupons/:id", handleAdminUpdateCoupon)
		admin.POST("/coupons/:id/toggle", handleAdminToggleCoupon)
		admin.DELETE("/coupons/:id", handleAdminDeleteCoupon)

		admin.GET("/promotions", handleAdminPromotions)
		admin.POST("/promotions", handleAdminCreatePromotion)
		admin.PUT("/promotions/:id", handleAdminUpdatePromotion)
		admin.POST("/promotions/:id/toggle", handleAdminTogglePromotion)
		admin.DELETE("/promotions/:id", handleAdminDeletePromotion)

		admin.GET("/stock-orders", handleAdminStockOrders)
		admin.POST("/stock-orders", handleAdminCreateStockOrder)
		admin.GET("/stock-orders/:id", handleAdminStockOrder)

		admin.GET("/reports/sales", handleAdminSalesReport)

		admin.GET("/wallet", handleAdminWallet)
		admin.POST("/wallet/credit", walletHandler(models.WalletCredit))
		admin.POST("/wallet/debit", walletHandler(models.WalletDebit))

		admin.GET("/tickets", handleAdminTickets)
		admin.GET("/tickets/:id", handleAdminTicket)
		admin.POST("/tickets/:id/status", handleAdminUpdateTicket)
		admin.DELETE("/tickets/:id", handleAdminDeleteTicket)

		admin.GET("/messages", handleAdminMessages)
		admin.POST("/messages/:id/read", handleAdminReadMessage)
		admin.DELETE("/messages/:id", handleAdminDeleteMessage)

		admin.GET("/boxes", handleAdminBoxes)
		admin.POST("/boxes", handleAdminCreateBox)
		admin.PUT("/boxes/:id", handleAdminUpdateBox)
		admin.DELETE("/boxes/:id", handleAdminDeleteBox)

		admin.GET("/users", handleAdminUsers)
		admin.POST("/users/:id/toggle-admin", handleToggleUserAdmin)
	}
}

func addServiceContext(cfg *config.Config, services Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", cfg)
		c.Set("catalog", services.Catalog)
		c.Set("card_search", services.CardSearch)
		c.Set("email_service", services.Email)
		c.Set("metrics", services.Metrics)
		c.Next()
	}
}

func handleHealth(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	if err := db.PingContext(c.Request.Context()); err != nil {
		logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError writes the JSON error for err. Internal failures are logged
// with action and never leak their cause to the client.
func respondError(c *gin.Context, err error, action string) {
	var outOfStock *database.OutOfStockError

	_, classified := apperr.As(err)
	switch {
	case classified:
	case errors.As(err, &outOfStock):
		err = apperr.ConflictErr(outOfStock.Error())
	case errors.Is(err, database.ErrNotFound):
		err = apperr.NotFoundErr(capitalize(err.Error()))
	case errors.Is(err, database.ErrDuplicate):
		err = apperr.ConflictErr(capitalize(err.Error()))
	case errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrCouponRejected),
		errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrInvalid):
		err = apperr.ValidationErr(capitalize(err.Error()))
	}

	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"action", action,
			"path", c.Request.URL.Path,
			"error", err)
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}

	c.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		logger.Debug("Rejected request body", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}
