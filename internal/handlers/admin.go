package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"cardvault/internal/apperr"
	"cardvault/internal/catalog"
	"cardvault/internal/database"
	"cardvault/internal/logger"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	adminInventoryPerPage = 50
	dateLayout            = "2006-01-02"
)

type productRequest struct {
	Name       string  `json:"name" binding:"required"`
	SetCode    string  `json:"set_code"`
	SetName    string  `json:"set_name"`
	CategoryID *int    `json:"category_id"`
	ImageURL   string  `json:"image_url"`
	Rarity     string  `json:"rarity"`
	CardType   string  `json:"card_type"`
	Language   string  `json:"language"`
	IsFoil     bool    `json:"is_foil"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

func (r productRequest) product() *models.Product {
	return &models.Product{
		Name:       strings.TrimSpace(r.Name),
		SetCode:    strings.TrimSpace(r.SetCode),
		SetName:    strings.TrimSpace(r.SetName),
		CategoryID: r.CategoryID,
		ImageURL:   strings.TrimSpace(r.ImageURL),
		Rarity:     strings.TrimSpace(r.Rarity),
		CardType:   strings.TrimSpace(r.CardType),
		Language:   strings.ToUpper(strings.TrimSpace(r.Language)),
		IsFoil:     r.IsFoil,
	}
}

type couponRequest struct {
	Code          string  `json:"code" binding:"required"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value" binding:"required,gt=0"`
	MinOrder      float64 `json:"min_order" binding:"gte=0"`
	MaxUses       int     `json:"max_uses" binding:"gte=0"`
	IsActive      *bool   `json:"is_active"`
	ExpiresAt     string  `json:"expires_at"`
}

type promotionRequest struct {
	Name               string  `json:"name" binding:"required"`
	Description        string  `json:"description"`
	DiscountPercentage float64 `json:"discount_percentage" binding:"gt=0,lte=100"`
	CategoryID         *int    `json:"category_id"`
	IsActive           *bool   `json:"is_active"`
	StartsAt           string  `json:"starts_at"`
	EndsAt             string  `json:"ends_at"`
}

type stockOrderRequest struct {
	OrderType string `json:"order_type" binding:"required"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	Items     []struct {
		ProductID   int     `json:"product_id" binding:"required"`
		Quantity    int     `json:"quantity" binding:"required,gt=0"`
		Condition   string  `json:"condition"`
		CostPerItem float64 `json:"cost_per_item" binding:"gte=0"`
		Notes       string  `json:"notes"`
	} `json:"items" binding:"required,min=1,dive"`
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// parseDate reads an optional YYYY-MM-DD value.
func parseDate(value, field string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, apperr.ValidationErr(field + " must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func handleAdminDashboard(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	stats, err := database.GetDashboardStats(db)
	if err != nil {
		respondError(c, err, "load dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func handleAdminInventory(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	products, pagination, err := database.ListProducts(db, database.ProductFilter{
		Page:         queryInt(c, "page", 1),
		PerPage:      adminInventoryPerPage,
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Query:        strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		respondError(c, err, "load inventory")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "pagination": pagination})
}

func handleAdminCreateProduct(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Price < 0 || req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price and quantity cannot be negative"})
		return
	}

	product := req.product()
	if err := svc.CreateProduct(product); err != nil {
		respondError(c, err, "create product")
		return
	}

	stock, err := database.CreateStock(db, product.ID, "NM", req.Quantity, req.Price)
	if err != nil {
		respondError(c, err, "create stock")
		return
	}
	product.Stocks = []models.Stock{*stock}

	logger.Info("Product created",
		"user_id", c.MustGet("user_id").(int),
		"product_id", product.ID,
		"slug", product.Slug)

	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func handleAdminUpdateProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	var req productRequest
	if !bindJSON(c, &req) {
		return
	}

	product := req.product()
	product.ID = productID
	if product.Language == "" {
		product.Language = "EN"
	}

	if err := database.UpdateProduct(db, product); err != nil {
		respondError(c, err, "update product")
		return
	}

	updated, err := database.GetProductDetail(db, productID)
	if err != nil {
		respondError(c, err, "load product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": updated})
}

func handleAdminOrders(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !models.IsValidOrderStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown order status"})
		return
	}

	orders, pagination, err := database.ListOrders(db, status, queryInt(c, "page", 1))
	if err != nil {
		respondError(c, err, "load orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": pagination})
}

func handleAdminOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	order, err := database.GetOrder(db, orderID)
	if err != nil {
		respondError(c, err, "load order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

func handleAdminUpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	var req orderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := database.UpdateOrderStatus(db, orderID, strings.TrimSpace(req.Status)); err != nil {
		respondError(c, err, "update order status")
		return
	}

	logger.Info("Order status updated",
		"user_id", c.MustGet("user_id").(int),
		"order_id", orderID,
		"status", req.Status)

	c.JSON(http.StatusOK, gin.H{"success": true, "status": req.Status})
}

func couponFromRequest(c *gin.Context) (*models.Coupon, bool) {
	var req couponRequest
	if !bindJSON(c, &req) {
		return nil, false
	}

	expiresAt, err := parseDate(req.ExpiresAt, "Expiry")
	if err != nil {
		respondError(c, err, "save coupon")
		return nil, false
	}

	discountType := strings.TrimSpace(req.DiscountType)
	if discountType != "" && discountType != models.DiscountPercentage && discountType != models.DiscountFixed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Discount type must be percentage or fixed"})
		return nil, false
	}
	if discountType != models.DiscountFixed && req.DiscountValue > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Percentage discount cannot exceed 100"})
		return nil, false
	}

	return &models.Coupon{
		Code:          req.Code,
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		MinOrder:      req.MinOrder,
		MaxUses:       req.MaxUses,
		IsActive:      boolOr(req.IsActive, true),
		ExpiresAt:     expiresAt,
	}, true
}

func handleAdminCoupons(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	coupons, err := database.GetCoupons(db)
	if err != nil {
		respondError(c, err, "load coupons")
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}

func handleAdminCreateCoupon(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	coupon, ok := couponFromRequest(c)
	if !ok {
		return
	}

	if err := database.CreateCoupon(db, coupon); err != nil {
		respondError(c, err, "create coupon")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

func handleAdminUpdateCoupon(c *gin.Context) {
	couponID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	coupon, ok := couponFromRequest(c)
	if !ok {
		return
	}
	coupon.ID = couponID

	if err := database.UpdateCoupon(db, coupon); err != nil {
		respondError(c, err, "update coupon")
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupon": coupon})
}

func handleAdminToggleCoupon(c *gin.Context) {
	couponID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	active, err := database.ToggleCoupon(db, couponID)
	if err != nil {
		respondError(c, err, "toggle coupon")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "is_active": active})
}

func handleAdminDeleteCoupon(c *gin.Context) {
	couponID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeleteCoupon(db, couponID); err != nil {
		respondError(c, err, "delete coupon")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func promotionFromRequest(c *gin.Context) (*models.Promotion, bool) {
	var req promotionRequest
	if !bindJSON(c, &req) {
		return nil, false
	}

	startsAt, err := parseDate(req.StartsAt, "Start date")
	if err != nil {
		respondError(c, err, "save promotion")
		return nil, false
	}
	endsAt, err := parseDate(req.EndsAt, "End date")
	if err != nil {
		respondError(c, err, "save promotion")
		return nil, false
	}
	if startsAt != nil && endsAt != nil && endsAt.Before(*startsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must not be before start date"})
		return nil, false
	}

	return &models.Promotion{
		Name:               strings.TrimSpace(req.Name),
		Description:        strings.TrimSpace(req.Description),
		DiscountPercentage: req.DiscountPercentage,
		CategoryID:         req.CategoryID,
		IsActive:           boolOr(req.IsActive, true),
		StartsAt:           startsAt,
		EndsAt:             endsAt,
	}, true
}

func handleAdminPromotions(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	promotions, err := database.GetPromotions(db)
	if err != nil {
		respondError(c, err, "load promotions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotions": promotions})
}

func handleAdminCreatePromotion(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	promotion, ok := promotionFromRequest(c)
	if !ok {
		return
	}

	if err := database.CreatePromotion(db, promotion); err != nil {
		respondError(c, err, "create promotion")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"promotion": promotion})
}

func handleAdminUpdatePromotion(c *gin.Context) {
	promotionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	promotion, ok := promotionFromRequest(c)
	if !ok {
		return
	}
	promotion.ID = promotionID

	if err := database.UpdatePromotion(db, promotion); err != nil {
		respondError(c, err, "update promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotion": promotion})
}

func handleAdminTogglePromotion(c *gin.Context) {
	promotionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	active, err := database.TogglePromotion(db, promotionID)
	if err != nil {
		respondError(c, err, "toggle promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "is_active": active})
}

func handleAdminDeletePromotion(c *gin.Context) {
	promotionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeletePromotion(db, promotionID); err != nil {
		respondError(c, err, "delete promotion")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleAdminStockOrders(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	orderType := strings.TrimSpace(c.Query("type"))
	if orderType != "" && orderType != models.StockIn && orderType != models.StockOut {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type must be stock_in or stock_out"})
		return
	}

	orders, err := database.GetStockOrders(db, orderType)
	if err != nil {
		respondError(c, err, "load stock orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock_orders": orders})
}

func handleAdminCreateStockOrder(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	var req stockOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order := &models.StockOrder{
		OrderType: strings.TrimSpace(req.OrderType),
		Reference: strings.TrimSpace(req.Reference),
		Notes:     strings.TrimSpace(req.Notes),
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.StockOrderItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Condition:   strings.ToUpper(strings.TrimSpace(item.Condition)),
			CostPerItem: item.CostPerItem,
			Notes:       strings.TrimSpace(item.Notes),
		})
	}

	if err := database.CreateStockOrder(db, order); err != nil {
		respondError(c, err, "create stock order")
		return
	}

	logger.Info("Stock order recorded",
		"user_id", c.MustGet("user_id").(int),
		"stock_order_id", order.ID,
		"type", order.OrderType,
		"items", len(order.Items))

	c.JSON(http.StatusCreated, gin.H{"stock_order": order})
}

func handleAdminStockOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	order, err := database.GetStockOrder(db, orderID)
	if err != nil {
		respondError(c, err, "load stock order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock_order": order})
}

func handleAdminSalesReport(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	report, err := database.GetSalesReport(db)
	if err != nil {
		respondError(c, err, "load sales report")
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

func handleAdminUsers(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	users, err := database.GetAllUsersWithStats(db)
	if err != nil {
		respondError(c, err, "load users")
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

func handleToggleUserAdmin(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)
	user := c.MustGet("user").(*models.User)

	if userID == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot modify your own admin status"})
		return
	}

	role, err := database.ToggleUserAdmin(db, userID)
	if err != nil {
		respondError(c, err, "toggle admin status")
		return
	}

	logger.Info("User role changed",
		"user_id", user.ID,
		"target_user_id", userID,
		"role", role)

	c.JSON(http.StatusOK, gin.H{"success": true, "role": role})
}
