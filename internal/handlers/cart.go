package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"cardvault/internal/database"
	emailService "cardvault/internal/email"
	"cardvault/internal/logger"
	"cardvault/internal/metrics"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	StockID  int `json:"stock_id" binding:"required"`
	Quantity int `json:"quantity"`
}

type updateCartRequest struct {
	Quantity *int `json:"quantity"`
}

type checkoutRequest struct {
	ShippingName    string `json:"shipping_name" binding:"required"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	PaymentMethod   string `json:"payment_method"`
	CouponCode      string `json:"coupon_code"`
}

func handleCart(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	items, err := database.GetCartItems(db, userID)
	if err != nil {
		respondError(c, err, "load cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "subtotal": database.CartSubtotal(items)})
}

func handleAddToCart(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	var req addToCartRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive"})
		return
	}

	item, err := database.AddToCart(db, userID, req.StockID, req.Quantity)
	if err != nil {
		respondError(c, err, "add to cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

func handleUpdateCartItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	var req updateCartRequest
	if !bindJSON(c, &req) {
		return
	}

	// A missing quantity means one copy; an explicit zero removes the line.
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if err := database.UpdateCartItem(db, userID, itemID, quantity); err != nil {
		respondError(c, err, "update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleDeleteCartItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeleteCartItem(db, userID, itemID); err != nil {
		respondError(c, err, "remove cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleCheckout(c *gin.Context) {
	user := c.MustGet("user").(*models.User)
	db := c.MustGet("db").(*sql.DB)

	var req checkoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := database.Checkout(db, user.ID, database.CheckoutInput{
		ShippingName:    strings.TrimSpace(req.ShippingName),
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		CouponCode:      req.CouponCode,
	})
	if err != nil {
		respondError(c, err, "place order")
		return
	}

	c.MustGet("metrics").(metrics.Recorder).RecordOrderPlaced(order.Total)
	logger.Info("Order placed",
		"user_id", user.ID,
		"order_id", order.ID,
		"order_code", order.Code,
		"total", order.Total)

	if service, ok := c.MustGet("email_service").(*emailService.Service); ok && service.IsEnabled() {
		go func(u *models.User, o *models.Order) {
			if err := service.SendOrderConfirmation(u, o); err != nil {
				logger.Warn("Failed to send order confirmation",
					"email", u.Email,
					"order_id", o.ID,
					"error", err)
			}
		}(user, order)
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func handleMyOrders(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	orders, err := database.GetUserOrders(db, userID)
	if err != nil {
		respondError(c, err, "load orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func handleMyOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	order, err := database.GetOrder(db, orderID)
	if err != nil {
		respondError(c, err, "load order")
		return
	}
	// Another customer's order reads as missing.
	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}
