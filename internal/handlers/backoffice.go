package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"cardvault/internal/database"
	"cardvault/internal/logger"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
)

type walletRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description"`
}

type ticketStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Priority string `json:"priority"`
}

type boxRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"gte=0"`
	Quantity    *int    `json:"quantity"`
	ImageURL    string  `json:"image_url"`
	CategoryID  *int    `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

func (r boxRequest) box() *models.Box {
	quantity := 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	return &models.Box{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Price:       r.Price,
		Quantity:    quantity,
		ImageURL:    strings.TrimSpace(r.ImageURL),
		CategoryID:  r.CategoryID,
		IsActive:    boolOr(r.IsActive, true),
	}
}

func handleAdminWallet(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	wallet, err := database.GetWallet(db)
	if err != nil {
		respondError(c, err, "load wallet")
		return
	}

	c.JSON(http.StatusOK, wallet)
}

func walletHandler(transactionType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		db := c.MustGet("db").(*sql.DB)

		var req walletRequest
		if !bindJSON(c, &req) {
			return
		}

		tx, err := database.AddWalletTransaction(db, transactionType, req.Amount, req.Description)
		if err != nil {
			respondError(c, err, "record wallet transaction")
			return
		}

		logger.Info("Wallet transaction recorded",
			"user_id", c.MustGet("user_id").(int),
			"type", tx.TransactionType,
			"amount", tx.Amount,
			"reference", tx.Reference)

		c.JSON(http.StatusCreated, gin.H{"transaction": tx})
	}
}

func handleAdminTickets(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !models.IsValidTicketStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket status"})
		return
	}

	tickets, err := database.GetTickets(db, status)
	if err != nil {
		respondError(c, err, "load tickets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func handleAdminTicket(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	ticket, err := database.GetTicket(db, ticketID)
	if err != nil {
		respondError(c, err, "load ticket")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func handleAdminUpdateTicket(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	var req ticketStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	err := database.UpdateTicket(db, ticketID, strings.TrimSpace(req.Status), strings.TrimSpace(req.Priority))
	if err != nil {
		respondError(c, err, "update ticket")
		return
	}

	ticket, err := database.GetTicket(db, ticketID)
	if err != nil {
		respondError(c, err, "load ticket")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}

func handleAdminDeleteTicket(c *gin.Context) {
	ticketID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeleteTicket(db, ticketID); err != nil {
		respondError(c, err, "delete ticket")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleAdminMessages(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	messages, err := database.GetMessages(db)
	if err != nil {
		respondError(c, err, "load messages")
		return
	}
	unread, err := database.CountUnreadMessages(db)
	if err != nil {
		respondError(c, err, "load messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages, "unread": unread})
}

func handleAdminReadMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.MarkMessageRead(db, messageID); err != nil {
		respondError(c, err, "mark message read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleAdminDeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeleteMessage(db, messageID); err != nil {
		respondError(c, err, "delete message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleAdminBoxes(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	boxes, err := database.GetBoxes(db)
	if err != nil {
		respondError(c, err, "load boxes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"boxes": boxes})
}

func handleAdminCreateBox(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	var req boxRequest
	if !bindJSON(c, &req) {
		return
	}
	box := req.box()
	if box.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity cannot be negative"})
		return
	}

	if err := database.CreateBox(db, box); err != nil {
		respondError(c, err, "create box")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"box": box})
}

func handleAdminUpdateBox(c *gin.Context) {
	boxID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	var req boxRequest
	if !bindJSON(c, &req) {
		return
	}
	box := req.box()
	if box.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity cannot be negative"})
		return
	}
	box.ID = boxID

	if err := database.UpdateBox(db, box); err != nil {
		respondError(c, err, "update box")
		return
	}

	c.JSON(http.StatusOK, gin.H{"box": box})
}

func handleAdminDeleteBox(c *gin.Context) {
	boxID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	if err := database.DeleteBox(db, boxID); err != nil {
		respondError(c, err, "delete box")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
