package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"cardvault/internal/database"
	"cardvault/internal/logger"

	"github.com/gin-gonic/gin"
)

type ticketRequest struct {
	Subject     string `json:"subject" binding:"required,max=200"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type messageRequest struct {
	Subject string `json:"subject" binding:"max=200"`
	Content string `json:"content" binding:"required"`
}

func handleMyTickets(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	tickets, err := database.GetUserTickets(db, userID)
	if err != nil {
		respondError(c, err, "load tickets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func handleCreateTicket(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	var req ticketRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject is required"})
		return
	}

	ticket, err := database.CreateTicket(db, userID, req.Subject, req.Description, strings.TrimSpace(req.Priority))
	if err != nil {
		respondError(c, err, "open ticket")
		return
	}

	logger.Info("Ticket opened", "user_id", userID, "ticket_id", ticket.ID, "priority", ticket.Priority)

	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

func handleSendMessage(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	var req messageRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	message, err := database.CreateMessage(db, userID, req.Subject, req.Content)
	if err != nil {
		respondError(c, err, "send message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}
