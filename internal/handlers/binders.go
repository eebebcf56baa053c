package handlers

import (
	"database/sql"
	"net/http"

	"cardvault/internal/catalog"
	"cardvault/internal/database"

	"github.com/gin-gonic/gin"
)

type binderCardsRequest struct {
	ProductIDs []int `json:"product_ids" binding:"required"`
}

type binderCardRequest struct {
	CardID int `json:"card_id" binding:"required"`
}

type reorderRequest struct {
	Positions map[string]int `json:"positions" binding:"required"`
}

func handleBinders(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	binders, err := database.GetBinders(db, userID)
	if err != nil {
		respondError(c, err, "load binders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"binders": binders})
}

func handleCreateBinder(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	// An empty body creates a binder with the defaults.
	var settings catalog.BinderSettings
	if c.Request.ContentLength != 0 && !bindJSON(c, &settings) {
		return
	}

	binder, err := svc.CreateBinder(userID, settings)
	if err != nil {
		respondError(c, err, "create binder")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"binder": binder})
}

func handleBinderDetail(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	view, err := svc.GetBinder(userID, binderID)
	if err != nil {
		respondError(c, err, "load binder")
		return
	}

	c.JSON(http.StatusOK, gin.H{"binder": view})
}

func handleBinderCards(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	view, err := svc.GetBinder(userID, binderID)
	if err != nil {
		respondError(c, err, "load binder cards")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cards":           view.Cards,
		"card_count":      view.CardCount,
		"collected_count": view.CollectedCount,
	})
}

func handleUpdateBinder(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var settings catalog.BinderSettings
	if !bindJSON(c, &settings) {
		return
	}

	binder, err := svc.UpdateBinder(userID, binderID, settings)
	if err != nil {
		respondError(c, err, "update binder")
		return
	}

	c.JSON(http.StatusOK, gin.H{"binder": binder})
}

func handleDeleteBinder(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	if err := svc.DeleteBinder(userID, binderID); err != nil {
		respondError(c, err, "delete binder")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func handleAddBinderCards(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req binderCardsRequest
	if !bindJSON(c, &req) {
		return
	}

	placed, err := svc.AddProducts(userID, binderID, req.ProductIDs)
	if err != nil {
		respondError(c, err, "add cards")
		return
	}

	count, err := svc.CardCount(binderID)
	if err != nil {
		respondError(c, err, "add cards")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "added": placed, "card_count": count})
}

func handleRemoveBinderCard(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req binderCardRequest
	if !bindJSON(c, &req) {
		return
	}

	count, err := svc.RemoveCard(userID, binderID, req.CardID)
	if err != nil {
		respondError(c, err, "remove card")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "card_count": count})
}

func handleReorderBinderCards(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}

	positions, err := catalog.ParsePositions(req.Positions)
	if err != nil {
		respondError(c, err, "reorder cards")
		return
	}

	if err := svc.Reorder(userID, binderID, positions); err != nil {
		respondError(c, err, "reorder cards")
		return
	}

	c.JSON(http.StatusOK, withRenewedToken(c, gin.H{"success": true}))
}

func handleToggleBinderCard(c *gin.Context) {
	binderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req binderCardRequest
	if !bindJSON(c, &req) {
		return
	}

	collected, collectedCount, err := svc.ToggleCollected(userID, binderID, req.CardID)
	if err != nil {
		respondError(c, err, "toggle card")
		return
	}

	c.JSON(http.StatusOK, withRenewedToken(c, gin.H{
		"success":         true,
		"is_collected":    collected,
		"collected_count": collectedCount,
	}))
}

func withRenewedToken(c *gin.Context, body gin.H) gin.H {
	if token := c.GetString("new_csrf_token"); token != "" {
		body["csrf_token"] = token
	}
	return body
}
