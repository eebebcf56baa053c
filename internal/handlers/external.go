package handlers

import (
	"net/http"
	"strings"

	"cardvault/internal/cardsearch"
	"cardvault/internal/catalog"

	"github.com/gin-gonic/gin"
)

type importRequest struct {
	Cards    []catalog.Candidate `json:"cards" binding:"required"`
	BinderID *int                `json:"binder_id"`
}

func handleExternalSearch(c *gin.Context) {
	client := c.MustGet("card_search").(*cardsearch.Client)

	source := strings.ToLower(strings.TrimSpace(c.DefaultQuery("source", string(catalog.DefaultSource))))
	result := client.Search(c.Request.Context(), source, c.Query("q"), queryInt(c, "page", 1))

	c.JSON(http.StatusOK, result)
}

func handleExternalImport(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	svc := c.MustGet("catalog").(*catalog.Service)

	var req importRequest
	if !bindJSON(c, &req) {
		return
	}
	// A zero or negative binder id means no binder was targeted.
	binderID := req.BinderID
	if binderID != nil && *binderID <= 0 {
		binderID = nil
	}

	result, err := svc.ImportCards(userID, req.Cards, binderID)
	if err != nil {
		respondError(c, err, "import cards")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"imported_ids":    result.ImportedIDs,
		"count":           result.Count,
		"added_to_binder": result.AddedToBinder,
	})
}
