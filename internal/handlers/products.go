package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"cardvault/internal/database"

	"github.com/gin-gonic/gin"
)

func handleCategories(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	categories, err := database.GetCategories(db)
	if err != nil {
		respondError(c, err, "load categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func handleSets(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	sets, err := database.GetSets(db)
	if err != nil {
		respondError(c, err, "load sets")
		return
	}

	c.JSON(http.StatusOK, gin.H{"sets": sets})
}

func handleProducts(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	products, pagination, err := database.ListProducts(db, database.ProductFilter{
		Page:         queryInt(c, "page", 1),
		PerPage:      queryInt(c, "per_page", 0),
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Query:        strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		respondError(c, err, "load products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "pagination": pagination})
}

func handleProductDetail(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	db := c.MustGet("db").(*sql.DB)

	product, err := database.GetProductDetail(db, productID)
	if err != nil {
		respondError(c, err, "load product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

func handleProductBySlug(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	product, err := database.GetProductBySlug(db, c.Param("slug"))
	if err != nil {
		respondError(c, err, "load product")
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": product})
}

// handleProductSearch feeds the binder card picker.
func handleProductSearch(c *gin.Context) {
	db := c.MustGet("db").(*sql.DB)

	products, pagination, err := database.SearchProducts(db,
		strings.TrimSpace(c.Query("q")),
		strings.TrimSpace(c.Query("category")),
		queryInt(c, "page", 1))
	if err != nil {
		respondError(c, err, "search products")
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "pagination": pagination})
}
