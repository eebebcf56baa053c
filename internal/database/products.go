package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"
)

// Pagination is embedded in paged list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

func normalizePage(page, perPage, defaultPerPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// ProductListing is a catalog row with its aggregated stock figures.
type ProductListing struct {
	models.Product
	MinPrice      float64 `json:"min_price"`
	TotalQuantity int     `json:"total_quantity"`
}

type ProductFilter struct {
	Page         int
	PerPage      int
	CategorySlug string
	Query        string
}

type SetSummary struct {
	SetCode      string `json:"set_code"`
	SetName      string `json:"set_name"`
	ProductCount int    `json:"product_count"`
}

const productColumns = `
	p.id, p.name, COALESCE(p.slug, ''), p.set_code, p.set_name, p.category_id, p.image_url,
	p.rarity, p.card_type, p.language, p.is_foil, p.created_at,
	COALESCE(c.id, 0), COALESCE(c.name, ''), COALESCE(c.slug, '')
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, extra ...any) (*models.Product, error) {
	product := &models.Product{}
	category := &models.Category{}
	var categoryID sql.NullInt64

	dest := []any{
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.SetCode,
		&product.SetName,
		&categoryID,
		&product.ImageURL,
		&product.Rarity,
		&product.CardType,
		&product.Language,
		&product.IsFoil,
		&product.CreatedAt,
		&category.ID,
		&category.Name,
		&category.Slug,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if categoryID.Valid {
		id := int(categoryID.Int64)
		product.CategoryID = &id
		product.Category = category
	}

	return product, nil
}

func CreateProduct(db *sql.DB, product *models.Product) error {
	if product.Language == "" {
		product.Language = "EN"
	}

	query := `
		INSERT INTO products (name, slug, set_code, set_name, category_id, image_url, rarity, card_type, language, is_foil)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, product.Name, product.Slug, product.SetCode, product.SetName, product.CategoryID,
		product.ImageURL, product.Rarity, product.CardType, product.Language, product.IsFoil)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get product ID: %w", err)
	}

	product.ID = int(id)
	product.CreatedAt = time.Now()

	return nil
}

func UpdateProduct(db *sql.DB, product *models.Product) error {
	query := `
		UPDATE products
		SET name = ?, set_code = ?, set_name = ?, category_id = ?, image_url = ?,
		    rarity = ?, card_type = ?, language = ?, is_foil = ?
		WHERE id = ?
	`

	result, err := db.Exec(query, product.Name, product.SetCode, product.SetName, product.CategoryID, product.ImageURL,
		product.Rarity, product.CardType, product.Language, product.IsFoil, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("product")
	}

	return nil
}

func GetProduct(db *sql.DB, productID int) (*models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?
	`

	product, err := scanProduct(db.QueryRow(query, productID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return product, nil
}

// GetProductDetail loads a product with all of its stock lines.
func GetProductDetail(db *sql.DB, productID int) (*models.Product, error) {
	product, err := GetProduct(db, productID)
	if err != nil {
		return nil, err
	}

	product.Stocks, err = GetStocks(db, product.ID)
	if err != nil {
		return nil, err
	}

	return product, nil
}

func GetProductBySlug(db *sql.DB, slug string) (*models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.slug = ?
	`

	product, err := scanProduct(db.QueryRow(query, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	product.Stocks, err = GetStocks(db, product.ID)
	if err != nil {
		return nil, err
	}

	return product, nil
}

// FindProductByNameAndImage is the import dedup lookup: both fields must
// match exactly.
func FindProductByNameAndImage(db *sql.DB, name, imageURL string) (*models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.name = ? AND p.image_url = ?
		ORDER BY p.id
		LIMIT 1
	`

	product, err := scanProduct(db.QueryRow(query, name, imageURL))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return product, nil
}

func ProductSlugExists(db *sql.DB, slug string) (bool, error) {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM products WHERE slug = ?`, slug).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check product slug: %w", err)
	}
	return true, nil
}

func productWhere(categorySlug, query string) (string, []any) {
	var conditions []string
	var args []any

	if categorySlug != "" {
		conditions = append(conditions, "c.slug = ?")
		args = append(args, categorySlug)
	}
	if q := strings.TrimSpace(query); q != "" {
		conditions = append(conditions, "LOWER(p.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func ListProducts(db *sql.DB, filter ProductFilter) ([]ProductListing, Pagination, error) {
	page, perPage := normalizePage(filter.Page, filter.PerPage, 24)
	where, args := productWhere(filter.CategorySlug, filter.Query)

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		` + where
	if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + `,
		COALESCE((SELECT MIN(s.price) FROM stocks s WHERE s.product_id = p.id AND s.quantity > 0), 0),
		COALESCE((SELECT SUM(s.quantity) FROM stocks s WHERE s.product_id = p.id), 0)
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		` + where + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.Query(query, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	listings := []ProductListing{}
	for rows.Next() {
		var listing ProductListing
		product, err := scanProduct(rows, &listing.MinPrice, &listing.TotalQuantity)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan product: %w", err)
		}
		listing.Product = *product
		listings = append(listings, listing)
	}

	if err = rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("error iterating products: %w", err)
	}

	return listings, newPagination(page, perPage, total), nil
}

// SearchProducts backs the binder card picker: name order, fixed page size.
func SearchProducts(db *sql.DB, query, categorySlug string, page int) ([]models.Product, Pagination, error) {
	page, perPage := normalizePage(page, 20, 20)
	where, args := productWhere(categorySlug, query)

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		` + where
	if err := db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count products: %w", err)
	}

	sqlQuery := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		` + where + `
		ORDER BY p.name, p.id
		LIMIT ? OFFSET ?
	`

	rows, err := db.Query(sqlQuery, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err = rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("error iterating products: %w", err)
	}

	return products, newPagination(page, perPage, total), nil
}

func GetSets(db *sql.DB) ([]SetSummary, error) {
	query := `
		SELECT set_code, set_name, COUNT(*)
		FROM products
		WHERE set_name != ''
		GROUP BY set_code, set_name
		ORDER BY set_name
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sets: %w", err)
	}
	defer rows.Close()

	sets := []SetSummary{}
	for rows.Next() {
		var set SetSummary
		if err := rows.Scan(&set.SetCode, &set.SetName, &set.ProductCount); err != nil {
			return nil, fmt.Errorf("failed to scan set: %w", err)
		}
		sets = append(sets, set)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sets: %w", err)
	}

	return sets, nil
}

func CreateStock(db *sql.DB, productID int, condition string, quantity int, price float64) (*models.Stock, error) {
	if condition == "" {
		condition = "NM"
	}

	result, err := db.Exec(`INSERT INTO stocks (product_id, condition, quantity, price) VALUES (?, ?, ?, ?)`,
		productID, condition, quantity, price)
	if err != nil {
		return nil, fmt.Errorf("failed to create stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get stock ID: %w", err)
	}

	return &models.Stock{
		ID:        int(id),
		ProductID: productID,
		Condition: condition,
		Quantity:  quantity,
		Price:     price,
	}, nil
}

func GetStock(db *sql.DB, stockID int) (*models.Stock, error) {
	stock := &models.Stock{}
	err := db.QueryRow(`SELECT id, product_id, condition, quantity, price FROM stocks WHERE id = ?`, stockID).Scan(
		&stock.ID,
		&stock.ProductID,
		&stock.Condition,
		&stock.Quantity,
		&stock.Price,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("stock")
		}
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	return stock, nil
}

func GetStocks(db *sql.DB, productID int) ([]models.Stock, error) {
	rows, err := db.Query(`
		SELECT id, product_id, condition, quantity, price
		FROM stocks
		WHERE product_id = ?
		ORDER BY price, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := []models.Stock{}
	for rows.Next() {
		var stock models.Stock
		if err := rows.Scan(&stock.ID, &stock.ProductID, &stock.Condition, &stock.Quantity, &stock.Price); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}

	return stocks, nil
}
