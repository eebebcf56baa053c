package database

import (
	"database/sql"
	"errors"
	"fmt"

	"cardvault/internal/models"
)

// ErrInsufficientStock is returned when a cart line would ask for more
// copies than the stock line holds.
var ErrInsufficientStock = errors.New("not enough stock available")

func GetCartItems(db *sql.DB, userID int) ([]models.CartItem, error) {
	return getCartItems(db, userID)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func getCartItems(q queryer, userID int) ([]models.CartItem, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.stock_id, ci.quantity,
		       s.id, s.product_id, s.condition, s.quantity, s.price,
		` + productColumns + `
		FROM cart_items ci
		INNER JOIN stocks s ON ci.stock_id = s.id
		INNER JOIN products p ON ci.product_id = p.id
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE ci.user_id = ?
		ORDER BY ci.id
	`

	rows, err := q.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		stock := &models.Stock{}
		product, err := scanProduct(prefixScanner{rows, []any{
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.StockID,
			&item.Quantity,
			&stock.ID,
			&stock.ProductID,
			&stock.Condition,
			&stock.Quantity,
			&stock.Price,
		}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		item.Product = product
		item.Stock = stock
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart: %w", err)
	}

	return items, nil
}

// AddToCart adds quantity copies of a stock line. Adding a line that is
// already in the cart increases its quantity.
func AddToCart(db *sql.DB, userID, stockID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		quantity = 1
	}

	stock, err := GetStock(db, stockID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{}
	err = db.QueryRow(`SELECT id, user_id, product_id, stock_id, quantity FROM cart_items WHERE user_id = ? AND stock_id = ?`,
		userID, stockID).Scan(&item.ID, &item.UserID, &item.ProductID, &item.StockID, &item.Quantity)

	switch {
	case err == sql.ErrNoRows:
		if quantity > stock.Quantity {
			return nil, ErrInsufficientStock
		}

		result, err := db.Exec(`INSERT INTO cart_items (user_id, product_id, stock_id, quantity) VALUES (?, ?, ?, ?)`,
			userID, stock.ProductID, stockID, quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get cart item ID: %w", err)
		}

		return &models.CartItem{
			ID:        int(id),
			UserID:    userID,
			ProductID: stock.ProductID,
			StockID:   stockID,
			Quantity:  quantity,
			Stock:     stock,
		}, nil

	case err != nil:
		return nil, fmt.Errorf("failed to query cart item: %w", err)
	}

	if item.Quantity+quantity > stock.Quantity {
		return nil, ErrInsufficientStock
	}

	item.Quantity += quantity
	if _, err := db.Exec(`UPDATE cart_items SET quantity = ? WHERE id = ?`, item.Quantity, item.ID); err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	item.Stock = stock

	return item, nil
}

// UpdateCartItem sets the quantity of the caller's cart line. A quantity of
// zero or less removes it.
func UpdateCartItem(db *sql.DB, userID, itemID, quantity int) error {
	if quantity <= 0 {
		return DeleteCartItem(db, userID, itemID)
	}

	var available int
	err := db.QueryRow(`
		SELECT s.quantity
		FROM cart_items ci
		INNER JOIN stocks s ON ci.stock_id = s.id
		WHERE ci.id = ? AND ci.user_id = ?
	`, itemID, userID).Scan(&available)
	if err != nil {
		if err == sql.ErrNoRows {
			return notFound("cart item")
		}
		return fmt.Errorf("failed to query cart item: %w", err)
	}

	if quantity > available {
		return ErrInsufficientStock
	}

	if _, err := db.Exec(`UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?`, quantity, itemID, userID); err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	return nil
}

func DeleteCartItem(db *sql.DB, userID, itemID int) error {
	result, err := db.Exec(`DELETE FROM cart_items WHERE id = ? AND user_id = ?`, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound("cart item")
	}

	return nil
}

func CartSubtotal(items []models.CartItem) float64 {
	var subtotal float64
	for _, item := range items {
		if item.Stock != nil {
			subtotal += item.Stock.Price * float64(item.Quantity)
		}
	}
	return subtotal
}
