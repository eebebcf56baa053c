package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"
)

// StockOrderDetail is a stock movement with the summed cost of its lines.
type StockOrderDetail struct {
	models.StockOrder
	TotalCost float64 `json:"total_cost"`
}

// CreateStockOrder records a stock movement and applies it. stock_in adds
// to the (product, condition) line, creating it at price 0 when missing;
// stock_out subtracts and never goes below zero.
func CreateStockOrder(db *sql.DB, order *models.StockOrder) error {
	if order.OrderType != models.StockIn && order.OrderType != models.StockOut {
		return fmt.Errorf("%w stock order type %q", ErrInvalid, order.OrderType)
	}

	if strings.TrimSpace(order.Reference) == "" {
		prefix := "STK"
		if order.OrderType == models.StockOut {
			prefix = "OUT"
		}
		order.Reference = newReference(prefix)
	}
	order.Status = "completed"

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO stock_orders (order_type, reference, notes, status) VALUES (?, ?, ?, ?)`,
		order.OrderType, order.Reference, order.Notes, order.Status)
	if err != nil {
		return fmt.Errorf("failed to create stock order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get stock order ID: %w", err)
	}
	order.ID = int(orderID)
	order.CreatedAt = time.Now()

	for i := range order.Items {
		item := &order.Items[i]
		item.StockOrderID = order.ID
		if item.Condition == "" {
			item.Condition = "NM"
		}

		result, err := tx.Exec(`
			INSERT INTO stock_order_items (stock_order_id, product_id, quantity, condition, cost_per_item, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, order.ID, item.ProductID, item.Quantity, item.Condition, item.CostPerItem, item.Notes)
		if err != nil {
			return fmt.Errorf("failed to create stock order item: %w", err)
		}
		itemID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get stock order item ID: %w", err)
		}
		item.ID = int(itemID)

		if err := applyStockMovement(tx, order.OrderType, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stock order: %w", err)
	}

	return nil
}

func applyStockMovement(tx *sql.Tx, orderType string, item *models.StockOrderItem) error {
	var stockID int
	err := tx.QueryRow(`SELECT id FROM stocks WHERE product_id = ? AND condition = ? ORDER BY id LIMIT 1`,
		item.ProductID, item.Condition).Scan(&stockID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to query stock: %w", err)
	}
	missing := err == sql.ErrNoRows

	switch orderType {
	case models.StockIn:
		if missing {
			_, err = tx.Exec(`INSERT INTO stocks (product_id, condition, quantity, price) VALUES (?, ?, ?, 0)`,
				item.ProductID, item.Condition, item.Quantity)
		} else {
			_, err = tx.Exec(`UPDATE stocks SET quantity = quantity + ? WHERE id = ?`, item.Quantity, stockID)
		}
	case models.StockOut:
		if missing {
			return nil
		}
		_, err = tx.Exec(`UPDATE stocks SET quantity = MAX(quantity - ?, 0) WHERE id = ?`, item.Quantity, stockID)
	}
	if err != nil {
		return fmt.Errorf("failed to apply stock movement: %w", err)
	}

	return nil
}

func GetStockOrders(db *sql.DB, orderType string) ([]models.StockOrder, error) {
	rows, err := db.Query(`
		SELECT id, order_type, reference, notes, status, created_at
		FROM stock_orders
		WHERE order_type = ?
		ORDER BY created_at DESC, id DESC
	`, orderType)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock orders: %w", err)
	}
	defer rows.Close()

	orders := []models.StockOrder{}
	for rows.Next() {
		var order models.StockOrder
		if err := rows.Scan(&order.ID, &order.OrderType, &order.Reference, &order.Notes, &order.Status, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock orders: %w", err)
	}

	return orders, nil
}

func GetStockOrder(db *sql.DB, orderID int) (*StockOrderDetail, error) {
	detail := &StockOrderDetail{}
	err := db.QueryRow(`SELECT id, order_type, reference, notes, status, created_at FROM stock_orders WHERE id = ?`, orderID).Scan(
		&detail.ID,
		&detail.OrderType,
		&detail.Reference,
		&detail.Notes,
		&detail.Status,
		&detail.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("stock order")
		}
		return nil, fmt.Errorf("failed to query stock order: %w", err)
	}

	rows, err := db.Query(`
		SELECT soi.id, soi.stock_order_id, soi.product_id, p.name, soi.quantity, soi.condition, soi.cost_per_item, soi.notes
		FROM stock_order_items soi
		INNER JOIN products p ON soi.product_id = p.id
		WHERE soi.stock_order_id = ?
		ORDER BY soi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.StockOrderItem
		err := rows.Scan(
			&item.ID,
			&item.StockOrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.Condition,
			&item.CostPerItem,
			&item.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock order item: %w", err)
		}
		detail.TotalCost += item.CostPerItem * float64(item.Quantity)
		detail.Items = append(detail.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock order items: %w", err)
	}

	return detail, nil
}
