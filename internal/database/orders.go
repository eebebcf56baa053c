package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardvault/internal/models"

	"github.com/google/uuid"
)

// ErrEmptyCart is returned by Checkout when the caller has nothing to buy.
var ErrEmptyCart = errors.New("cart is empty")

// OutOfStockError aborts a checkout when a stock line no longer covers the
// requested quantity.
type OutOfStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

type CheckoutInput struct {
	ShippingName    string
	ShippingAddress string
	PaymentMethod   string
	CouponCode      string
}

func newReference(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// Checkout turns the caller's cart into a pending order. Stock is
// decremented, the coupon use is counted and the cart is emptied in one
// transaction.
func Checkout(db *sql.DB, userID int, in CheckoutInput) (*models.Order, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	items, err := getCartItems(tx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := CartSubtotal(items)

	var discount float64
	var coupon *models.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		coupon, err = getCouponByCode(tx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown coupon code", ErrCouponRejected)
			}
			return nil, err
		}
		discount, err = CouponDiscount(coupon, subtotal, time.Now())
		if err != nil {
			return nil, err
		}
	}

	for _, item := range items {
		result, err := tx.Exec(`UPDATE stocks SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`,
			item.Quantity, item.StockID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return nil, &OutOfStockError{
				ProductName: item.Product.Name,
				Requested:   item.Quantity,
				Available:   item.Stock.Quantity,
			}
		}
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cod"
	}

	order := &models.Order{
		Code:            newReference("ORD"),
		UserID:          userID,
		Status:          models.OrderPending,
		Subtotal:        subtotal,
		Discount:        discount,
		Total:           subtotal - discount,
		ShippingName:    in.ShippingName,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   paymentMethod,
		CreatedAt:       time.Now(),
	}
	if coupon != nil {
		order.CouponCode = coupon.Code
	}

	result, err := tx.Exec(`
		INSERT INTO orders (code, user_id, status, subtotal, discount, total, coupon_code, shipping_name, shipping_address, payment_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.Code, order.UserID, order.Status, order.Subtotal, order.Discount, order.Total, order.CouponCode,
		order.ShippingName, order.ShippingAddress, order.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get order ID: %w", err)
	}
	order.ID = int(orderID)

	for _, item := range items {
		result, err := tx.Exec(`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`,
			order.ID, item.ProductID, item.Quantity, item.Stock.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		itemID, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to get order item ID: %w", err)
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:          int(itemID),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Stock.Price,
		})
	}

	if coupon != nil {
		if _, err := tx.Exec(`UPDATE coupons SET uses = uses + 1 WHERE id = ?`, coupon.ID); err != nil {
			return nil, fmt.Errorf("failed to count coupon use: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}

	return order, nil
}

const orderColumns = `id, code, user_id, status, subtotal, discount, total, coupon_code, shipping_name, shipping_address, payment_method, created_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(
		&order.ID,
		&order.Code,
		&order.UserID,
		&order.Status,
		&order.Subtotal,
		&order.Discount,
		&order.Total,
		&order.CouponCode,
		&order.ShippingName,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func queryOrders(db *sql.DB, query string, args ...any) ([]models.Order, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func GetUserOrders(db *sql.DB, userID int) ([]models.Order, error) {
	return queryOrders(db, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
}

func GetRecentOrders(db *sql.DB, limit int) ([]models.Order, error) {
	return queryOrders(db, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// ListOrders pages through all orders, newest first, optionally narrowed
// to one status.
func ListOrders(db *sql.DB, status string, page int) ([]models.Order, Pagination, error) {
	page, perPage := normalizePage(page, 20, 20)

	where := ""
	var args []any
	if status != "" {
		where = "WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count orders: %w", err)
	}

	orders, err := queryOrders(db, `SELECT `+orderColumns+` FROM orders `+where+
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, append(args, perPage, (page-1)*perPage)...)
	if err != nil {
		return nil, Pagination{}, err
	}

	return orders, newPagination(page, perPage, total), nil
}

func GetOrder(db *sql.DB, orderID int) (*models.Order, error) {
	order, err := scanOrder(db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound("order")
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := db.Query(`
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		INNER JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, nil
}

func UpdateOrderStatus(db *sql.DB, orderID int, status string) error {
	if !models.IsValidOrderStatus(status) {
		return fmt.Errorf("%w order status %q", ErrInvalid, status)
	}

	result, err := db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return requireAffected(result, "order")
}
