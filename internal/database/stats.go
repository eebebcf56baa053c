package database

import (
	"database/sql"
	"fmt"
	"strings"

	"cardvault/internal/models"
)

type DashboardStats struct {
	TotalProducts  int            `json:"total_products"`
	TotalOrders    int            `json:"total_orders"`
	TotalCustomers int            `json:"total_customers"`
	TotalSales     float64        `json:"total_sales"`
	TotalStock     int            `json:"total_stock"`
	RecentOrders   []models.Order `json:"recent_orders"`
}

type SalesReport struct {
	TotalRevenue   float64        `json:"total_revenue"`
	TotalOrders    int            `json:"total_orders"`
	AvgOrderValue  float64        `json:"avg_order_value"`
	ItemsSold      int            `json:"items_sold"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
	RecentOrders   []models.Order `json:"recent_orders"`
}

func completedStatusFilter() (string, []any) {
	placeholders := make([]string, len(models.CompletedOrderStatuses))
	args := make([]any, len(models.CompletedOrderStatuses))
	for i, status := range models.CompletedOrderStatuses {
		placeholders[i] = "?"
		args[i] = status
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")", args
}

func GetDashboardStats(db *sql.DB) (*DashboardStats, error) {
	stats := &DashboardStats{}

	err := db.QueryRow("SELECT COUNT(*) FROM products").Scan(&stats.TotalProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to get product count: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&stats.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to get order count: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", models.RoleCustomer).Scan(&stats.TotalCustomers)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer count: %w", err)
	}

	completed, args := completedStatusFilter()
	err = db.QueryRow("SELECT COALESCE(SUM(total), 0) FROM orders WHERE "+completed, args...).Scan(&stats.TotalSales)
	if err != nil {
		return nil, fmt.Errorf("failed to get total sales: %w", err)
	}

	err = db.QueryRow("SELECT COALESCE(SUM(quantity), 0) FROM stocks").Scan(&stats.TotalStock)
	if err != nil {
		return nil, fmt.Errorf("failed to get total stock: %w", err)
	}

	stats.RecentOrders, err = GetRecentOrders(db, 10)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func GetSalesReport(db *sql.DB) (*SalesReport, error) {
	report := &SalesReport{OrdersByStatus: map[string]int{}}
	completed, args := completedStatusFilter()

	err := db.QueryRow("SELECT COALESCE(SUM(total), 0), COUNT(*) FROM orders WHERE "+completed, args...).
		Scan(&report.TotalRevenue, &report.TotalOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to get revenue: %w", err)
	}
	if report.TotalOrders > 0 {
		report.AvgOrderValue = report.TotalRevenue / float64(report.TotalOrders)
	}

	err = db.QueryRow(`
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		INNER JOIN orders o ON oi.order_id = o.id
		WHERE o.`+completed, args...).Scan(&report.ItemsSold)
	if err != nil {
		return nil, fmt.Errorf("failed to get items sold: %w", err)
	}

	rows, err := db.Query("SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to query order statuses: %w", err)
	}
	defer rows.Close()

	for _, status := range models.OrderStatuses {
		report.OrdersByStatus[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan order status: %w", err)
		}
		report.OrdersByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order statuses: %w", err)
	}
	rows.Close()

	report.RecentOrders, err = GetRecentOrders(db, 10)
	if err != nil {
		return nil, err
	}

	return report, nil
}
