package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Category struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

type Product struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	SetCode    string    `json:"set_code" db:"set_code"`
	SetName    string    `json:"set_name" db:"set_name"`
	CategoryID *int      `json:"category_id" db:"category_id"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	Rarity     string    `json:"rarity" db:"rarity"`
	CardType   string    `json:"card_type" db:"card_type"`
	Language   string    `json:"language" db:"language"`
	IsFoil     bool      `json:"is_foil" db:"is_foil"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	Category   *Category `json:"category,omitempty"`
	Stocks     []Stock   `json:"stocks,omitempty"`
}

// Stock is one sellable condition of a product.
type Stock struct {
	ID        int     `json:"id" db:"id"`
	ProductID int     `json:"product_id" db:"product_id"`
	Condition string  `json:"condition" db:"condition"`
	Quantity  int     `json:"quantity" db:"quantity"`
	Price     float64 `json:"price" db:"price"`
}

type Binder struct {
	ID          int          `json:"id" db:"id"`
	UserID      int          `json:"user_id" db:"user_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	GridSize    string       `json:"grid_size" db:"grid_size"`
	CoverColor  string       `json:"cover_color" db:"cover_color"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	Cards       []BinderCard `json:"cards,omitempty"`
}

type BinderCard struct {
	ID          int       `json:"id" db:"id"`
	BinderID    int       `json:"binder_id" db:"binder_id"`
	ProductID   int       `json:"product_id" db:"product_id"`
	Position    int       `json:"position" db:"position"`
	IsCollected bool      `json:"is_collected" db:"is_collected"`
	AddedAt     time.Time `json:"added_at" db:"added_at"`
	Product     *Product  `json:"product,omitempty"`
}

type CartItem struct {
	ID        int      `json:"id" db:"id"`
	UserID    int      `json:"user_id" db:"user_id"`
	ProductID int      `json:"product_id" db:"product_id"`
	StockID   int      `json:"stock_id" db:"stock_id"`
	Quantity  int      `json:"quantity" db:"quantity"`
	Product   *Product `json:"product,omitempty"`
	Stock     *Stock   `json:"stock,omitempty"`
}

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var OrderStatuses = []string{OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCancelled}

// CompletedOrderStatuses count towards sales figures.
var CompletedOrderStatuses = []string{OrderPaid, OrderShipped, OrderDelivered}

func IsValidOrderStatus(status string) bool {
	return contains(OrderStatuses, status)
}

type Order struct {
	ID              int         `json:"id" db:"id"`
	Code            string      `json:"code" db:"code"`
	UserID          int         `json:"user_id" db:"user_id"`
	Status          string      `json:"status" db:"status"`
	Subtotal        float64     `json:"subtotal" db:"subtotal"`
	Discount        float64     `json:"discount" db:"discount"`
	Total           float64     `json:"total" db:"total"`
	CouponCode      string      `json:"coupon_code,omitempty" db:"coupon_code"`
	ShippingName    string      `json:"shipping_name" db:"shipping_name"`
	ShippingAddress string      `json:"shipping_address" db:"shipping_address"`
	PaymentMethod   string      `json:"payment_method" db:"payment_method"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID          int     `json:"id" db:"id"`
	OrderID     int     `json:"order_id" db:"order_id"`
	ProductID   int     `json:"product_id" db:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity" db:"quantity"`
	Price       float64 `json:"price" db:"price"`
}

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

type Coupon struct {
	ID            int        `json:"id" db:"id"`
	Code          string     `json:"code" db:"code"`
	DiscountType  string     `json:"discount_type" db:"discount_type"`
	DiscountValue float64    `json:"discount_value" db:"discount_value"`
	MinOrder      float64    `json:"min_order" db:"min_order"`
	MaxUses       int        `json:"max_uses" db:"max_uses"`
	Uses          int        `json:"uses" db:"uses"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

type Promotion struct {
	ID                 int        `json:"id" db:"id"`
	Name               string     `json:"name" db:"name"`
	Description        string     `json:"description" db:"description"`
	DiscountPercentage float64    `json:"discount_percentage" db:"discount_percentage"`
	CategoryID         *int       `json:"category_id,omitempty" db:"category_id"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	StartsAt           *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	EndsAt             *time.Time `json:"ends_at,omitempty" db:"ends_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

const (
	StockIn  = "stock_in"
	StockOut = "stock_out"
)

type StockOrder struct {
	ID        int              `json:"id" db:"id"`
	OrderType string           `json:"order_type" db:"order_type"`
	Reference string           `json:"reference" db:"reference"`
	Notes     string           `json:"notes" db:"notes"`
	Status    string           `json:"status" db:"status"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	Items     []StockOrderItem `json:"items,omitempty"`
}

type StockOrderItem struct {
	ID           int     `json:"id" db:"id"`
	StockOrderID int     `json:"stock_order_id" db:"stock_order_id"`
	ProductID    int     `json:"product_id" db:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity" db:"quantity"`
	Condition    string  `json:"condition" db:"condition"`
	CostPerItem  float64 `json:"cost_per_item" db:"cost_per_item"`
	Notes        string  `json:"notes" db:"notes"`
}

const (
	WalletCredit = "credit"
	WalletDebit  = "debit"
)

type WalletTransaction struct {
	ID              int       `json:"id" db:"id"`
	TransactionType string    `json:"transaction_type" db:"transaction_type"`
	Amount          float64   `json:"amount" db:"amount"`
	Description     string    `json:"description" db:"description"`
	Reference       string    `json:"reference" db:"reference"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

var TicketStatuses = []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}

var TicketPriorities = []string{"low", "normal", "high", "urgent"}

func IsValidTicketStatus(status string) bool {
	return contains(TicketStatuses, status)
}

func IsValidTicketPriority(priority string) bool {
	return contains(TicketPriorities, priority)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

type Ticket struct {
	ID          int       `json:"id" db:"id"`
	UserID      *int      `json:"user_id,omitempty" db:"user_id"`
	UserEmail   string    `json:"user_email,omitempty"`
	Subject     string    `json:"subject" db:"subject"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	Priority    string    `json:"priority" db:"priority"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Message struct {
	ID        int       `json:"id" db:"id"`
	UserID    *int      `json:"user_id,omitempty" db:"user_id"`
	UserEmail string    `json:"user_email,omitempty"`
	Subject   string    `json:"subject" db:"subject"`
	Content   string    `json:"content" db:"content"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Box is a sealed product (booster box, deck) sold outside the card catalog.
type Box struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CategoryID  *int      `json:"category_id,omitempty" db:"category_id"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CSRFToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    int       `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
