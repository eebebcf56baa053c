package email

import (
	"testing"

	"cardvault/internal/config"
	"cardvault/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	return NewService(&config.Config{BaseURL: "https://shop.example", MailgunSenderName: "CardVault"})
}

func TestServiceDisabledWithoutCredentials(t *testing.T) {
	s := testService()
	assert.False(t, s.IsEnabled())

	err := s.SendWelcomeEmail(&models.User{Email: "a@example.com", Name: "Ann"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	var nilService *Service
	assert.False(t, nilService.IsEnabled())
}

func TestServiceEnabledWithCredentials(t *testing.T) {
	s := NewService(&config.Config{MailgunDomain: "mg.example", MailgunAPIKey: "key"})
	assert.True(t, s.IsEnabled())
}

func TestWelcomeTemplatesEscapeName(t *testing.T) {
	s := testService()
	user := &models.User{Email: "a@example.com", Name: "<b>Ann</b>"}

	htmlBody := s.generateWelcomeHTML(user)
	assert.Contains(t, htmlBody, "&lt;b&gt;Ann&lt;/b&gt;")
	assert.Contains(t, htmlBody, "https://shop.example/binders")
	assert.Contains(t, htmlBody, "width: 100%;")

	assert.Contains(t, s.generateWelcomeText(user), "Welcome <b>Ann</b>!")
}

func TestOrderTemplates(t *testing.T) {
	s := testService()
	user := &models.User{Email: "a@example.com", Name: "Ann"}
	order := &models.Order{
		ID:              7,
		Code:            "ORD-1A2B3C4D",
		Status:          models.OrderPending,
		Subtotal:        30,
		Discount:        3,
		Total:           27,
		CouponCode:      "TENOFF",
		ShippingName:    "Ann",
		ShippingAddress: "1 Main St",
		Items: []models.OrderItem{
			{ProductName: "Black Lotus", Quantity: 2, Price: 15},
		},
	}

	text := s.generateOrderText(user, order)
	assert.Contains(t, text, "Order ORD-1A2B3C4D is pending.")
	assert.Contains(t, text, "- Black Lotus x2  $30.00")
	assert.Contains(t, text, "Discount (TENOFF): -$3.00")
	assert.Contains(t, text, "Total: $27.00")
	assert.Contains(t, text, "https://shop.example/orders/7")

	htmlBody := s.generateOrderHTML(user, order)
	assert.Contains(t, htmlBody, "<td>Black Lotus</td><td>2</td><td>$30.00</td>")
	assert.Contains(t, htmlBody, "Total: $27.00")

	order.Discount = 0
	assert.NotContains(t, s.generateOrderText(user, order), "Discount")
}
