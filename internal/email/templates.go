package email

import (
	"fmt"
	"html"
	"strings"

	"cardvault/internal/models"
)

const htmlStyle = `
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
            background-color: #f4f2fa;
        }
        .container {
            background-color: white;
            padding: 40px;
            border-radius: 12px;
            box-shadow: 0 2px 10px rgba(0, 0, 0, 0.1);
        }
        .logo {
            font-size: 28px;
            font-weight: bold;
            color: #4b3b8f;
            text-align: center;
        }
        .cta-button {
            display: inline-block;
            background-color: #4b3b8f;
            color: white;
            padding: 12px 24px;
            text-decoration: none;
            border-radius: 6px;
        }
        table { width: 100%%; border-collapse: collapse; }
        td, th { padding: 8px; border-bottom: 1px solid #e9ecef; text-align: left; }
        .footer {
            margin-top: 40px;
            font-size: 14px;
            color: #6c757d;
            text-align: center;
        }
    </style>`

func (s *Service) generateWelcomeHTML(user *models.User) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Welcome to CardVault</title>`+htmlStyle+`
</head>
<body>
    <div class="container">
        <div class="logo">CardVault</div>
        <h2>Welcome %s!</h2>
        <p>Your account is ready. Browse singles from Magic, Pokémon and Yu-Gi-Oh!, or start a binder to track your collection.</p>
        <p style="text-align: center; margin: 30px 0;">
            <a href="%s/binders" class="cta-button">Open your binders</a>
        </p>
        <div class="footer">
            <p>This email was sent to %s.</p>
        </div>
    </div>
</body>
</html>`, html.EscapeString(user.Name), s.baseURL, html.EscapeString(user.Email))
}

func (s *Service) generateWelcomeText(user *models.User) string {
	return fmt.Sprintf(`Welcome %s!

Your account is ready. Browse singles from Magic, Pokémon and Yu-Gi-Oh!, or start a binder to track your collection:
%s/binders

---
This email was sent to %s.`, user.Name, s.baseURL, user.Email)
}

func (s *Service) generateOrderHTML(user *models.User, order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%d</td><td>$%.2f</td></tr>",
			html.EscapeString(item.ProductName), item.Quantity, item.Price*float64(item.Quantity))
	}

	discount := ""
	if order.Discount > 0 {
		discount = fmt.Sprintf("<p>Discount (%s): -$%.2f</p>", html.EscapeString(order.CouponCode), order.Discount)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Order %s</title>`+htmlStyle+`
</head>
<body>
    <div class="container">
        <div class="logo">CardVault</div>
        <h2>Thanks for your order, %s!</h2>
        <p>Order <strong>%s</strong> is %s.</p>
        <table>
            <tr><th>Card</th><th>Qty</th><th>Amount</th></tr>
            %s
        </table>
        <p>Subtotal: $%.2f</p>
        %s
        <p><strong>Total: $%.2f</strong></p>
        <p>Shipping to %s, %s</p>
        <p style="text-align: center; margin: 30px 0;">
            <a href="%s/orders/%d" class="cta-button">View order</a>
        </p>
    </div>
</body>
</html>`,
		order.Code,
		html.EscapeString(user.Name),
		order.Code, order.Status,
		rows.String(),
		order.Subtotal,
		discount,
		order.Total,
		html.EscapeString(order.ShippingName), html.EscapeString(order.ShippingAddress),
		s.baseURL, order.ID)
}

func (s *Service) generateOrderText(user *models.User, order *models.Order) string {
	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "- %s x%d  $%.2f\n", item.ProductName, item.Quantity, item.Price*float64(item.Quantity))
	}

	discount := ""
	if order.Discount > 0 {
		discount = fmt.Sprintf("Discount (%s): -$%.2f\n", order.CouponCode, order.Discount)
	}

	return fmt.Sprintf(`Thanks for your order, %s!

Order %s is %s.

%s
Subtotal: $%.2f
%sTotal: $%.2f

Shipping to %s, %s

View it at %s/orders/%d`,
		user.Name,
		order.Code, order.Status,
		lines.String(),
		order.Subtotal,
		discount, order.Total,
		order.ShippingName, order.ShippingAddress,
		s.baseURL, order.ID)
}
