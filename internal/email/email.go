package email

import (
	"context"
	"fmt"
	"time"

	"cardvault/internal/config"
	"cardvault/internal/logger"
	"cardvault/internal/models"

	"github.com/mailgun/mailgun-go/v5"
)

const sendTimeout = 10 * time.Second

type Service struct {
	client      mailgun.Mailgun
	domain      string
	senderEmail string
	senderName  string
	baseURL     string
	enabled     bool
}

func NewService(cfg *config.Config) *Service {
	enabled := cfg.MailgunDomain != "" && cfg.MailgunAPIKey != ""

	var client mailgun.Mailgun
	if enabled {
		client = mailgun.NewMailgun(cfg.MailgunAPIKey)
	}

	return &Service{
		client:      client,
		domain:      cfg.MailgunDomain,
		senderEmail: cfg.MailgunSenderEmail,
		senderName:  cfg.MailgunSenderName,
		baseURL:     cfg.BaseURL,
		enabled:     enabled,
	}
}

func (s *Service) IsEnabled() bool {
	return s != nil && s.enabled
}

func (s *Service) SendWelcomeEmail(user *models.User) error {
	subject := fmt.Sprintf("Welcome to CardVault, %s!", user.Name)
	return s.send(user.Email, subject, s.generateWelcomeText(user), s.generateWelcomeHTML(user))
}

// SendOrderConfirmation expects order.Items to be loaded.
func (s *Service) SendOrderConfirmation(user *models.User, order *models.Order) error {
	subject := fmt.Sprintf("Your CardVault order %s", order.Code)
	return s.send(user.Email, subject, s.generateOrderText(user, order), s.generateOrderHTML(user, order))
}

func (s *Service) send(to, subject, textBody, htmlBody string) error {
	if !s.IsEnabled() {
		return fmt.Errorf("email service is not configured")
	}

	message := mailgun.NewMessage(
		s.domain,
		fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail),
		subject,
		textBody,
		to,
	)
	message.SetHTML(htmlBody)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	resp, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}

	logger.Info("Email sent",
		"email", to,
		"subject", subject,
		"message_id", resp.ID)
	return nil
}
