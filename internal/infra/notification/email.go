package notification

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/vulnwatchio/api/internal/config"
)

// EmailClient implements the Client interface for email notifications
// via SMTP.
type EmailClient struct {
	config *config.SMTPConfig
}

// NewEmailClient creates a new email notification client.
func NewEmailClient(cfg *config.SMTPConfig) (*EmailClient, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("SMTP alerting is not configured")
	}
	return &EmailClient{config: cfg}, nil
}

// Provider returns the provider name.
func (c *EmailClient) Provider() string {
	return string(ProviderEmail)
}

// Send sends a notification email.
func (c *EmailClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	subject := msg.Title
	if msg.Severity != "" {
		subject = fmt.Sprintf("[%s] %s", strings.ToUpper(msg.Severity), msg.Title)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", c.config.FromName, c.config.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", c.config.ToEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(c.buildBody(msg))

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	var auth smtp.Auth
	if c.config.Username != "" {
		auth = smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
	}

	if err := smtp.SendMail(addr, auth, c.config.FromEmail, []string{c.config.ToEmail}, buf.Bytes()); err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("send email: %v", err),
		}, nil
	}

	return &SendResult{Success: true}, nil
}

// TestConnection tests the SMTP configuration.
func (c *EmailClient) TestConnection(ctx context.Context) (*SendResult, error) {
	testMsg := Message{
		Title:    "VulnWatch Test Notification",
		Body:     "This is a test notification to verify your email integration is working correctly.",
		Severity: "Low",
	}
	return c.Send(ctx, testMsg)
}

func (c *EmailClient) buildBody(msg Message) string {
	var sb strings.Builder
	sb.WriteString(msg.Body)
	sb.WriteString("\r\n")
	if msg.Asset != nil {
		fmt.Fprintf(&sb, "\r\nAsset: %s (%s, criticity %s)\r\n",
			msg.Asset.Value, msg.Asset.Type, msg.Asset.Criticity)
	}
	for title, value := range msg.Fields {
		fmt.Fprintf(&sb, "%s: %s\r\n", title, value)
	}
	return sb.String()
}
