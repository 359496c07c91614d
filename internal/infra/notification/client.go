// Package notification provides clients for delivering alerts to the
// supported channels. Delivery failures are reported in the SendResult,
// not as errors: an unreachable channel is an expected condition.
package notification

import (
	"context"
	"fmt"

	"github.com/vulnwatchio/api/internal/config"
	"github.com/vulnwatchio/api/pkg/domain/event"
	"github.com/vulnwatchio/api/pkg/logger"
)

// Message represents an alert to deliver. Severity carries the rule
// severity label (Low, Medium, High).
type Message struct {
	Title    string
	Body     string
	Severity string
	Fields   map[string]string
	Asset    *AssetRef
}

// AssetRef identifies the asset an alert concerns. Channels that build
// structured payloads (TheHive) read the type, value and criticity.
type AssetRef struct {
	Type      string
	Value     string
	Criticity string
}

// SendResult represents the result of sending a notification.
type SendResult struct {
	Success   bool
	MessageID string // Provider-specific message ID
	Error     string
}

// Client defines the interface for notification providers.
type Client interface {
	// Send sends a notification message.
	Send(ctx context.Context, msg Message) (*SendResult, error)

	// TestConnection tests the notification configuration.
	TestConnection(ctx context.Context) (*SendResult, error)

	// Provider returns the provider name.
	Provider() string
}

// Provider represents a notification provider.
type Provider string

// Supported providers. The names match the rule target values.
const (
	ProviderEvent   Provider = "event"
	ProviderLogfile Provider = "logfile"
	ProviderEmail   Provider = "email"
	ProviderSlack   Provider = "slack"
	ProviderSplunk  Provider = "splunk"
	ProviderTheHive Provider = "thehive"
)

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// severityCaseLevel maps a rule severity label to the numeric level used
// by case-management payloads.
func severityCaseLevel(severity string) int {
	switch severity {
	case "Low":
		return 1
	case "Medium":
		return 2
	case "High":
		return 3
	default:
		return 2
	}
}

// criticityTLP maps an asset criticity to a TLP level.
func criticityTLP(criticity string) int {
	switch criticity {
	case "low":
		return 1
	case "medium":
		return 2
	case "high":
		return 3
	default:
		return 2
	}
}

// GetSeverityColor returns a hex color for the given rule severity.
func GetSeverityColor(severity string) string {
	switch severity {
	case "High":
		return "#dc2626" // Red
	case "Medium":
		return "#ca8a04" // Yellow
	case "Low":
		return "#2563eb" // Blue
	default:
		return "#6b7280" // Gray
	}
}

// ClientFactory creates notification clients for the configured
// channels. Clients are stateless; the factory builds them on demand.
type ClientFactory struct {
	cfg    *config.AlertingConfig
	events event.Repository
	logger *logger.Logger
}

// NewClientFactory creates a new ClientFactory.
func NewClientFactory(cfg *config.AlertingConfig, events event.Repository, log *logger.Logger) *ClientFactory {
	return &ClientFactory{cfg: cfg, events: events, logger: log}
}

// CreateClient creates a notification client for the provider.
func (f *ClientFactory) CreateClient(provider Provider) (Client, error) {
	switch provider {
	case ProviderEvent:
		return NewEventClient(f.events), nil
	case ProviderLogfile:
		return NewLogfileClient(f.logger), nil
	case ProviderEmail:
		return NewEmailClient(&f.cfg.SMTP)
	case ProviderSlack:
		return NewSlackClient(f.cfg.Slack.WebhookURL)
	case ProviderSplunk:
		return NewSplunkClient(&f.cfg.Splunk)
	case ProviderTheHive:
		return NewTheHiveClient(&f.cfg.TheHive)
	default:
		return nil, fmt.Errorf("unsupported notification provider: %s", provider)
	}
}
