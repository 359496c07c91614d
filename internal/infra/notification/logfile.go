package notification

import (
	"context"

	"github.com/vulnwatchio/api/pkg/logger"
)

// LogfileClient implements the Client interface by writing alerts to
// the application log.
type LogfileClient struct {
	logger *logger.Logger
}

// NewLogfileClient creates a new logfile client.
func NewLogfileClient(log *logger.Logger) *LogfileClient {
	return &LogfileClient{logger: log}
}

// Provider returns the provider name.
func (c *LogfileClient) Provider() string {
	return string(ProviderLogfile)
}

// Send writes the alert as a structured log entry.
func (c *LogfileClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	attrs := []any{
		"alert_title", msg.Title,
		"alert_severity", msg.Severity,
	}
	if msg.Asset != nil {
		attrs = append(attrs,
			"asset_value", msg.Asset.Value,
			"asset_type", msg.Asset.Type,
		)
	}
	for title, value := range msg.Fields {
		attrs = append(attrs, title, value)
	}

	c.logger.Warn(msg.Body, attrs...)
	return &SendResult{Success: true}, nil
}

// TestConnection always succeeds; the log is local.
func (c *LogfileClient) TestConnection(ctx context.Context) (*SendResult, error) {
	return &SendResult{Success: true}, nil
}
