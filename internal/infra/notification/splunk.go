package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vulnwatchio/api/internal/config"
)

// SplunkClient implements the Client interface for the Splunk HTTP
// Event Collector.
type SplunkClient struct {
	url        string
	token      string
	index      string
	httpClient *http.Client
}

// NewSplunkClient creates a new Splunk HEC client.
func NewSplunkClient(cfg *config.SplunkConfig) (*SplunkClient, error) {
	if cfg.HECURL == "" {
		return nil, fmt.Errorf("splunk HEC URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("splunk HEC token is required")
	}

	return &SplunkClient{
		url:   strings.TrimRight(cfg.HECURL, "/") + "/services/collector/event",
		token: cfg.Token,
		index: cfg.Index,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Provider returns the provider name.
func (c *SplunkClient) Provider() string {
	return string(ProviderSplunk)
}

type splunkEvent struct {
	Event      map[string]any `json:"event"`
	SourceType string         `json:"sourcetype"`
	Index      string         `json:"index,omitempty"`
	Time       int64          `json:"time"`
}

// Send forwards the alert to the Splunk HTTP Event Collector.
func (c *SplunkClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	fields := map[string]any{
		"title":    msg.Title,
		"body":     msg.Body,
		"severity": msg.Severity,
	}
	if msg.Asset != nil {
		fields["asset_value"] = msg.Asset.Value
		fields["asset_type"] = msg.Asset.Type
		fields["asset_criticity"] = msg.Asset.Criticity
	}
	for k, v := range msg.Fields {
		fields[strings.ToLower(k)] = v
	}

	payload, err := json.Marshal(splunkEvent{
		Event:      fields,
		SourceType: "vulnwatch:alert",
		Index:      c.index,
		Time:       time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal splunk event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Splunk "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("send request failed: %v", err),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("splunk returned status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	return &SendResult{Success: true}, nil
}

// TestConnection tests the HEC configuration.
func (c *SplunkClient) TestConnection(ctx context.Context) (*SendResult, error) {
	testMsg := Message{
		Title:    "VulnWatch Test Notification",
		Body:     "This is a test notification to verify your Splunk integration is working correctly.",
		Severity: "Low",
	}
	return c.Send(ctx, testMsg)
}
