package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackClient implements the Client interface for Slack notifications.
type SlackClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackClient creates a new Slack notification client.
func NewSlackClient(webhookURL string) (*SlackClient, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}

	return &SlackClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Provider returns the provider name.
func (c *SlackClient) Provider() string {
	return string(ProviderSlack)
}

type slackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send sends a notification message to Slack.
func (c *SlackClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	payload, err := json.Marshal(c.buildMessage(msg))
	if err != nil {
		return nil, fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("send request failed: %v", err),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	// Limit response body to 1MB
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("slack returned status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	return &SendResult{Success: true}, nil
}

// TestConnection tests the Slack webhook configuration.
func (c *SlackClient) TestConnection(ctx context.Context) (*SendResult, error) {
	testMsg := Message{
		Title:    "VulnWatch Test Notification",
		Body:     "This is a test notification to verify your Slack integration is working correctly.",
		Severity: "Low",
	}
	return c.Send(ctx, testMsg)
}

func (c *SlackClient) buildMessage(msg Message) slackMessage {
	fields := make([]slackField, 0, len(msg.Fields)+1)
	if msg.Asset != nil {
		fields = append(fields, slackField{
			Title: "Asset",
			Value: fmt.Sprintf("%s (%s)", msg.Asset.Value, msg.Asset.Type),
			Short: true,
		})
	}
	for title, value := range msg.Fields {
		fields = append(fields, slackField{Title: title, Value: value, Short: true})
	}

	return slackMessage{
		Text: msg.Title,
		Attachments: []slackAttachment{{
			Color:  GetSeverityColor(msg.Severity),
			Text:   msg.Body,
			Fields: fields,
		}},
	}
}
