package notification

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vulnwatchio/api/internal/config"
)

// TheHiveClient implements the Client interface for TheHive alerts.
// Every delivered message opens an alert carrying the rule severity as
// the case level, the asset criticity as the TLP, and the asset itself
// as the single artifact.
type TheHiveClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewTheHiveClient creates a new TheHive client.
func NewTheHiveClient(cfg *config.TheHiveConfig) (*TheHiveClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("thehive URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("thehive API key is required")
	}

	return &TheHiveClient{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Provider returns the provider name.
func (c *TheHiveClient) Provider() string {
	return string(ProviderTheHive)
}

type theHiveAlert struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    int               `json:"severity"`
	TLP         int               `json:"tlp"`
	Type        string            `json:"type"`
	Source      string            `json:"source"`
	SourceRef   string            `json:"sourceRef"`
	Artifacts   []theHiveArtifact `json:"artifacts,omitempty"`
}

type theHiveArtifact struct {
	DataType string `json:"dataType"`
	Data     string `json:"data"`
}

// Send opens an alert in TheHive.
func (c *TheHiveClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	alert := theHiveAlert{
		Title:       msg.Title,
		Description: msg.Body,
		Severity:    severityCaseLevel(msg.Severity),
		TLP:         2,
		Type:        "external",
		Source:      "vulnwatch",
		SourceRef:   sourceRef(),
	}
	if msg.Asset != nil {
		alert.TLP = criticityTLP(msg.Asset.Criticity)
		alert.Artifacts = []theHiveArtifact{{
			DataType: msg.Asset.Type,
			Data:     msg.Asset.Value,
		}}
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("marshal thehive alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/alert", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("send request failed: %v", err),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("thehive returned status %d: %s", resp.StatusCode, string(body)),
		}, nil
	}

	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &created)

	return &SendResult{Success: true, MessageID: created.ID}, nil
}

// TestConnection verifies the API is reachable with the configured key.
func (c *TheHiveClient) TestConnection(ctx context.Context) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/alert?range=0-1", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("send request failed: %v", err),
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &SendResult{
			Success: false,
			Error:   fmt.Sprintf("thehive returned status %d", resp.StatusCode),
		}, nil
	}
	return &SendResult{Success: true}, nil
}

const sourceRefCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// sourceRef returns a random 6-character alert reference.
func sourceRef() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	}
	for i, b := range buf {
		buf[i] = sourceRefCharset[int(b)%len(sourceRefCharset)]
	}
	return string(buf)
}
