package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Risk cache key prefixes and TTL. The postgres row remains the source
// of truth; this cache only serves hot grade reads.
const (
	assetRiskKeyPrefix = "risk:asset:"
	groupRiskKeyPrefix = "risk:group:"
	riskTTL            = 24 * time.Hour
)

// RiskCache caches computed risk levels keyed by entity ID. A cache
// miss is not an error condition; callers fall back to the store.
type RiskCache struct {
	client *Client
}

// NewRiskCache creates a new RiskCache.
func NewRiskCache(client *Client) *RiskCache {
	return &RiskCache{client: client}
}

// GetAsset returns the cached level for an asset, with found=false on miss.
func (c *RiskCache) GetAsset(ctx context.Context, id shared.ID) (risk.Level, bool, error) {
	return c.get(ctx, assetRiskKeyPrefix+id.String())
}

// SetAsset caches the level for an asset.
func (c *RiskCache) SetAsset(ctx context.Context, id shared.ID, level risk.Level) error {
	return c.set(ctx, assetRiskKeyPrefix+id.String(), level)
}

// GetGroup returns the cached level for an asset group.
func (c *RiskCache) GetGroup(ctx context.Context, id shared.ID) (risk.Level, bool, error) {
	return c.get(ctx, groupRiskKeyPrefix+id.String())
}

// SetGroup caches the level for an asset group.
func (c *RiskCache) SetGroup(ctx context.Context, id shared.ID, level risk.Level) error {
	return c.set(ctx, groupRiskKeyPrefix+id.String(), level)
}

// InvalidateAsset drops the cached level for an asset.
func (c *RiskCache) InvalidateAsset(ctx context.Context, id shared.ID) error {
	return c.client.Del(ctx, assetRiskKeyPrefix+id.String())
}

// InvalidateGroup drops the cached level for an asset group.
func (c *RiskCache) InvalidateGroup(ctx context.Context, id shared.ID) error {
	return c.client.Del(ctx, groupRiskKeyPrefix+id.String())
}

func (c *RiskCache) get(ctx context.Context, key string) (risk.Level, bool, error) {
	raw, err := c.client.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return risk.Level{}, false, nil
	}
	if err != nil {
		return risk.Level{}, false, err
	}

	var level risk.Level
	if err := json.Unmarshal([]byte(raw), &level); err != nil {
		return risk.Level{}, false, fmt.Errorf("failed to unmarshal cached risk level: %w", err)
	}
	return level, true, nil
}

func (c *RiskCache) set(ctx context.Context, key string, level risk.Level) error {
	data, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("failed to marshal risk level: %w", err)
	}
	return c.client.Set(ctx, key, string(data), riskTTL)
}
