// Package assetgroup provides the asset group entity: a named set of
// assets graded from the union of its members' findings.
package assetgroup

import (
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/asset"
	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// AssetGroup represents a logical grouping of assets. No findings
// attach to a group directly: its risk level is a pure function of the
// current member assets' findings.
type AssetGroup struct {
	id          shared.ID
	name        string
	criticity   asset.Criticity
	riskLevel   risk.Level
	ownerID     *shared.ID
	description string
	assetIDs    []shared.ID
	categoryIDs []shared.ID
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new AssetGroup entity.
func New(name string, criticity asset.Criticity) (*AssetGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if !criticity.IsValid() {
		return nil, fmt.Errorf("%w: invalid criticity %q", shared.ErrValidation, criticity)
	}

	now := time.Now().UTC()
	return &AssetGroup{
		id:          shared.NewID(),
		name:        name,
		criticity:   criticity,
		riskLevel:   risk.DefaultLevel(),
		assetIDs:    make([]shared.ID, 0),
		categoryIDs: make([]shared.ID, 0),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute recreates an AssetGroup from persistence.
func Reconstitute(
	id shared.ID,
	name string,
	criticity asset.Criticity,
	riskLevel risk.Level,
	ownerID *shared.ID,
	description string,
	assetIDs []shared.ID,
	categoryIDs []shared.ID,
	createdAt, updatedAt time.Time,
) *AssetGroup {
	if assetIDs == nil {
		assetIDs = make([]shared.ID, 0)
	}
	if categoryIDs == nil {
		categoryIDs = make([]shared.ID, 0)
	}
	return &AssetGroup{
		id:          id,
		name:        name,
		criticity:   criticity,
		riskLevel:   riskLevel,
		ownerID:     ownerID,
		description: description,
		assetIDs:    assetIDs,
		categoryIDs: categoryIDs,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the group ID.
func (g *AssetGroup) ID() shared.ID {
	return g.id
}

// Name returns the group name.
func (g *AssetGroup) Name() string {
	return g.name
}

// Criticity returns the group criticity.
func (g *AssetGroup) Criticity() asset.Criticity {
	return g.criticity
}

// RiskLevel returns the cached risk level.
func (g *AssetGroup) RiskLevel() risk.Level {
	return g.riskLevel
}

// OwnerID returns the owner user ID.
func (g *AssetGroup) OwnerID() *shared.ID {
	return g.ownerID
}

// Description returns the group description.
func (g *AssetGroup) Description() string {
	return g.description
}

// AssetIDs returns the member asset IDs.
func (g *AssetGroup) AssetIDs() []shared.ID {
	result := make([]shared.ID, len(g.assetIDs))
	copy(result, g.assetIDs)
	return result
}

// CategoryIDs returns the assigned category tags.
func (g *AssetGroup) CategoryIDs() []shared.ID {
	result := make([]shared.ID, len(g.categoryIDs))
	copy(result, g.categoryIDs)
	return result
}

// CreatedAt returns the creation timestamp.
func (g *AssetGroup) CreatedAt() time.Time {
	return g.createdAt
}

// UpdatedAt returns the last update timestamp.
func (g *AssetGroup) UpdatedAt() time.Time {
	return g.updatedAt
}

// UpdateName updates the group name.
func (g *AssetGroup) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	g.name = name
	g.updatedAt = time.Now().UTC()
	return nil
}

// UpdateCriticity updates the group criticity.
func (g *AssetGroup) UpdateCriticity(criticity asset.Criticity) error {
	if !criticity.IsValid() {
		return fmt.Errorf("%w: invalid criticity %q", shared.ErrValidation, criticity)
	}
	g.criticity = criticity
	g.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the description.
func (g *AssetGroup) UpdateDescription(description string) {
	g.description = description
	g.updatedAt = time.Now().UTC()
}

// SetRiskLevel replaces the cached risk level.
func (g *AssetGroup) SetRiskLevel(level risk.Level) {
	g.riskLevel = level
	g.updatedAt = time.Now().UTC()
}

// SetCategoryIDs replaces the assigned category tags.
func (g *AssetGroup) SetCategoryIDs(ids []shared.ID) {
	if ids == nil {
		ids = make([]shared.ID, 0)
	}
	g.categoryIDs = ids
	g.updatedAt = time.Now().UTC()
}

// AddAsset adds a member asset. Adding an existing member is a no-op.
func (g *AssetGroup) AddAsset(id shared.ID) {
	for _, aid := range g.assetIDs {
		if aid.Equals(id) {
			return
		}
	}
	g.assetIDs = append(g.assetIDs, id)
	g.updatedAt = time.Now().UTC()
}

// RemoveAsset removes a member asset.
func (g *AssetGroup) RemoveAsset(id shared.ID) {
	for i, aid := range g.assetIDs {
		if aid.Equals(id) {
			g.assetIDs = append(g.assetIDs[:i], g.assetIDs[i+1:]...)
			g.updatedAt = time.Now().UTC()
			return
		}
	}
}

// HasAsset reports whether the asset is a member of the group.
func (g *AssetGroup) HasAsset(id shared.ID) bool {
	for _, aid := range g.assetIDs {
		if aid.Equals(id) {
			return true
		}
	}
	return false
}
