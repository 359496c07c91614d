// Package asset provides the asset entity: a tracked value (host,
// domain, URL, organisation...) subject to scanning and risk grading.
package asset

import (
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/risk"
	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Asset represents a tracked entity in the domain.
type Asset struct {
	id          shared.ID
	value       string
	name        string
	assetType   Type
	criticity   Criticity
	riskLevel   risk.Level
	ownerID     *shared.ID
	description string
	categoryIDs []shared.ID
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a new Asset entity. The asset value is its unique
// identity string (the IP, domain, URL...).
func New(value, name string, assetType Type, criticity Criticity) (*Asset, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: value is required", shared.ErrValidation)
	}
	if !assetType.IsValid() {
		return nil, fmt.Errorf("%w: invalid asset type %q", shared.ErrValidation, assetType)
	}
	if !criticity.IsValid() {
		return nil, fmt.Errorf("%w: invalid criticity %q", shared.ErrValidation, criticity)
	}
	if name == "" {
		name = value
	}

	now := time.Now().UTC()
	return &Asset{
		id:          shared.NewID(),
		value:       value,
		name:        name,
		assetType:   assetType,
		criticity:   criticity,
		riskLevel:   risk.DefaultLevel(),
		categoryIDs: make([]shared.ID, 0),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute recreates an Asset from persistence (used by repository).
func Reconstitute(
	id shared.ID,
	value string,
	name string,
	assetType Type,
	criticity Criticity,
	riskLevel risk.Level,
	ownerID *shared.ID,
	description string,
	categoryIDs []shared.ID,
	createdAt, updatedAt time.Time,
) *Asset {
	if categoryIDs == nil {
		categoryIDs = make([]shared.ID, 0)
	}
	return &Asset{
		id:          id,
		value:       value,
		name:        name,
		assetType:   assetType,
		criticity:   criticity,
		riskLevel:   riskLevel,
		ownerID:     ownerID,
		description: description,
		categoryIDs: categoryIDs,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// ID returns the asset ID.
func (a *Asset) ID() shared.ID {
	return a.id
}

// Value returns the asset identity value.
func (a *Asset) Value() string {
	return a.value
}

// Name returns the display name.
func (a *Asset) Name() string {
	return a.name
}

// Type returns the asset type.
func (a *Asset) Type() Type {
	return a.assetType
}

// Criticity returns the business criticity.
func (a *Asset) Criticity() Criticity {
	return a.criticity
}

// RiskLevel returns the cached risk level. Before any grade computation
// it holds the documented default (all zeros, grade "-").
func (a *Asset) RiskLevel() risk.Level {
	return a.riskLevel
}

// OwnerID returns the owner user ID.
func (a *Asset) OwnerID() *shared.ID {
	return a.ownerID
}

// Description returns the asset description.
func (a *Asset) Description() string {
	return a.description
}

// CategoryIDs returns the assigned category tags.
func (a *Asset) CategoryIDs() []shared.ID {
	result := make([]shared.ID, len(a.categoryIDs))
	copy(result, a.categoryIDs)
	return result
}

// CreatedAt returns the creation timestamp.
func (a *Asset) CreatedAt() time.Time {
	return a.createdAt
}

// UpdatedAt returns the last update timestamp.
func (a *Asset) UpdatedAt() time.Time {
	return a.updatedAt
}

// UpdateName updates the display name.
func (a *Asset) UpdateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	a.name = name
	a.updatedAt = time.Now().UTC()
	return nil
}

// UpdateCriticity updates the business criticity.
func (a *Asset) UpdateCriticity(criticity Criticity) error {
	if !criticity.IsValid() {
		return fmt.Errorf("%w: invalid criticity %q", shared.ErrValidation, criticity)
	}
	a.criticity = criticity
	a.updatedAt = time.Now().UTC()
	return nil
}

// UpdateDescription updates the description.
func (a *Asset) UpdateDescription(description string) {
	a.description = description
	a.updatedAt = time.Now().UTC()
}

// SetOwnerID sets the owner user ID.
func (a *Asset) SetOwnerID(ownerID *shared.ID) {
	a.ownerID = ownerID
	a.updatedAt = time.Now().UTC()
}

// SetRiskLevel replaces the cached risk level with a freshly computed
// one. Historical grade queries must never call this.
func (a *Asset) SetRiskLevel(level risk.Level) {
	a.riskLevel = level
	a.updatedAt = time.Now().UTC()
}

// SetCategoryIDs replaces the assigned category tags.
func (a *Asset) SetCategoryIDs(ids []shared.ID) {
	if ids == nil {
		ids = make([]shared.ID, 0)
	}
	a.categoryIDs = ids
	a.updatedAt = time.Now().UTC()
}

// HasCategory reports whether the given category tag is assigned.
func (a *Asset) HasCategory(id shared.ID) bool {
	for _, cid := range a.categoryIDs {
		if cid.Equals(id) {
			return true
		}
	}
	return false
}
