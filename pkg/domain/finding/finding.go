// Package finding provides the finding entity: a single detected issue
// on an asset, carrying a severity that feeds risk grading.
package finding

import (
	"fmt"
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Severity represents the finding severity level.
type Severity string

// Supported severities, ordered from least to most severe.
const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AllSeverities lists every supported severity.
var AllSeverities = []Severity{
	SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical,
}

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	for _, known := range AllSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Status represents the finding triage status.
type Status string

// Supported statuses.
const (
	StatusNew Status = "new"
	StatusAck Status = "ack"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	return s == StatusNew || s == StatusAck
}

// RiskInfo holds free-form scoring metadata attached to a finding.
// Absent numeric fields default to zero.
type RiskInfo struct {
	CVSSBaseScore float64  `json:"cvss_base_score,omitempty"`
	CVSSVector    string   `json:"cvss_vector,omitempty"`
	CWE           string   `json:"cwe,omitempty"`
	References    []string `json:"references,omitempty"`
}

// Finding represents a detected issue on exactly one asset. Findings
// are immutable once scored, except for status transitions (new -> ack)
// and comment edits.
type Finding struct {
	ID          shared.ID
	AssetID     shared.ID
	Title       string
	Description string
	Type        string
	Hash        string
	Solution    string
	Severity    Severity
	Status      Status
	RiskInfo    RiskInfo
	Tags        []string
	Comments    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a new Finding attached to an asset.
func New(assetID shared.ID, title string, severity Severity) (*Finding, error) {
	if assetID.IsZero() {
		return nil, fmt.Errorf("%w: asset id is required", shared.ErrValidation)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: invalid severity %q", shared.ErrValidation, severity)
	}

	now := time.Now().UTC()
	return &Finding{
		ID:        shared.NewID(),
		AssetID:   assetID,
		Title:     title,
		Severity:  severity,
		Status:    StatusNew,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Acknowledge transitions the finding from new to ack.
func (f *Finding) Acknowledge() error {
	if f.Status == StatusAck {
		return fmt.Errorf("%w: finding already acknowledged", shared.ErrConflict)
	}
	f.Status = StatusAck
	f.UpdatedAt = time.Now().UTC()
	return nil
}

// Reopen transitions the finding back to new.
func (f *Finding) Reopen() {
	f.Status = StatusNew
	f.UpdatedAt = time.Now().UTC()
}

// UpdateComments edits the finding comments. This is one of the two
// mutations allowed after scoring.
func (f *Finding) UpdateComments(comments string) {
	f.Comments = comments
	f.UpdatedAt = time.Now().UTC()
}
