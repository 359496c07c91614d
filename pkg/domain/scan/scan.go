// Package scan provides the minimal scan entity consumed by the rule
// engine. Scan orchestration itself lives outside this service: a scan
// produces findings and completes or fails.
package scan

import (
	"time"

	"github.com/vulnwatchio/api/pkg/domain/shared"
)

// Status represents the terminal state reported by the scan subsystem.
type Status string

// Reported scan statuses.
const (
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// Scan is the view of an external scan delivered with scan events.
type Scan struct {
	ID         shared.ID
	AssetID    shared.ID
	EngineName string
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
}
