// Package risk implements severity-weighted risk grading for assets and
// asset groups. A grade summarizes a set of findings into a single letter
// from "A" (clean) to "F" (critical exposure); "-" means no data.
package risk

// Grade constants. GradeNone is returned when an entity has no findings
// at all; GradeUnknown is a defensive fallback that the ordered rule
// table should never reach.
const (
	GradeNone    = "-"
	GradeA       = "A"
	GradeB       = "B"
	GradeC       = "C"
	GradeD       = "D"
	GradeE       = "E"
	GradeF       = "F"
	GradeUnknown = "n/a"
)

// Level holds the per-severity finding tally and the derived grade for
// an asset or asset group. It is a derived cache: recomputable at any
// time from the finding store, never authoritative.
type Level struct {
	Info     int    `json:"info"`
	Low      int    `json:"low"`
	Medium   int    `json:"medium"`
	High     int    `json:"high"`
	Critical int    `json:"critical"`
	Total    int    `json:"total"`
	Grade    string `json:"grade"`
}

// DefaultLevel returns the documented pre-computation default: all
// counters zero and no grade.
func DefaultLevel() Level {
	return Level{Grade: GradeNone}
}

// IsZero reports whether the level carries no findings.
func (l Level) IsZero() bool {
	return l.Total == 0
}

// Add increments the tally for one finding of the given severity.
// Unrecognized severities count toward the total only.
func (l *Level) Add(severity string) {
	l.Total++
	switch severity {
	case "info":
		l.Info++
	case "low":
		l.Low++
	case "medium":
		l.Medium++
	case "high":
		l.High++
	case "critical":
		l.Critical++
	}
}

// Finalize derives the grade from the current tally. The rules are
// evaluated best-to-worst; the first match wins.
func (l *Level) Finalize() {
	l.Grade = gradeOf(*l)
}

// gradeOf applies the ordered grade rule table. One canonical table is
// used for both assets and asset groups: critical and info participate
// uniformly at every tier.
func gradeOf(l Level) string {
	switch {
	case l.Critical == 0 && l.High == 0 && l.Medium == 0 && l.Low == 0 && l.Info == 0:
		return GradeNone
	case l.Critical == 0 && l.High == 0 && l.Medium == 0 && l.Low == 0:
		return GradeA
	case l.Critical == 0 && l.High == 0 && l.Medium <= 1 && l.Low <= 5:
		return GradeB
	case l.Critical == 0 && l.High == 0 && l.Medium <= 5:
		return GradeC
	case l.Critical == 0 && l.High <= 1 && l.Medium <= 5:
		return GradeD
	case l.Critical == 0 && l.High <= 3:
		return GradeE
	case l.Critical >= 1 || l.High > 3:
		return GradeF
	}
	return GradeUnknown
}

// Base scores per grade and severity weights for the ranking score.
const (
	lowWeight    = 1
	mediumWeight = 3
	highWeight   = 10
)

var gradeBaseScores = map[string]int{
	GradeA: 100,
	GradeB: 200,
	GradeC: 300,
	GradeD: 400,
	GradeE: 500,
	GradeF: 600,
}

// Score maps a level to a numeric risk score used for ranking entities
// by severity. It is a grade base score plus a weighted penalty per
// low/medium/high finding; it is not meant for display as a grade.
func Score(l Level) int {
	score := gradeBaseScores[l.Grade]
	score += l.Low * lowWeight
	score += l.Medium * mediumWeight
	score += l.High * highWeight
	return score
}
