package analytics

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

type Category string

const (
	CategoryDuplicate  Category = "duplicate"
	CategoryMissingTag Category = "missing_tag"
	CategoryOrphan     Category = "orphan"
	CategoryPattern    Category = "pattern"
)

// Anomaly is one detected problem in the asset database. AffectedAssets is
// truncated for display; Description carries the full counts.
type Anomaly struct {
	Severity       Severity `json:"severity"`
	Category       Category `json:"category"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	AffectedAssets []string `json:"affected_assets"`
	Suggestion     string   `json:"suggestion,omitempty"`
}

// DataQualityReport is the composite quality assessment: four 0-100
// sub-scores, an equal-weighted composite and a letter grade.
type DataQualityReport struct {
	Score        float64  `json:"score"`
	Grade        string   `json:"grade"`
	Completeness float64  `json:"completeness"`
	Consistency  float64  `json:"consistency"`
	Uniqueness   float64  `json:"uniqueness"`
	Validity     float64  `json:"validity"`
	Issues       []string `json:"issues"`
}

// ComputeGrade maps a composite score to its letter grade.
func ComputeGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Recommendation is one prioritized follow-up action.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
	Impact   string `json:"impact"`
}

// Result is the complete output of one analytics run, read-only once built.
type Result struct {
	RunID        uuid.UUID          `json:"run_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Anomalies    []Anomaly          `json:"anomalies"`
	DataQuality  *DataQualityReport `json:"data_quality"`
	Distribution map[string]any     `json:"distribution"`
	Predictions  map[string]any     `json:"predictions"`
	Summary      map[string]any     `json:"summary"`
}

func (r *Result) hasCategory(c Category) bool {
	for _, a := range r.Anomalies {
		if a.Category == c {
			return true
		}
	}
	return false
}
