// Package compliance stores framework assessment scores (SOC 2, ISO 27001,
// GDPR, ...) per organization. Each row is one assessment of one framework;
// the dashboard aggregates the latest row per framework.
package compliance

import (
	"errors"
	"math"
	"time"
)

// Score represents one compliance assessment for a framework.
type Score struct {
	ID              string    `json:"id"`
	OrganizationID  string    `json:"organizationId"`
	Framework       string    `json:"framework"`
	Score           int       `json:"score"`
	MaxScore        int       `json:"maxScore"`
	Gaps            []string  `json:"gaps"`
	Recommendations []string  `json:"recommendations"`
	AssessmentDate  time.Time `json:"assessmentDate"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Percentage returns the assessment as a 0-100 value. A zero MaxScore
// yields 0 rather than a division by zero.
func (s *Score) Percentage() float64 {
	if s.MaxScore == 0 {
		return 0
	}
	return float64(s.Score) / float64(s.MaxScore) * 100
}

// AveragePercentage computes the mean percentage across scores, rounded to
// the nearest integer. Returns 0 for an empty slice.
func AveragePercentage(scores []Score) int {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for i := range scores {
		sum += scores[i].Percentage()
	}
	return int(math.Round(sum / float64(len(scores))))
}

// Sentinel errors for compliance operations.
var (
	ErrNotFound = errors.New("compliance score not found")
)
