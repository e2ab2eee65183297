package runscholarshipmatch

import "scholarship-matcher/internal/models"

type Input struct {
	ProfileID string `json:"profileId"`
	Locale    string `json:"locale,omitempty"`
	Email     string `json:"email,omitempty"` // digest recipient, optional
	RunKey    string `json:"-"`               // set from the job key
}

// Match statuses reported to the process.
const (
	StatusCompleted = "completed"
	StatusNoMatches = "no_matches"
)

type Output struct {
	MatchStatus      string                    `json:"matchStatus"`
	ResultID         string                    `json:"resultId,omitempty"`
	Matches          []models.ScholarshipMatch `json:"matches"`
	TotalMatched     int                       `json:"totalMatched"`
	ProcessingTimeMs int64                     `json:"processingTimeMs"`
	Message          string                    `json:"message,omitempty"`
}
