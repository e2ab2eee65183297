package getmatchhistory

import "scholarship-matcher/internal/models"

// Input asks for one page of history, or for a single result when
// ResultID is set.
type Input struct {
	ProfileID string `json:"profileId"`
	ResultID  string `json:"resultId,omitempty"`
	Page      int    `json:"page,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	Results []models.MatchResult `json:"results"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	Limit   int                  `json:"limit"`
	HasMore bool                 `json:"hasMore"`
}
