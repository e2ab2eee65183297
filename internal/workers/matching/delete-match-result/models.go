package deletematchresult

type Input struct {
	ProfileID string `json:"profileId"`
	ResultID  string `json:"resultId"`
}

type Output struct {
	ResultID string `json:"resultId"`
	Deleted  bool   `json:"deleted"`
}
