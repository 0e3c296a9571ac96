package domain

type TurnRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	TopK      int    `json:"top_k"`
}

type TurnResult struct {
	SessionID string              `json:"session_id"`
	Answer    string              `json:"answer"`
	Prompt    string              `json:"prompt"`
	History   []ChatTurn          `json:"history"`
	Documents []RetrievedDocument `json:"documents"`
	Entities  []CatalogRecord     `json:"entities"`
	Searched  bool                `json:"searched"`
	Query     string              `json:"query,omitempty"`
}

type SearchRequest struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
	TopK      int    `json:"top_k"`
}
