package model

import "time"

// ContinuitySummary is the persisted outcome of the continuity gate.
type ContinuitySummary struct {
	Status      string  `json:"status"`
	Checked     int     `json:"checked"`
	Consistent  int     `json:"consistent"`
	PassRatio   float64 `json:"passRatio"`
	NeedsReview bool    `json:"needsReview"`
}

// ParsedFile is the per-file parse record cached between runs.
type ParsedFile struct {
	FileID       string              `json:"fileId"`
	FileName     string              `json:"fileName,omitempty"`
	FileHash     string              `json:"fileHash"`
	TemplateID   string              `json:"templateId"`
	BankID       string              `json:"bankId"`
	AccountID    string              `json:"accountId"`
	ParsedAt     time.Time           `json:"parsedAt"`
	HeaderFound  bool                `json:"headerFound"`
	Transactions []ParsedTransaction `json:"transactions"`
	Warnings     []ParseWarning      `json:"warnings"`
	Continuity   ContinuitySummary   `json:"continuity"`
}

// NeedsReview reports whether anything in the file asks for human attention.
func (f ParsedFile) NeedsReview() bool {
	return f.Continuity.NeedsReview || !f.HeaderFound
}
