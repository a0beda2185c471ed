package domain

import "time"

type Attachment struct {
	ID          string
	CaseID      string
	FileName    string
	FilePath    string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
