package domain

import "time"

// Generation is one draw attempt kept in the history table.
type Generation struct {
	ID         string
	Origin     string
	SenderID   string
	Trigger    string
	Prompt     string
	Provider   string
	Model      string
	ImageCount int
	Error      string
	CreatedAt  time.Time
}
