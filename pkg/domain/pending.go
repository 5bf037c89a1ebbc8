package domain

import "time"

// PendingDeletion waits for an admin to choose between deleting one alias
// of a preset or the whole preset.
type PendingDeletion struct {
	Trigger   string
	Aliases   []string
	ExpiresAt time.Time
}
