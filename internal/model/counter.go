package model

import "time"

// Counter is a named monotonic counter with last-trigger metadata. The
// trigger fields record who bumped it last and where, and are nulled (not
// cascaded) when the referenced participant disappears.
type Counter struct {
	Name          string     `json:"name"          db:"name"`
	Count         int64      `json:"count"         db:"count"`
	CreatedAt     time.Time  `json:"createdAt"     db:"created_at"`
	LastTriggered *time.Time `json:"lastTriggered" db:"last_triggered"`
	LastUserID    *int64     `json:"lastUserId"    db:"last_user"`
	LastChannel   *string    `json:"lastChannel"   db:"last_channel"`
}
