// Package model defines the data structures used throughout the application.
package model

import "time"

// UnknownParticipantID is the reserved sentinel participant. Feature rows
// whose author or submitter is deleted are reassigned to it instead of being
// destroyed, so no quote, corpus line, or tally ever loses attribution
// integrity. The row is created at store initialization and cannot be removed.
const UnknownParticipantID int64 = 0

// User is a registered, durable identity. Users are created deliberately by
// an operator, never auto-created by message traffic, and persist until
// explicitly removed.
//
// CreationMetadata is opaque provenance describing how the identity was
// established (e.g. which protocol event prompted the link). It is stored as
// a JSON blob and never interpreted by the store itself.
type User struct {
	ID               int64          `json:"id"               db:"user_id"`
	Name             string         `json:"name"             db:"name"`
	CreatedAt        time.Time      `json:"createdAt"        db:"created_at"`
	CreationFlags    int64          `json:"creationFlags"    db:"creation_flags"`
	CreationMetadata map[string]any `json:"creationMetadata" db:"creation_metadata"`
	Comment          string         `json:"comment"          db:"comment"`
}

// Alias is an alternate name bound to a User. A user may hold many aliases;
// each is independently case-sensitive or not. Aliases are owned by their
// user and are destroyed with it.
type Alias struct {
	UserID           int64          `json:"userId"           db:"user_id"`
	Name             string         `json:"name"             db:"name"`
	CaseSensitive    bool           `json:"caseSensitive"    db:"case_sensitive"`
	CreatedAt        time.Time      `json:"createdAt"        db:"created_at"`
	CreationFlags    int64          `json:"creationFlags"    db:"creation_flags"`
	CreationMetadata map[string]any `json:"creationMetadata" db:"creation_metadata"`
	Comment          string         `json:"comment"          db:"comment"`
}

// Participant is a name actually observed in a chat source. Two names
// differing only by case collide to one participant. Participants are the
// attribution key for every feature table: at write time the only thing a
// feature ever knows is a display name seen in the wild.
//
// UserID is nil for "anonymous" participants that have never been linked to
// a registered user.
type Participant struct {
	ID     int64  `json:"id"     db:"participant_id"`
	Name   string `json:"name"   db:"name"`
	UserID *int64 `json:"userId" db:"user_id"`
}

// Linked reports whether the participant is bound to a registered user.
func (p *Participant) Linked() bool {
	return p.UserID != nil
}

// NameEntry is one row of a name-union listing: a canonical name or alias
// together with its case-sensitivity flag. The command layer uses these for
// name matching.
type NameEntry struct {
	Name          string `json:"name"          db:"name"`
	CaseSensitive bool   `json:"caseSensitive" db:"case_sensitive"`
}
