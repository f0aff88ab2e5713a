package model

import "time"

// ObitRecord is a per-participant kill/death/suicide tally. Rows are created
// lazily on the first recorded event and default to zero tallies. The
// last-pointer fields are denormalized conveniences; deleting the referenced
// participant nulls only the pointer, never the history.
type ObitRecord struct {
	ParticipantID  int64      `json:"participantId" db:"participant_id"`
	Kills          int        `json:"kills"         db:"kills"`
	Deaths         int        `json:"deaths"        db:"deaths"`
	Suicides       int        `json:"suicides"      db:"suicides"`
	LastVictimID   *int64     `json:"lastVictimId"  db:"last_victim"`
	LastMurdererID *int64     `json:"lastMurdererId" db:"last_murderer"`
	LastKill       *time.Time `json:"lastKill"      db:"last_kill"`
	LastDeath      *time.Time `json:"lastDeath"     db:"last_death"`
}

// ObitStringType distinguishes the templated fragments an obituary message is
// assembled from.
type ObitStringType int

const (
	ObitKill    ObitStringType = 1 // the method of the kill, e.g. "eviscerated"
	ObitWeapon  ObitStringType = 2 // what it was done with
	ObitCloser  ObitStringType = 3 // a trailing flourish
	ObitSuicide ObitStringType = 4 // self-inflicted variants
)

// ObitString is one templated message fragment, keyed by (content, type).
type ObitString struct {
	Content     string         `json:"content"     db:"content"`
	Type        ObitStringType `json:"type"        db:"type"`
	SubmitterID int64          `json:"submitterId" db:"submitter"`
	DateAdded   time.Time      `json:"dateAdded"   db:"date_added"`
}

// ObitBoardRow is one row of the merged obituary view, with pointer fields
// resolved to display names.
type ObitBoardRow struct {
	Name         string     `json:"name"`
	Kills        int        `json:"kills"`
	Deaths       int        `json:"deaths"`
	Suicides     int        `json:"suicides"`
	LastVictim   *string    `json:"lastVictim"`
	LastKill     *time.Time `json:"lastKill"`
	LastMurderer *string    `json:"lastMurderer"`
	LastDeath    *time.Time `json:"lastDeath"`
}

// RankedTally is one entry of a kill/death/suicide ranking.
type RankedTally struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
