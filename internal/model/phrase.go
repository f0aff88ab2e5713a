package model

import "time"

// PhraseTable names one of the independent canned-response collections.
// Each is its own table (prefixed chat_) with per-table phrase uniqueness.
type PhraseTable string

const (
	PhraseActivity   PhraseTable = "activity"   // "chat activity" descriptors
	PhraseBadCmd     PhraseTable = "badcmd"     // responses to malformed commands
	PhraseBerate     PhraseTable = "berate"     // insults on demand
	PhraseGreetings  PhraseTable = "greetings"  // channel-join greetings
	PhraseMentioned  PhraseTable = "mentioned"  // responses when the bot is named
	PhraseQuestioned PhraseTable = "questioned" // responses to direct questions
)

// PhraseTables lists every phrase collection, in table-name order.
var PhraseTables = []PhraseTable{
	PhraseActivity,
	PhraseBadCmd,
	PhraseBerate,
	PhraseGreetings,
	PhraseMentioned,
	PhraseQuestioned,
}

// Valid reports whether t names a known phrase table.
func (t PhraseTable) Valid() bool {
	switch t {
	case PhraseActivity, PhraseBadCmd, PhraseBerate, PhraseGreetings, PhraseMentioned, PhraseQuestioned:
		return true
	}
	return false
}

// ResponseKind classifies question responses and 8-ball answers.
type ResponseKind int

const (
	ResponsePositive ResponseKind = 1
	ResponseNegative ResponseKind = 2
	ResponseNeutral  ResponseKind = 3
)

// ParseResponseKind maps a sentiment name to its ResponseKind. The second
// return is false for unknown names.
func ParseResponseKind(name string) (ResponseKind, bool) {
	switch name {
	case "positive":
		return ResponsePositive, true
	case "negative":
		return ResponseNegative, true
	case "neutral":
		return ResponseNeutral, true
	}
	return 0, false
}

// Phrase is one canned response line. Action marks it as an emote.
// ResponseType is only meaningful for the questioned table (and is nil
// elsewhere).
type Phrase struct {
	Phrase       string        `json:"phrase"       db:"phrase"`
	Action       bool          `json:"action"       db:"action"`
	ResponseType *ResponseKind `json:"responseType" db:"response_type"`
	SubmitterID  int64         `json:"submitterId"  db:"submitter"`
	DateAdded    time.Time     `json:"dateAdded"    db:"date_added"`
}

// EightBallResponse is one magic-8-ball answer. ExpectsAction is a tri-state:
// nil means the answer fits either a spoken or acted question.
type EightBallResponse struct {
	Response      string       `json:"response"      db:"response"`
	Action        bool         `json:"action"        db:"action"`
	ResponseType  ResponseKind `json:"responseType"  db:"response_type"`
	ExpectsAction *bool        `json:"expectsAction" db:"expects_action"`
	SubmitterID   int64        `json:"submitterId"   db:"submitter"`
}
