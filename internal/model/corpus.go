package model

import "time"

// CorpusLine is one line of the append-only text corpus that feeds the
// external sentence generator. Source and author become nil when the
// referenced source or participant is pruned; the corpus never loses text
// because an identity went away.
type CorpusLine struct {
	ID        int64     `json:"id"        db:"line_id"`
	Line      string    `json:"line"      db:"line"`
	SourceID  *int64    `json:"sourceId"  db:"source"`
	AuthorID  *int64    `json:"authorId"  db:"author"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
