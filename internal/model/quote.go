package model

import "time"

// QuoteStyle selects how a quote is presented when recited.
type QuoteStyle int

const (
	// StyleStandard formats lines like a typical IRC client, e.g. `<Foo> hello`.
	StyleStandard QuoteStyle = 1
	// StyleEpigraph formats the quote as in writing, e.g. `"Hello." —Foo`.
	StyleEpigraph QuoteStyle = 2
	// StyleUnstyled applies no formatting at all.
	StyleUnstyled QuoteStyle = 3
)

// Quote is an ordered sequence of one or more lines. Each line carries its
// own author, so a multi-line quote can capture a conversation snippet with
// a different speaker per line.
type Quote struct {
	ID             int64       `json:"id"             db:"quote_id"`
	SubmitterID    int64       `json:"submitterId"    db:"submitter"`
	SubmissionDate time.Time   `json:"submissionDate" db:"submission_date"`
	Style          QuoteStyle  `json:"style"          db:"style"`
	Hidden         bool        `json:"hidden"         db:"hidden"`
	Lines          []QuoteLine `json:"lines"`
}

// QuoteLine is a single line of a quote at position LineNum (1..N).
// Action marks the line as an emote (`/me ...`) rather than spoken text.
type QuoteLine struct {
	QuoteID  int64  `json:"quoteId"  db:"quote_id"`
	LineNum  int    `json:"lineNum"  db:"line_num"`
	Line     string `json:"line"     db:"line"`
	AuthorID int64  `json:"authorId" db:"participant_id"`
	Action   bool   `json:"action"   db:"action"`
}

// QuoteListEntry is one line of the flat quote listing, with author and
// submitter ids resolved to display names.
type QuoteListEntry struct {
	QuoteID        int64      `json:"quoteId"`
	LineNum        int        `json:"lineNum"`
	Author         string     `json:"author"`
	Line           string     `json:"line"`
	SubmissionDate time.Time  `json:"submissionDate"`
	Submitter      string     `json:"submitter"`
	Action         bool       `json:"action"`
	Style          QuoteStyle `json:"style"`
	Hidden         bool       `json:"hidden"`
}

// LeaderboardRow is one entry of the quote leaderboard. Percentages are
// pre-rounded to one decimal place and rendered with a trailing '%', matching
// the persisted view layout.
type LeaderboardRow struct {
	Name              string `json:"name"`
	Quotes            int    `json:"quotes"`
	Submissions       int    `json:"submissions"`
	QuotePercent      string `json:"quotePercent"`
	SubmissionPercent string `json:"submissionPercent"`
}

// QuoteGlobalStats is the store-wide statistics projection. A quote counts as
// self-submitted when it has exactly one line and that line's author equals
// the submitter.
type QuoteGlobalStats struct {
	Quotes          int     `json:"quotes"`
	Submitters      int     `json:"submitters"`
	SelfSubmissions int     `json:"selfSubmissions"`
	SelfSubPercent  string  `json:"selfSubPercent"`
	QuotesThisYear  int     `json:"quotesThisYear"`
	AvgYearlyQuotes float64 `json:"avgYearlyQuotes"`
}

// QuoteUserStats is the per-identity statistics projection.
type QuoteUserStats struct {
	Name                string  `json:"name"`
	Quotes              int     `json:"quotes"`
	QuotePercent        string  `json:"quotePercent"`
	Submissions         int     `json:"submissions"`
	SubmissionPercent   string  `json:"submissionPercent"`
	SelfSubmissions     int     `json:"selfSubmissions"`
	SelfSubPercent      string  `json:"selfSubPercent"`
	QuotesThisYear      int     `json:"quotesThisYear"`
	SubmissionsThisYear int     `json:"submissionsThisYear"`
	AvgYearlyQuotes     float64 `json:"avgYearlyQuotes"`
	AvgYearlySubs       float64 `json:"avgYearlySubs"`
}

// YearCount is one bucket of the yearly quote trend. Years are calendar years
// of the submission timestamp in UTC.
type YearCount struct {
	Year   int `json:"year"`
	Quotes int `json:"quotes"`
}
