// Package repository declares the storage interfaces the service layer is
// written against. The sqlite subpackage is the only implementation, but the
// services never import it directly; they receive these interfaces, which
// keeps business logic testable with in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/chatkeeper/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// IdentityRepository is the participant/user reconciliation store. It is the
// only repository every other feature depends on: feature rows are keyed by
// participant id, and participants are minted here.
//
// Multi-row invariants (rename propagation, link-on-create, sentinel
// reassignment) are enforced inside single transactions by the
// implementation; callers see either the whole effect or none of it.
type IdentityRepository interface {
	// ResolveParticipant looks the name up case-insensitively (including
	// user aliases) and creates a new unlinked participant if absent.
	// Concurrent first-sight of the same name yields one row; losers of the
	// race receive the winner's row.
	ResolveParticipant(ctx context.Context, name string) (*model.Participant, error)
	ParticipantByID(ctx context.Context, id int64) (*model.Participant, error)
	ParticipantByName(ctx context.Context, name string) (*model.Participant, error)
	RenameParticipant(ctx context.Context, id int64, newName string) error
	// DeleteParticipant fails with ErrIdentityLinked while the participant is
	// linked; otherwise it reassigns dependent feature rows to the sentinel
	// participant and removes the row.
	DeleteParticipant(ctx context.Context, id int64) error

	// CreateUser inserts the user, fills ID and CreatedAt, and links any
	// existing unlinked participant bearing the same case-folded name.
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id int64) (*model.User, error)
	UserByName(ctx context.Context, name string, ignoreCase bool) (*model.User, error)
	RenameUser(ctx context.Context, id int64, newName string) error
	// DeleteUser unlinks the user's participant, removes its aliases, and
	// deletes the row. It never fails for a missing link.
	DeleteUser(ctx context.Context, id int64) error
	LinkParticipant(ctx context.Context, participantID, userID int64) error
	UnlinkParticipant(ctx context.Context, participantID int64) error

	AddAlias(ctx context.Context, a *model.Alias) error
	RemoveAlias(ctx context.Context, userID int64, name string) error
	Aliases(ctx context.Context, userID int64) ([]model.Alias, error)
	// ListNames returns the union of the participant's canonical name and the
	// aliases of its linked user, if any.
	ListNames(ctx context.Context, participantID int64) ([]model.NameEntry, error)
}

type SourceRepository interface {
	// GetOrCreateSource returns the source for the tuple, minting it on first
	// sight. server and channel may be nil.
	GetOrCreateSource(ctx context.Context, protocol string, server, channel *string) (*model.Source, error)
	SourceByID(ctx context.Context, id int64) (*model.Source, error)
	RegisterProtocol(ctx context.Context, p model.Protocol) error
	Protocols(ctx context.Context) ([]model.Protocol, error)
}

// QuoteFilter narrows random retrieval and searches. Nil/zero fields are
// ignored. Hidden quotes are always excluded unless IncludeHidden is set.
type QuoteFilter struct {
	AuthorID      *int64
	SubmitterID   *int64
	Body          string // substring match on line text
	IncludeHidden bool
}

type QuoteRepository interface {
	// AddQuote persists the quote and its lines, assigning the next
	// sequential id and numbering lines 1..N.
	AddQuote(ctx context.Context, q *model.Quote) error
	QuoteByID(ctx context.Context, id int64) (*model.Quote, error)
	SetQuoteHidden(ctx context.Context, id int64, hidden bool) error
	DeleteQuote(ctx context.Context, id int64) error
	RandomQuote(ctx context.Context, f QuoteFilter) (*model.Quote, error)
	SearchQuotes(ctx context.Context, f QuoteFilter, opts ListOptions) ([]model.Quote, error)
	// ListQuoteLines returns the flat per-line listing with resolved
	// author and submitter names, ordered by quote id and line number.
	ListQuoteLines(ctx context.Context, includeHidden bool, opts ListOptions) ([]model.QuoteListEntry, error)

	Leaderboard(ctx context.Context) ([]model.LeaderboardRow, error)
	GlobalStats(ctx context.Context) (*model.QuoteGlobalStats, error)
	UserStats(ctx context.Context, name string) (*model.QuoteUserStats, error)
	YearlyCounts(ctx context.Context) ([]model.YearCount, error)
}

// CorpusFilter narrows corpus retrieval. Nil fields are ignored.
type CorpusFilter struct {
	AuthorID *int64
	SourceID *int64
}

// CorpusIterator is a lazy cursor over corpus lines. Callers must Close it;
// restarting means asking the repository for a fresh iterator.
type CorpusIterator interface {
	Next() (model.CorpusLine, bool)
	Err() error
	Close() error
}

type CorpusRepository interface {
	AddLine(ctx context.Context, l *model.CorpusLine) error
	Lines(ctx context.Context, f CorpusFilter) (CorpusIterator, error)
	CountLines(ctx context.Context, f CorpusFilter) (int64, error)
}

type ObitRepository interface {
	// RecordKill updates the killer's and victim's tally rows as one atomic
	// unit, creating either lazily. killer == victim records a suicide.
	RecordKill(ctx context.Context, killerID, victimID int64) error
	ObitRecord(ctx context.Context, participantID int64) (*model.ObitRecord, error)
	ObitBoard(ctx context.Context) ([]model.ObitBoardRow, error)
	ObitRankings(ctx context.Context) (kills, deaths, suicides []model.RankedTally, err error)

	AddObitString(ctx context.Context, s *model.ObitString) error
	RemoveObitString(ctx context.Context, content string, typ model.ObitStringType) error
	RandomObitString(ctx context.Context, typ model.ObitStringType) (*model.ObitString, error)
}

// CounterTrigger records who caused an increment and where.
type CounterTrigger struct {
	ParticipantID *int64
	Channel       *string
}

type CounterRepository interface {
	// IncrementCounter bumps the named counter by n (creating it at zero
	// first if needed) and stamps the trigger metadata. Returns the counter
	// after the bump.
	IncrementCounter(ctx context.Context, name string, n int64, trig CounterTrigger) (*model.Counter, error)
	Counter(ctx context.Context, name string) (*model.Counter, error)
	Counters(ctx context.Context) ([]model.Counter, error)
}

type PhraseRepository interface {
	AddPhrase(ctx context.Context, table model.PhraseTable, p *model.Phrase) error
	RemovePhrase(ctx context.Context, table model.PhraseTable, phrase string) error
	RandomPhrase(ctx context.Context, table model.PhraseTable, kind *model.ResponseKind) (*model.Phrase, error)
	Phrases(ctx context.Context, table model.PhraseTable) ([]model.Phrase, error)

	AddEightBall(ctx context.Context, r *model.EightBallResponse) error
	RemoveEightBall(ctx context.Context, response string) error
	RandomEightBall(ctx context.Context, kind *model.ResponseKind) (*model.EightBallResponse, error)
}

type OperatorRepository interface {
	CreateOperator(ctx context.Context, op *model.Operator) error
	OperatorByLogin(ctx context.Context, login string) (*model.Operator, error)
	OperatorByID(ctx context.Context, id string) (*model.Operator, error)
}
