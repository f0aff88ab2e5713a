package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

const (
	MaxQuoteLines     = 20
	MaxQuoteLineChars = 1000
)

// QuoteService handles quote submission, retrieval, and statistics.
type QuoteService struct {
	quotes     repository.QuoteRepository
	identities repository.IdentityRepository
	logger     *slog.Logger
}

func NewQuoteService(
	quotes repository.QuoteRepository,
	identities repository.IdentityRepository,
	logger *slog.Logger,
) *QuoteService {
	return &QuoteService{
		quotes:     quotes,
		identities: identities,
		logger:     logger,
	}
}

// QuoteLineInput is one line of a submission, with the author given by name.
type QuoteLineInput struct {
	Author string `json:"author"`
	Line   string `json:"line"`
	Action bool   `json:"action"`
}

// Submit stores a quote. The submitter and every line author are resolved by
// name, minting participants on first sight, so a quote can cite someone the
// store has never seen speak. A non-nil submittedAt backdates the quote to
// that moment instead of the current time, for importing quotes heard before
// the store existed.
func (s *QuoteService) Submit(ctx context.Context, submitter string, style model.QuoteStyle, lines []QuoteLineInput, submittedAt *time.Time) (*model.Quote, error) {
	if len(lines) == 0 {
		return nil, apperror.ValidationFailed("lines", "a quote needs at least one line")
	}
	if len(lines) > MaxQuoteLines {
		return nil, apperror.ValidationFailed("lines",
			fmt.Sprintf("a quote may have at most %d lines", MaxQuoteLines))
	}
	switch style {
	case 0:
		style = model.StyleStandard
	case model.StyleStandard, model.StyleEpigraph, model.StyleUnstyled:
	default:
		return nil, apperror.ValidationFailed("style", "unknown quote style")
	}

	sub, err := s.identities.ResolveParticipant(ctx, submitter)
	if err != nil {
		return nil, fmt.Errorf("resolving submitter %q: %w", submitter, err)
	}

	q := &model.Quote{SubmitterID: sub.ID, Style: style}
	if submittedAt != nil {
		q.SubmissionDate = submittedAt.UTC().Truncate(time.Second)
	}
	for i, in := range lines {
		line := strings.TrimSpace(in.Line)
		if line == "" {
			return nil, apperror.ValidationFailed("lines", fmt.Sprintf("line %d is empty", i+1))
		}
		if len(line) > MaxQuoteLineChars {
			return nil, apperror.ValidationFailed("lines",
				fmt.Sprintf("line %d exceeds %d characters", i+1, MaxQuoteLineChars))
		}
		author, err := s.identities.ResolveParticipant(ctx, in.Author)
		if err != nil {
			return nil, fmt.Errorf("resolving author %q: %w", in.Author, err)
		}
		q.Lines = append(q.Lines, model.QuoteLine{
			Line:     line,
			AuthorID: author.ID,
			Action:   in.Action,
		})
	}

	if err := s.quotes.AddQuote(ctx, q); err != nil {
		s.logger.Error("failed to add quote",
			slog.String("submitter", submitter),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding quote: %w", err)
	}

	s.logger.Info("quote added",
		slog.Int64("quoteID", q.ID),
		slog.String("submitter", submitter),
		slog.Int("lines", len(q.Lines)),
	)
	return q, nil
}

func (s *QuoteService) Get(ctx context.Context, id int64) (*model.Quote, error) {
	return s.quotes.QuoteByID(ctx, id)
}

// SetHidden toggles a quote's visibility. Hidden quotes stay addressable but
// drop out of random draws and every statistic.
func (s *QuoteService) SetHidden(ctx context.Context, id int64, hidden bool) error {
	if err := s.quotes.SetQuoteHidden(ctx, id, hidden); err != nil {
		return err
	}
	s.logger.Info("quote visibility changed",
		slog.Int64("quoteID", id),
		slog.Bool("hidden", hidden),
	)
	return nil
}

func (s *QuoteService) Delete(ctx context.Context, id int64) error {
	if err := s.quotes.DeleteQuote(ctx, id); err != nil {
		return err
	}
	s.logger.Info("quote deleted", slog.Int64("quoteID", id))
	return nil
}

// Random draws a random visible quote, optionally narrowed by author name,
// submitter name, or a body substring.
func (s *QuoteService) Random(ctx context.Context, author, submitter, body string) (*model.Quote, error) {
	f, err := s.buildFilter(ctx, author, submitter, body)
	if err != nil {
		return nil, err
	}
	return s.quotes.RandomQuote(ctx, *f)
}

// Search lists visible quotes matching the filter, paginated.
func (s *QuoteService) Search(ctx context.Context, author, submitter, body string, limit, offset int) ([]model.Quote, error) {
	f, err := s.buildFilter(ctx, author, submitter, body)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.quotes.SearchQuotes(ctx, *f, repository.ListOptions{Limit: limit, Offset: offset})
}

// List returns the flat per-line quote listing, paginated.
func (s *QuoteService) List(ctx context.Context, includeHidden bool, limit, offset int) ([]model.QuoteListEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.quotes.ListQuoteLines(ctx, includeHidden, repository.ListOptions{Limit: limit, Offset: offset})
}

// buildFilter resolves name filters to participant ids. A name the store has
// never seen matches nothing, reported as NotFound rather than an empty
// result.
func (s *QuoteService) buildFilter(ctx context.Context, author, submitter, body string) (*repository.QuoteFilter, error) {
	f := repository.QuoteFilter{Body: strings.TrimSpace(body)}
	if author = strings.TrimSpace(author); author != "" {
		p, err := s.identities.ParticipantByName(ctx, author)
		if err != nil {
			return nil, err
		}
		f.AuthorID = &p.ID
	}
	if submitter = strings.TrimSpace(submitter); submitter != "" {
		p, err := s.identities.ParticipantByName(ctx, submitter)
		if err != nil {
			return nil, err
		}
		f.SubmitterID = &p.ID
	}
	return &f, nil
}

func (s *QuoteService) Leaderboard(ctx context.Context) ([]model.LeaderboardRow, error) {
	return s.quotes.Leaderboard(ctx)
}

func (s *QuoteService) GlobalStats(ctx context.Context) (*model.QuoteGlobalStats, error) {
	return s.quotes.GlobalStats(ctx)
}

func (s *QuoteService) UserStats(ctx context.Context, name string) (*model.QuoteUserStats, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.quotes.UserStats(ctx, name)
}

func (s *QuoteService) YearlyCounts(ctx context.Context) ([]model.YearCount, error) {
	return s.quotes.YearlyCounts(ctx)
}
