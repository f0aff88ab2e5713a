package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

// CorpusService handles the append-only text corpus fed to the external
// sentence generator.
type CorpusService struct {
	corpus     repository.CorpusRepository
	identities repository.IdentityRepository
	sources    repository.SourceRepository
	logger     *slog.Logger
}

func NewCorpusService(
	corpus repository.CorpusRepository,
	identities repository.IdentityRepository,
	sources repository.SourceRepository,
	logger *slog.Logger,
) *CorpusService {
	return &CorpusService{
		corpus:     corpus,
		identities: identities,
		sources:    sources,
		logger:     logger,
	}
}

// Ingest appends one line of chat to the corpus, tagged with its speaker and
// origin. Speaker and origin are optional; text survives without either.
func (s *CorpusService) Ingest(ctx context.Context, line, author, protocol string, server, channel *string) (*model.CorpusLine, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, apperror.ValidationFailed("line", "corpus line is empty")
	}

	l := &model.CorpusLine{Line: line}
	if author = strings.TrimSpace(author); author != "" {
		p, err := s.identities.ResolveParticipant(ctx, author)
		if err != nil {
			return nil, fmt.Errorf("resolving author %q: %w", author, err)
		}
		l.AuthorID = &p.ID
	}
	if protocol = strings.TrimSpace(protocol); protocol != "" {
		src, err := s.sources.GetOrCreateSource(ctx, protocol, server, channel)
		if err != nil {
			return nil, fmt.Errorf("resolving source: %w", err)
		}
		l.SourceID = &src.ID
	}

	if err := s.corpus.AddLine(ctx, l); err != nil {
		s.logger.Error("failed to ingest corpus line", slog.String("error", err.Error()))
		return nil, err
	}
	return l, nil
}

// Lines streams corpus lines, optionally narrowed to one author by name
// and/or one source by id. The caller owns the iterator and must Close it.
func (s *CorpusService) Lines(ctx context.Context, author string, sourceID *int64) (repository.CorpusIterator, error) {
	f, err := s.corpusFilter(ctx, author, sourceID)
	if err != nil {
		return nil, err
	}
	return s.corpus.Lines(ctx, f)
}

// Count reports the corpus size under the same narrowing as Lines.
func (s *CorpusService) Count(ctx context.Context, author string, sourceID *int64) (int64, error) {
	f, err := s.corpusFilter(ctx, author, sourceID)
	if err != nil {
		return 0, err
	}
	return s.corpus.CountLines(ctx, f)
}

func (s *CorpusService) corpusFilter(ctx context.Context, author string, sourceID *int64) (repository.CorpusFilter, error) {
	var f repository.CorpusFilter
	if author = strings.TrimSpace(author); author != "" {
		p, err := s.identities.ParticipantByName(ctx, author)
		if err != nil {
			return f, err
		}
		f.AuthorID = &p.ID
	}
	if sourceID != nil {
		if _, err := s.sources.SourceByID(ctx, *sourceID); err != nil {
			return f, err
		}
		f.SourceID = sourceID
	}
	return f, nil
}
