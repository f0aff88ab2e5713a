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

const MaxPhraseLength = 500

// PhraseService handles the canned-response collections and the 8-ball.
type PhraseService struct {
	phrases    repository.PhraseRepository
	identities repository.IdentityRepository
	logger     *slog.Logger
}

func NewPhraseService(
	phrases repository.PhraseRepository,
	identities repository.IdentityRepository,
	logger *slog.Logger,
) *PhraseService {
	return &PhraseService{
		phrases:    phrases,
		identities: identities,
		logger:     logger,
	}
}

// Add stores a phrase in the named collection, attributed to its submitter.
func (s *PhraseService) Add(ctx context.Context, table model.PhraseTable, phrase string, action bool, kind *model.ResponseKind, submitter string) (*model.Phrase, error) {
	if !table.Valid() {
		return nil, apperror.ValidationFailed("table", fmt.Sprintf("unknown phrase table %q", table))
	}
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, apperror.ValidationFailed("phrase", "phrase is empty")
	}
	if len(phrase) > MaxPhraseLength {
		return nil, apperror.ValidationFailed("phrase",
			fmt.Sprintf("phrase must be %d characters or less", MaxPhraseLength))
	}

	sub, err := s.identities.ResolveParticipant(ctx, submitter)
	if err != nil {
		return nil, fmt.Errorf("resolving submitter %q: %w", submitter, err)
	}

	p := &model.Phrase{
		Phrase:       phrase,
		Action:       action,
		ResponseType: kind,
		SubmitterID:  sub.ID,
	}
	if err := s.phrases.AddPhrase(ctx, table, p); err != nil {
		return nil, err
	}

	s.logger.Info("phrase added",
		slog.String("table", string(table)),
		slog.String("submitter", submitter),
	)
	return p, nil
}

func (s *PhraseService) Remove(ctx context.Context, table model.PhraseTable, phrase string) error {
	return s.phrases.RemovePhrase(ctx, table, phrase)
}

// Draw returns a random phrase from the collection, optionally narrowed by
// sentiment (questioned only).
func (s *PhraseService) Draw(ctx context.Context, table model.PhraseTable, kind *model.ResponseKind) (*model.Phrase, error) {
	return s.phrases.RandomPhrase(ctx, table, kind)
}

func (s *PhraseService) List(ctx context.Context, table model.PhraseTable) ([]model.Phrase, error) {
	return s.phrases.Phrases(ctx, table)
}

// Ask draws an 8-ball answer for a question. Questions must end in a
// question mark, a rule inherited from the chat command.
func (s *PhraseService) Ask(ctx context.Context, question string) (*model.EightBallResponse, error) {
	question = strings.TrimSpace(question)
	if !strings.HasSuffix(question, "?") {
		return nil, apperror.ValidationFailed("question", "that does not look like a question")
	}
	return s.phrases.RandomEightBall(ctx, nil)
}

func (s *PhraseService) AddEightBall(ctx context.Context, response string, action bool, kind model.ResponseKind, expectsAction *bool, submitter string) (*model.EightBallResponse, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, apperror.ValidationFailed("response", "response is empty")
	}
	switch kind {
	case model.ResponsePositive, model.ResponseNegative, model.ResponseNeutral:
	default:
		return nil, apperror.ValidationFailed("responseType", "unknown response type")
	}

	sub, err := s.identities.ResolveParticipant(ctx, submitter)
	if err != nil {
		return nil, fmt.Errorf("resolving submitter %q: %w", submitter, err)
	}

	r := &model.EightBallResponse{
		Response:      response,
		Action:        action,
		ResponseType:  kind,
		ExpectsAction: expectsAction,
		SubmitterID:   sub.ID,
	}
	if err := s.phrases.AddEightBall(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *PhraseService) RemoveEightBall(ctx context.Context, response string) error {
	return s.phrases.RemoveEightBall(ctx, response)
}
