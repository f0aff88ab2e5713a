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

// ObitService handles the mock-violence scoreboard: recording kills,
// composing obituary messages from stored fragments, and the rankings.
type ObitService struct {
	obits      repository.ObitRepository
	identities repository.IdentityRepository
	logger     *slog.Logger
}

func NewObitService(
	obits repository.ObitRepository,
	identities repository.IdentityRepository,
	logger *slog.Logger,
) *ObitService {
	return &ObitService{
		obits:      obits,
		identities: identities,
		logger:     logger,
	}
}

// Kill records killer dispatching victim and composes the obituary line from
// random stored fragments. Killer and victim are resolved by name; a
// participant killing themselves records a suicide instead.
func (s *ObitService) Kill(ctx context.Context, killer, victim string) (string, error) {
	k, err := s.identities.ResolveParticipant(ctx, killer)
	if err != nil {
		return "", fmt.Errorf("resolving killer %q: %w", killer, err)
	}
	v, err := s.identities.ResolveParticipant(ctx, victim)
	if err != nil {
		return "", fmt.Errorf("resolving victim %q: %w", victim, err)
	}

	if err := s.obits.RecordKill(ctx, k.ID, v.ID); err != nil {
		return "", fmt.Errorf("recording kill: %w", err)
	}

	var msg string
	if k.ID == v.ID {
		msg, err = s.composeSuicide(ctx, k.Name)
	} else {
		msg, err = s.composeKill(ctx, k.Name, v.Name)
	}
	if err != nil {
		return "", err
	}

	s.logger.Info("kill recorded",
		slog.Int64("killerID", k.ID),
		slog.Int64("victimID", v.ID),
	)
	return msg, nil
}

// composeKill builds "<killer> <method> <victim> with <weapon>. <closer>"
// from one random fragment of each type.
func (s *ObitService) composeKill(ctx context.Context, killer, victim string) (string, error) {
	method, err := s.obits.RandomObitString(ctx, model.ObitKill)
	if err != nil {
		return "", fmt.Errorf("drawing kill fragment: %w", err)
	}
	weapon, err := s.obits.RandomObitString(ctx, model.ObitWeapon)
	if err != nil {
		return "", fmt.Errorf("drawing weapon fragment: %w", err)
	}
	closer, err := s.obits.RandomObitString(ctx, model.ObitCloser)
	if err != nil {
		return "", fmt.Errorf("drawing closer fragment: %w", err)
	}
	return fmt.Sprintf("%s %s %s with %s. %s",
		killer, method.Content, victim, weapon.Content, closer.Content), nil
}

func (s *ObitService) composeSuicide(ctx context.Context, name string) (string, error) {
	frag, err := s.obits.RandomObitString(ctx, model.ObitSuicide)
	if err != nil {
		return "", fmt.Errorf("drawing suicide fragment: %w", err)
	}
	return fmt.Sprintf("%s %s", name, frag.Content), nil
}

// Record returns a participant's tally, resolved by name.
func (s *ObitService) Record(ctx context.Context, name string) (*model.ObitRecord, error) {
	p, err := s.identities.ParticipantByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.obits.ObitRecord(ctx, p.ID)
}

func (s *ObitService) Board(ctx context.Context) ([]model.ObitBoardRow, error) {
	return s.obits.ObitBoard(ctx)
}

// Rankings bundles the three tallies the way the scoreboard command presents
// them.
type Rankings struct {
	Kills    []model.RankedTally `json:"kills"`
	Deaths   []model.RankedTally `json:"deaths"`
	Suicides []model.RankedTally `json:"suicides"`
}

func (s *ObitService) Rankings(ctx context.Context) (*Rankings, error) {
	kills, deaths, suicides, err := s.obits.ObitRankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("ranking obit tallies: %w", err)
	}
	return &Rankings{Kills: kills, Deaths: deaths, Suicides: suicides}, nil
}

// AddString stores one obituary fragment, attributed to its submitter by
// name.
func (s *ObitService) AddString(ctx context.Context, content string, typ model.ObitStringType, submitter string) (*model.ObitString, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "fragment is empty")
	}

	sub, err := s.identities.ResolveParticipant(ctx, submitter)
	if err != nil {
		return nil, fmt.Errorf("resolving submitter %q: %w", submitter, err)
	}
	frag := &model.ObitString{Content: content, Type: typ, SubmitterID: sub.ID}
	if err := s.obits.AddObitString(ctx, frag); err != nil {
		return nil, err
	}
	return frag, nil
}

func (s *ObitService) RemoveString(ctx context.Context, content string, typ model.ObitStringType) error {
	return s.obits.RemoveObitString(ctx, content, typ)
}
