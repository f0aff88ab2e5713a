// Package service contains the business logic layer. Handlers parse HTTP and
// delegate here; services validate, enforce rules, and orchestrate the
// repositories. Services depend on the repository interfaces, never on the
// sqlite package directly.
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

const (
	MaxNameLength    = 64
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// IdentityService handles participant and user reconciliation. It also owns
// source registration, since the ingestion path resolves a message's origin
// and speaker together.
type IdentityService struct {
	identities repository.IdentityRepository
	sources    repository.SourceRepository
	logger     *slog.Logger
}

func NewIdentityService(
	identities repository.IdentityRepository,
	sources repository.SourceRepository,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		identities: identities,
		sources:    sources,
		logger:     logger,
	}
}

// Sighting is the ingestion result: the resolved speaker and where they were
// seen.
type Sighting struct {
	Participant *model.Participant `json:"participant"`
	Source      *model.Source      `json:"source"`
}

// Observe is the ingestion entry point. It resolves the message origin and
// the speaker in one call; both are created on first sight. Calling it twice
// with the same arguments returns the same rows.
func (s *IdentityService) Observe(ctx context.Context, protocol string, server, channel *string, name string) (*Sighting, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	src, err := s.sources.GetOrCreateSource(ctx, protocol, server, channel)
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}

	p, err := s.identities.ResolveParticipant(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolving participant %q: %w", name, err)
	}

	return &Sighting{Participant: p, Source: src}, nil
}

// ResolveParticipant finds or creates the participant known by name.
func (s *IdentityService) ResolveParticipant(ctx context.Context, name string) (*model.Participant, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.identities.ResolveParticipant(ctx, name)
}

func (s *IdentityService) Participant(ctx context.Context, id int64) (*model.Participant, error) {
	return s.identities.ParticipantByID(ctx, id)
}

func (s *IdentityService) ParticipantByName(ctx context.Context, name string) (*model.Participant, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.identities.ParticipantByName(ctx, name)
}

// RenameParticipant changes a participant's name; if the participant is
// linked, the user's canonical name follows.
func (s *IdentityService) RenameParticipant(ctx context.Context, id int64, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	if err := s.identities.RenameParticipant(ctx, id, newName); err != nil {
		return err
	}
	s.logger.Info("participant renamed",
		slog.Int64("participantID", id),
		slog.String("name", newName),
	)
	return nil
}

// DeleteParticipant removes an unlinked participant; its feature rows are
// reassigned to the sentinel, never lost.
func (s *IdentityService) DeleteParticipant(ctx context.Context, id int64) error {
	if err := s.identities.DeleteParticipant(ctx, id); err != nil {
		return err
	}
	s.logger.Info("participant deleted", slog.Int64("participantID", id))
	return nil
}

// RegisterUser creates a durable identity. Any existing unlinked participant
// with the same case-folded name is adopted.
func (s *IdentityService) RegisterUser(ctx context.Context, name, comment string, metadata map[string]any) (*model.User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	u := &model.User{
		Name:             strings.TrimSpace(name),
		Comment:          strings.TrimSpace(comment),
		CreationMetadata: metadata,
	}
	if err := s.identities.CreateUser(ctx, u); err != nil {
		s.logger.Error("failed to register user",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("userID", u.ID),
		slog.String("name", u.Name),
	)
	return u, nil
}

func (s *IdentityService) User(ctx context.Context, id int64) (*model.User, error) {
	return s.identities.UserByID(ctx, id)
}

func (s *IdentityService) UserByName(ctx context.Context, name string, ignoreCase bool) (*model.User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.identities.UserByName(ctx, name, ignoreCase)
}

func (s *IdentityService) RenameUser(ctx context.Context, id int64, newName string) error {
	if err := validateName(newName); err != nil {
		return err
	}
	if err := s.identities.RenameUser(ctx, id, newName); err != nil {
		return err
	}
	s.logger.Info("user renamed",
		slog.Int64("userID", id),
		slog.String("name", newName),
	)
	return nil
}

func (s *IdentityService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.identities.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("userID", id))
	return nil
}

func (s *IdentityService) LinkParticipant(ctx context.Context, participantID, userID int64) error {
	return s.identities.LinkParticipant(ctx, participantID, userID)
}

func (s *IdentityService) UnlinkParticipant(ctx context.Context, participantID int64) error {
	return s.identities.UnlinkParticipant(ctx, participantID)
}

// AddAlias attaches an alternate name to a user.
func (s *IdentityService) AddAlias(ctx context.Context, userID int64, name string, caseSensitive bool) (*model.Alias, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	a := &model.Alias{
		UserID:        userID,
		Name:          strings.TrimSpace(name),
		CaseSensitive: caseSensitive,
	}
	if err := s.identities.AddAlias(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *IdentityService) RemoveAlias(ctx context.Context, userID int64, name string) error {
	return s.identities.RemoveAlias(ctx, userID, name)
}

func (s *IdentityService) Aliases(ctx context.Context, userID int64) ([]model.Alias, error) {
	return s.identities.Aliases(ctx, userID)
}

func (s *IdentityService) Names(ctx context.Context, participantID int64) ([]model.NameEntry, error) {
	return s.identities.ListNames(ctx, participantID)
}

// RegisterProtocol records a chat protocol so sources can reference it.
func (s *IdentityService) RegisterProtocol(ctx context.Context, identifier, name string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return apperror.ValidationFailed("identifier", "protocol identifier is required")
	}
	if name == "" {
		name = identifier
	}
	return s.sources.RegisterProtocol(ctx, model.Protocol{Identifier: identifier, Name: name})
}

func (s *IdentityService) Protocols(ctx context.Context) ([]model.Protocol, error) {
	return s.sources.Protocols(ctx)
}

func (s *IdentityService) Source(ctx context.Context, id int64) (*model.Source, error) {
	return s.sources.SourceByID(ctx, id)
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	return nil
}
