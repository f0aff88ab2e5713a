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

const MaxCounterIncrement = 1000

// CounterService handles named counters and their trigger metadata.
type CounterService struct {
	counters   repository.CounterRepository
	identities repository.IdentityRepository
	logger     *slog.Logger
}

func NewCounterService(
	counters repository.CounterRepository,
	identities repository.IdentityRepository,
	logger *slog.Logger,
) *CounterService {
	return &CounterService{
		counters:   counters,
		identities: identities,
		logger:     logger,
	}
}

// Bump increments the named counter by n, recording who triggered it and in
// which channel. triggeredBy may be empty for anonymous triggers.
func (s *CounterService) Bump(ctx context.Context, name string, n int64, triggeredBy, channel string) (*model.Counter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "counter name is required")
	}
	if n <= 0 {
		n = 1
	}
	if n > MaxCounterIncrement {
		return nil, apperror.ValidationFailed("n",
			fmt.Sprintf("increment must be %d or less", MaxCounterIncrement))
	}

	var trig repository.CounterTrigger
	if triggeredBy = strings.TrimSpace(triggeredBy); triggeredBy != "" {
		p, err := s.identities.ResolveParticipant(ctx, triggeredBy)
		if err != nil {
			return nil, fmt.Errorf("resolving trigger %q: %w", triggeredBy, err)
		}
		trig.ParticipantID = &p.ID
	}
	if channel = strings.TrimSpace(channel); channel != "" {
		trig.Channel = &channel
	}

	c, err := s.counters.IncrementCounter(ctx, name, n, trig)
	if err != nil {
		s.logger.Error("failed to bump counter",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return c, nil
}

func (s *CounterService) Get(ctx context.Context, name string) (*model.Counter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "counter name is required")
	}
	return s.counters.Counter(ctx, name)
}

func (s *CounterService) List(ctx context.Context) ([]model.Counter, error) {
	return s.counters.Counters(ctx)
}
