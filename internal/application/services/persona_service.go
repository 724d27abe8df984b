package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/tasks"
	"github.com/pagewise/bookstore/backend/pkg/utils"
)

const maxPersonaLength = 600

// PersonaUpdater reads personas and schedules their refresh
type PersonaUpdater interface {
	Persona(ctx context.Context, userID string) string
	ScheduleUpdate(userID, interaction string)
}

// PersonaService maintains the advisory reading profile of each user. Updates run on
// the background runner and are eventually consistent.
type PersonaService struct {
	users     repositories.UserRepository
	generator providers.TextGenerator
	runner    *tasks.Runner
}

// NewPersonaService creates a new persona service
func NewPersonaService(users repositories.UserRepository, generator providers.TextGenerator, runner *tasks.Runner) *PersonaService {
	return &PersonaService{users: users, generator: generator, runner: runner}
}

// Persona returns the stored persona, or "" when unavailable
func (s *PersonaService) Persona(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	persona, err := s.users.GetPersona(ctx, userID)
	if err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Str("user_id", userID).Msg("persona unavailable")
		return ""
	}
	return persona
}

// ScheduleUpdate refreshes the persona in the background and returns immediately
func (s *PersonaService) ScheduleUpdate(userID, interaction string) {
	if userID == "" || strings.TrimSpace(interaction) == "" {
		return
	}
	err := s.runner.Go("persona_update", func(ctx context.Context) error {
		return s.UpdateFromInteraction(ctx, userID, interaction)
	})
	if err != nil {
		observability.GetLogger().Warn().Err(err).Str("user_id", userID).Msg("persona update not scheduled")
	}
}

// UpdateFromInteraction rewrites the persona of userID with the new interaction
func (s *PersonaService) UpdateFromInteraction(ctx context.Context, userID, interaction string) error {
	current, err := s.users.GetPersona(ctx, userID)
	if err != nil {
		return fmt.Errorf("load persona: %w", err)
	}

	raw, err := s.generator.GenerateText(ctx, buildPersonaPrompt(current, interaction))
	if err != nil {
		return fmt.Errorf("generate persona: %w", err)
	}

	persona := strings.TrimSpace(utils.StripCodeFences(raw))
	if persona == "" {
		return fmt.Errorf("generate persona: empty response")
	}
	persona = truncate(persona, maxPersonaLength)

	if err := s.users.SetPersona(ctx, userID, persona); err != nil {
		return fmt.Errorf("store persona: %w", err)
	}
	return nil
}
