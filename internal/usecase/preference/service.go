package preference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/preference"
	"github.com/smartapply/jobsearch/internal/logger"
)

// Manager owns writes to user preference profiles.
type Manager struct {
	repo   Repository
	embed  Embedder
	logger *zap.Logger
}

// New creates a preference manager.
func New(repo Repository, embed Embedder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{repo: repo, embed: embed, logger: logger}
}

// Update embeds text and stores it as the user's preference.
// On any failure nothing is written and the stored profile stays as it was.
func (m *Manager) Update(ctx context.Context, userID, text string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: preference text is required", domain.ErrInvalidInput)
	}

	res, err := m.embed.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed preference: %w", err)
	}
	if err := m.repo.UpsertPreferenceEmbedding(ctx, userID, text, res.Embedding); err != nil {
		return fmt.Errorf("store preference: %w", err)
	}

	logger.FromContextOr(ctx, m.logger).Debug("Preference updated",
		zap.String("user_id", userID),
		zap.Int("dimensions", len(res.Embedding)),
	)
	return nil
}

// EnsureInitialized gives the user a preference embedding derived from their profile attributes.
// A user that already has one is left untouched. A missing profile is created with placeholder
// attributes; losing that race to a concurrent creator counts as success.
func (m *Manager) EnsureInitialized(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	log := logger.FromContextOr(ctx, m.logger).With(zap.String("user_id", userID))

	p, err := m.repo.PreferenceProfile(ctx, userID)
	switch {
	case err == nil && p.HasEmbedding():
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("load preference: %w", err)
	}

	text, err := m.repo.InitializeDefaultPreferences(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("Creating default profile")
		if cerr := m.repo.CreateDefaultProfile(ctx, userID); cerr != nil && !errors.Is(cerr, domain.ErrAlreadyExists) {
			return fmt.Errorf("create default profile: %w", cerr)
		}
		text, err = m.repo.InitializeDefaultPreferences(ctx, userID)
	}
	if err != nil {
		return fmt.Errorf("default preferences: %w", err)
	}

	return m.Update(ctx, userID, text)
}

// Profile returns the stored preference profile.
func (m *Manager) Profile(ctx context.Context, userID string) (preference.Profile, error) {
	if err := validateUserID(userID); err != nil {
		return preference.Profile{}, err
	}
	p, err := m.repo.PreferenceProfile(ctx, userID)
	if err != nil {
		return preference.Profile{}, fmt.Errorf("load preference: %w", err)
	}
	return p, nil
}

// SaveAttributes stores the profile attributes default preference text is derived from.
func (m *Manager) SaveAttributes(ctx context.Context, userID string, attrs preference.Attributes) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := m.repo.SaveUserAttributes(ctx, userID, attrs); err != nil {
		return fmt.Errorf("save attributes: %w", err)
	}
	return nil
}

func validateUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	return nil
}
