package jobs

import (
	"context"
	"fmt"

	"github.com/smartapply/jobsearch/internal/db"
	"github.com/smartapply/jobsearch/internal/domain"
	"github.com/smartapply/jobsearch/internal/domain/preference"
)

// UpsertPreferenceEmbedding stores text, vector and timestamp in one HSET.
func (r *Repo) UpsertPreferenceEmbedding(ctx context.Context, userID, text string, emb domain.Embedding) error {
	if err := r.checkDims(emb); err != nil {
		return err
	}
	err := r.store.HSet(ctx, r.userKey(userID), map[string]string{
		prefText:      text,
		prefEmbedding: db.EncodeVector(emb),
		prefUpdatedAt: unixString(r.now()),
	})
	if err != nil {
		return fmt.Errorf("upsert preference %s: %w", userID, err)
	}
	return nil
}

// InitializeDefaultPreferences derives preference text from the stored user attributes.
// A user without any stored record yields domain.ErrNotFound.
func (r *Repo) InitializeDefaultPreferences(ctx context.Context, userID string) (string, error) {
	fields, err := r.store.HGetAll(ctx, r.userKey(userID))
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("user profile %s: %w", userID, domain.ErrNotFound)
	}
	return attributesFromFields(fields).DefaultText(), nil
}

// CreateDefaultProfile claims the user record and fills placeholder attributes.
// Returns domain.ErrAlreadyExists when another writer got there first.
// Fields are written with HSETNX so a concurrent SaveUserAttributes is never clobbered.
func (r *Repo) CreateDefaultProfile(ctx context.Context, userID string) error {
	key := r.userKey(userID)
	claimed, err := r.store.HSetNX(ctx, key, userCreatedAt, unixString(r.now()))
	if err != nil {
		return fmt.Errorf("create profile %s: %w", userID, err)
	}
	if !claimed {
		return fmt.Errorf("profile %s: %w", userID, domain.ErrAlreadyExists)
	}

	p := preference.Placeholder()
	for _, kv := range [][2]string{
		{userTitle, p.Title},
		{userIndustry, p.Industry},
		{userWorkPreference, p.WorkPreference},
	} {
		if _, err := r.store.HSetNX(ctx, key, kv[0], kv[1]); err != nil {
			return fmt.Errorf("create profile %s field %s: %w", userID, kv[0], err)
		}
	}
	return nil
}

// SaveUserAttributes writes the profile attributes preference text is derived from.
func (r *Repo) SaveUserAttributes(ctx context.Context, userID string, attrs preference.Attributes) error {
	key := r.userKey(userID)
	now := unixString(r.now())
	if _, err := r.store.HSetNX(ctx, key, userCreatedAt, now); err != nil {
		return fmt.Errorf("save profile %s: %w", userID, err)
	}
	err := r.store.HSet(ctx, key, map[string]string{
		userTitle:          attrs.Title,
		userIndustry:       attrs.Industry,
		userSkills:         joinList(attrs.Skills),
		userWorkPreference: attrs.WorkPreference,
		userUpdatedAt:      now,
	})
	if err != nil {
		return fmt.Errorf("save profile %s: %w", userID, err)
	}
	return nil
}

// PreferenceProfile loads the stored preference. Unknown users yield domain.ErrNotFound.
func (r *Repo) PreferenceProfile(ctx context.Context, userID string) (preference.Profile, error) {
	fields, err := r.store.HGetAll(ctx, r.userKey(userID))
	if err != nil {
		return preference.Profile{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	if len(fields) == 0 {
		return preference.Profile{}, fmt.Errorf("user profile %s: %w", userID, domain.ErrNotFound)
	}
	return profileFromFields(userID, fields)
}
