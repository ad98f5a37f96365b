// Package profiles maps identity-provider subjects to internal profiles.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/database"
	"ms-eventpass/internal/logger"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "profile_subject:"

type ProfileDBLayer interface {
	GetProfileBySubject(ctx context.Context, subject string) (*models.Profile, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
}

// Resolver looks profiles up by subject, caching hits in Redis. A nil
// Redis client disables the cache.
type Resolver struct {
	DB     ProfileDBLayer
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewResolver(db ProfileDBLayer, client *redis.Client, ttl time.Duration, log *logger.Logger) *Resolver {
	return &Resolver{DB: db, Redis: client, TTL: ttl, Logger: log}
}

func cacheKey(subject string) string {
	return cacheKeyPrefix + subject
}

// Resolve returns the profile of subject or ErrProfileNotFound.
func (r *Resolver) Resolve(ctx context.Context, subject string) (*models.Profile, error) {
	if subject == "" {
		return nil, fmt.Errorf("empty subject: %w", apperrors.ErrProfileNotFound)
	}

	if cached := r.fromCache(ctx, subject); cached != nil {
		return cached, nil
	}

	profile, err := r.DB.GetProfileBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	r.store(ctx, profile)
	return profile, nil
}

func (r *Resolver) fromCache(ctx context.Context, subject string) *models.Profile {
	if r.Redis == nil {
		return nil
	}
	raw, err := r.Redis.Get(ctx, cacheKey(subject)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.Logger.Warn("PROFILE", fmt.Sprintf("Cache read failed for %s: %v", subject, err))
		}
		return nil
	}
	var profile models.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		r.Logger.Warn("PROFILE", fmt.Sprintf("Dropping unreadable cache entry for %s: %v", subject, err))
		r.Redis.Del(ctx, cacheKey(subject))
		return nil
	}
	// AuthSubject is not serialized
	profile.AuthSubject = subject
	return &profile
}

func (r *Resolver) store(ctx context.Context, profile *models.Profile) {
	if r.Redis == nil {
		return
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.Redis.Set(ctx, cacheKey(profile.AuthSubject), raw, r.TTL).Err(); err != nil {
		r.Logger.Warn("PROFILE", fmt.Sprintf("Cache write failed for %s: %v", profile.AuthSubject, err))
	}
}

// Register creates the caller's profile. Registering twice returns the
// profile created first.
func (r *Resolver) Register(ctx context.Context, subject string, req models.RegisterProfileRequest) (*models.Profile, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is required: %w", apperrors.ErrInvalidRequest)
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleAttendee
	}
	if role != models.RoleAttendee && role != models.RoleOrganizer {
		return nil, fmt.Errorf("unknown role %q: %w", req.Role, apperrors.ErrInvalidRequest)
	}

	existing, err := r.DB.GetProfileBySubject(ctx, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrProfileNotFound) {
		return nil, err
	}

	profile := &models.Profile{
		ID:          utils.NewID(),
		AuthSubject: subject,
		Email:       strings.TrimSpace(req.Email),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.DB.CreateProfile(ctx, profile); err != nil {
		if database.IsUniqueViolation(err, "auth_subject") {
			return r.DB.GetProfileBySubject(ctx, subject)
		}
		return nil, err
	}

	r.Logger.Info("PROFILE", fmt.Sprintf("Registered %s profile %s", role, profile.ID))
	r.store(ctx, profile)
	return profile, nil
}
