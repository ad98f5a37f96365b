package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-eventpass/internal/apperrors"
	"ms-eventpass/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetProfileBySubject(ctx context.Context, subject string) (*models.Profile, error) {
	var profile models.Profile
	err := d.Bun.NewSelect().
		Model(&profile).
		Where("auth_subject = ?", subject).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subject %s: %w", subject, apperrors.ErrProfileNotFound)
	}
	if err != nil {
		return nil, apperrors.Storage("get profile", err)
	}
	return &profile, nil
}

func (d *DB) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if _, err := d.Bun.NewInsert().Model(profile).Exec(ctx); err != nil {
		return apperrors.Storage("insert profile", err)
	}
	return nil
}
