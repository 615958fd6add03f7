package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/padraicbc/trainerpages/models"
)

// ErrHostnameTaken is returned when a hostname already has a mapping.
var ErrHostnameTaken = errors.New("hostname is already mapped")

// AddDomain inserts a mapping for an existing trainer slug. A primary mapping
// clears the flag on the trainer's other hostnames in the same transaction.
// It returns sql.ErrNoRows when no submission has the slug.
func AddDomain(ctx context.Context, db *bun.DB, d *models.DomainMapping) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Submission)(nil)).
			Where("slug = ?", d.TrainerSlug).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return sql.ErrNoRows
		}

		taken, err := tx.NewSelect().Model((*models.DomainMapping)(nil)).
			Where("hostname = ?", d.Hostname).
			Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return ErrHostnameTaken
		}

		if d.IsPrimary {
			if err := clearPrimary(ctx, tx, d.TrainerSlug); err != nil {
				return err
			}
		}
		_, err = tx.NewInsert().Model(d).Exec(ctx)
		return err
	})
}

// SetPrimaryDomain makes the mapping with id its trainer's only primary hostname.
func SetPrimaryDomain(ctx context.Context, db *bun.DB, id uuid.UUID) (*models.DomainMapping, error) {
	d := new(models.DomainMapping)
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(d).Where("d.id = ?", id).Scan(ctx); err != nil {
			return err
		}
		if err := clearPrimary(ctx, tx, d.TrainerSlug); err != nil {
			return err
		}
		d.IsPrimary = true
		_, err := tx.NewUpdate().Model(d).Column("is_primary").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func clearPrimary(ctx context.Context, tx bun.Tx, slug string) error {
	_, err := tx.NewUpdate().Model((*models.DomainMapping)(nil)).
		Set("is_primary = ?", false).
		Where("trainer_slug = ?", slug).
		Where("is_primary = ?", true).
		Exec(ctx)
	return err
}
