package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

type generationsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewGenerationsRepository(db *sql.DB) *generationsRepository {
	return &generationsRepository{db: db, now: time.Now}
}

func (r *generationsRepository) Save(ctx context.Context, g domain.Generation) error {
	const query = `
		INSERT INTO generations (id, origin, sender_id, trigger, prompt, provider, model, image_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.Origin, g.SenderID, g.Trigger, g.Prompt,
		g.Provider, g.Model, g.ImageCount, g.Error, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving generation: %w", err)
	}
	return nil
}

// Recent returns the latest generations of origin, newest first.
func (r *generationsRepository) Recent(ctx context.Context, origin string, limit int) ([]domain.Generation, error) {
	const query = `
		SELECT id, origin, sender_id, trigger, prompt, provider, model, image_count, error, created_at
		FROM generations
		WHERE origin = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, origin, limit)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()

	var generations []domain.Generation
	for rows.Next() {
		var g domain.Generation
		if err := rows.Scan(
			&g.ID, &g.Origin, &g.SenderID, &g.Trigger, &g.Prompt,
			&g.Provider, &g.Model, &g.ImageCount, &g.Error, &g.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		generations = append(generations, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating generations: %w", err)
	}

	return generations, nil
}
