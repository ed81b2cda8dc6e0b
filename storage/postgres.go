package storage

import (
	"context"
	"errors"
	"fmt"
	"livepaint/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) SaveRoomMetadata(ctx context.Context, room string, metadata string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO room_metadata(room, metadata, updated_at) VALUES($1, $2, now())
		ON CONFLICT (room) DO UPDATE SET metadata = EXCLUDED.metadata, updated_at = EXCLUDED.updated_at`,
		room, metadata,
	)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

func (r *PostgresRepo) GetRoomMetadata(ctx context.Context, room string) (string, error) {
	row := r.pool.QueryRow(ctx, "SELECT metadata FROM room_metadata WHERE room = $1", room)

	var metadata string
	err := row.Scan(&metadata)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return "", domain.ErrRoomNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return metadata, nil
}
