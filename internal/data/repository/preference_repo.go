package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showtime-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PreferenceKeySelectedCity is the fixed key under which the booking dialog
// remembers the last city a client picked.
const PreferenceKeySelectedCity = "selectedCity"

// PreferenceRepository is the durable per-client key-value store behind the
// booking dialog's remembered choices. Get returns the empty string, not an
// error, when no value is stored.
type PreferenceRepository interface {
	Get(ctx context.Context, clientID, key string) (string, error)
	Set(ctx context.Context, clientID, key, value string) error
}

type preferenceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPreferenceRepository(db database.PgxIface, log *zap.Logger) PreferenceRepository {
	return &preferenceRepository{
		db:  db,
		log: log.With(zap.String("repository", "preference")),
	}
}

func (r *preferenceRepository) Get(ctx context.Context, clientID, key string) (string, error) {
	query := `SELECT value FROM client_preferences WHERE client_id = $1 AND key = $2`

	var value string
	err := r.db.QueryRow(ctx, query, clientID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		r.log.Error("Failed to read preference",
			zap.Error(err),
			zap.String("client_id", clientID),
			zap.String("key", key),
		)
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}

	return value, nil
}

func (r *preferenceRepository) Set(ctx context.Context, clientID, key, value string) error {
	query := `
		INSERT INTO client_preferences (client_id, key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query, clientID, key, value, time.Now())
	if err != nil {
		r.log.Error("Failed to write preference",
			zap.Error(err),
			zap.String("client_id", clientID),
			zap.String("key", key),
		)
		return fmt.Errorf("set preference %s: %w", key, err)
	}

	return nil
}
