// Operator settings store backed by PostgreSQL.
package operator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabwise/internal/apperr"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, scope string) (Settings, error) {
	row := s.db.QueryRow(ctx, `
		SELECT operator_scope, display_prefix, operator_code, dispatch_mode,
		       surge_enabled, surge_multiplier, max_offer_wait_secs,
		       allow_cross_scope, queue_policy
		FROM operator_settings
		WHERE operator_scope = $1`, scope,
	)
	var (
		st       Settings
		mode     string
		policy   string
		waitSecs int
	)
	err := row.Scan(
		&st.Scope, &st.DisplayPrefix, &st.OperatorCode, &mode,
		&st.SurgeEnabled, &st.SurgeMultiplier, &waitSecs,
		&st.AllowCrossScope, &policy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, fmt.Errorf("operator %s: %w", scope, apperr.ErrNotFound)
	}
	if err != nil {
		return Settings{}, err
	}
	st.DispatchMode = DispatchMode(mode)
	st.QueuePolicy = QueuePolicy(policy)
	st.MaxOfferWait = time.Duration(waitSecs) * time.Second
	return st, nil
}
