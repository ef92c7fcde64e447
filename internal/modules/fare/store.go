// Tariff store backed by PostgreSQL. Operators without a row fall back to
// the configured platform tariff.
package fare

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabwise/internal/config"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetTariff(ctx context.Context, operatorScope string) (config.TariffConfig, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT base_fare, per_minute, per_mile, first_mile_surcharge,
		       per_stop_surcharge, booking_fee, minimum_fare, pet_surcharge,
		       return_surcharge_pct, free_wait_minutes, per_wait_minute,
		       priority_fee, currency
		FROM tariffs
		WHERE operator_scope = $1`, operatorScope,
	)
	var t config.TariffConfig
	err := row.Scan(
		&t.BaseFare, &t.PerMinute, &t.PerMile, &t.FirstMileSurcharge,
		&t.PerStopSurcharge, &t.BookingFee, &t.MinimumFare, &t.PetSurcharge,
		&t.ReturnSurchargePct, &t.FreeWaitMinutes, &t.PerWaitMinute,
		&t.PriorityFee, &t.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return config.TariffConfig{}, false, nil
	}
	if err != nil {
		return config.TariffConfig{}, false, err
	}
	return t, true, nil
}
