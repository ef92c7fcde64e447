// Driver registration and availability.
package driver

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cabwise/internal/apperr"
	"cabwise/internal/modules/fare"
	"cabwise/internal/modules/operator"
	"cabwise/internal/modules/sequence"
	"cabwise/internal/types"
)

// Sequencer allocates the per-operator driver sequence.
type Sequencer interface {
	Allocate(ctx context.Context, scopeKey string) (int64, error)
}

// SettingsSource resolves operator settings for the display-ID prefix.
type SettingsSource interface {
	Get(ctx context.Context, scope string) (operator.Settings, error)
}

type Service struct {
	store     *Store
	seq       Sequencer
	operators SettingsSource
}

func NewService(store *Store, seq Sequencer, operators SettingsSource) *Service {
	return &Service{store: store, seq: seq, operators: operators}
}

type RegisterCommand struct {
	Name          string
	OperatorScope string
	VehicleType   fare.VehicleType
}

// Register creates a driver with an allocated display ID, e.g. OP001/DR007.
// New drivers start offline until they report for work.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Driver, error) {
	if cmd.Name == "" {
		return nil, apperr.Validationf("driver name is required")
	}
	if !cmd.VehicleType.Valid() {
		return nil, apperr.Validationf("unknown vehicle type %q", cmd.VehicleType)
	}
	settings, err := s.operators.Get(ctx, cmd.OperatorScope)
	if err != nil {
		return nil, err
	}

	seq, err := s.seq.Allocate(ctx, sequence.DriverScope(cmd.OperatorScope))
	if err != nil {
		return nil, err
	}

	d := &Driver{
		ID:            types.ID(uuid.NewString()),
		DisplayID:     sequence.FormatDriverID(settings.OperatorCode, seq),
		Name:          cmd.Name,
		OperatorScope: cmd.OperatorScope,
		VehicleType:   cmd.VehicleType,
		Availability:  AvailabilityOffline,
		Status:        StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) SetAvailability(ctx context.Context, id types.ID, to Availability) error {
	return s.store.SetAvailability(ctx, id, to)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.Get(ctx, id)
}
