// Per-operator dispatch configuration, consumed read-only by the core.
package operator

import "time"

type DispatchMode string

const (
	DispatchAuto   DispatchMode = "auto"
	DispatchManual DispatchMode = "manual"
)

// QueuePolicy decides what the timeout sweep does with a queued booking that
// outlived its window: try another dispatch round, or give up.
type QueuePolicy string

const (
	QueueRematch      QueuePolicy = "rematch"
	QueueUnassignable QueuePolicy = "unassignable"
)

type Settings struct {
	Scope           string
	DisplayPrefix   string
	OperatorCode    string
	DispatchMode    DispatchMode
	SurgeEnabled    bool
	SurgeMultiplier float64
	// MaxOfferWait bounds how long a driver may sit on a pending offer.
	// Zero means the platform default applies.
	MaxOfferWait    time.Duration
	AllowCrossScope bool
	QueuePolicy     QueuePolicy
}
