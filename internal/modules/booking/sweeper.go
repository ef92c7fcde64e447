package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cabwise/internal/modules/offer"
	"cabwise/internal/modules/operator"
	"cabwise/internal/observability"
)

const sweepBatchSize = 50

// RunTimeoutSweep periodically expires overdue offers and applies queue
// policies to bookings that outlived their window. Runs until ctx is done.
func (s *Service) RunTimeoutSweep(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepTick)
	defer ticker.Stop()

	s.logger.Info("timeout sweep started", zap.Duration("tick", s.cfg.SweepTick))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("timeout sweep stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Service) sweepOnce(ctx context.Context) {
	now := s.now()
	s.sweepExpiredOffers(ctx, now)
	s.sweepQueueTimeouts(ctx, now)
	observability.SweepRuns.Inc()
}

func (s *Service) sweepExpiredOffers(ctx context.Context, now time.Time) {
	expired, err := s.offers.ListExpired(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.Warn("list expired offers", zap.Error(err))
		return
	}
	for _, o := range expired {
		if err := s.expireOffer(ctx, o); err != nil {
			s.logger.Warn("expire offer",
				zap.String("offer_id", string(o.ID)),
				zap.Error(err))
		}
	}
}

// expireOffer resolves one overdue offer: mark it expired, then put the
// booking back in the queue. The CAS on the offer keeps this idempotent
// against a driver responding at the same instant.
func (s *Service) expireOffer(ctx context.Context, o *offer.Offer) error {
	ok, err := s.offers.UpdateStatus(ctx, o.ID, offer.StatusPending, offer.StatusExpired)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	observability.OfferResponses.WithLabelValues("expired").Inc()

	b, err := s.store.Get(ctx, o.BookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusPendingOffer {
		return nil
	}
	return s.requeueAfterOffer(ctx, b, o, "offer expired")
}

func (s *Service) sweepQueueTimeouts(ctx context.Context, now time.Time) {
	timedOut, err := s.store.ListQueueTimedOut(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.Warn("list timed-out bookings", zap.Error(err))
		return
	}
	for _, b := range timedOut {
		if err := s.resolveQueueTimeout(ctx, b); err != nil {
			s.logger.Warn("resolve queue timeout",
				zap.String("booking_id", string(b.ID)),
				zap.Error(err))
		}
	}
}

// resolveQueueTimeout applies the operator's queue policy to one overdue
// booking: either another dispatch round with a fresh window, or give up and
// mark it unassignable.
func (s *Service) resolveQueueTimeout(ctx context.Context, b *Booking) error {
	settings, err := s.operators.Get(ctx, b.OperatorScope)
	if err != nil {
		return err
	}

	if settings.QueuePolicy != operator.QueueUnassignable {
		dispatched, err := s.attemptDispatch(ctx, b, settings)
		if err != nil {
			return err
		}
		if !dispatched {
			return s.store.ExtendTimeout(ctx, b.ID, s.now().Add(s.cfg.QueueWindow))
		}
		return nil
	}

	ok, err := s.store.Transition(ctx, TransitionParams{
		ID:           b.ID,
		From:         StatusPendingAssignment,
		To:           StatusUnassignable,
		Version:      b.StatusVersion,
		ClearTimeout: true,
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.recordEvent(ctx, b.ID, StatusPendingAssignment, StatusUnassignable, "system", nil)
	s.notifyChange(ctx, b.PassengerID)
	s.producer.EmitTransition(ctx, string(b.ID), string(StatusPendingAssignment), string(StatusUnassignable))
	s.logger.Info("booking marked unassignable", zap.String("booking_id", string(b.ID)))
	return nil
}
