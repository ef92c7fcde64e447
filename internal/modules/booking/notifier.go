package booking

import (
	"context"

	"github.com/redis/go-redis/v9"

	"cabwise/internal/types"
)

// RedisNotifier fans out per-passenger change pings over redis pub/sub. The
// payload carries no state; watchers re-read the booking on every ping.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func passengerChannel(passengerID types.ID) string {
	return "booking:changed:" + string(passengerID)
}

func (n *RedisNotifier) Publish(ctx context.Context, passengerID types.ID) error {
	return n.rdb.Publish(ctx, passengerChannel(passengerID), "1").Err()
}

// Subscribe returns a channel that receives one value per published change.
// The returned cancel func must be called to release the subscription.
func (n *RedisNotifier) Subscribe(ctx context.Context, passengerID types.ID) (<-chan struct{}, func()) {
	sub := n.rdb.Subscribe(ctx, passengerChannel(passengerID))
	out := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
					// A ping is already queued; one is enough.
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = sub.Close()
	}
	return out, cancel
}
