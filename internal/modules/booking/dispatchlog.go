package booking

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"cabwise/internal/types"
)

const offeredSetTTL = 2 * time.Hour

// RedisDispatchLog remembers which drivers have already been offered a
// booking, so decline and expiry rematches skip them. Entries age out with
// the booking's dispatch lifetime.
type RedisDispatchLog struct {
	rdb *redis.Client
}

func NewRedisDispatchLog(rdb *redis.Client) *RedisDispatchLog {
	return &RedisDispatchLog{rdb: rdb}
}

func offeredKey(bookingID types.ID) string {
	return "dispatch:offered:" + string(bookingID)
}

func (l *RedisDispatchLog) RecordOffered(ctx context.Context, bookingID, driverID types.ID) error {
	key := offeredKey(bookingID)
	if err := l.rdb.SAdd(ctx, key, string(driverID)).Err(); err != nil {
		return err
	}
	return l.rdb.Expire(ctx, key, offeredSetTTL).Err()
}

func (l *RedisDispatchLog) OfferedDrivers(ctx context.Context, bookingID types.ID) ([]types.ID, error) {
	members, err := l.rdb.SMembers(ctx, offeredKey(bookingID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]types.ID, 0, len(members))
	for _, m := range members {
		out = append(out, types.ID(m))
	}
	return out, nil
}
