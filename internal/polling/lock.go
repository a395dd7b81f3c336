package polling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockTTL = 2 * time.Minute

// TripLock serializes polling for a single trip across worker
// goroutines (local keyed mutex) and across process instances (Redis
// distributed lock), mirroring the teacher's session-cache pattern of
// treating Redis as the shared source of truth with a local fast path.
type TripLock struct {
	redis *redis.Client
	local sync.Map // uuid.UUID -> *sync.Mutex
}

func NewTripLock(redisClient *redis.Client) *TripLock {
	return &TripLock{redis: redisClient}
}

func (l *TripLock) localMutex(tripID uuid.UUID) *sync.Mutex {
	v, _ := l.local.LoadOrStore(tripID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Acquire takes the local mutex then the Redis lock, and returns a
// release function. If the Redis lock cannot be acquired (another
// instance is polling this trip), ok is false and the local mutex is
// released immediately.
func (l *TripLock) Acquire(ctx context.Context, tripID uuid.UUID) (release func(), ok bool) {
	mu := l.localMutex(tripID)
	mu.Lock()

	if l.redis == nil {
		return func() { mu.Unlock() }, true
	}

	key := fmt.Sprintf("tripwatch:poll-lock:%s", tripID)
	acquired, err := l.redis.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil || !acquired {
		mu.Unlock()
		return nil, false
	}

	return func() {
		l.redis.Del(ctx, key)
		mu.Unlock()
	}, true
}
