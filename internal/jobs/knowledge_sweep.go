package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

const knowledgeSweepLockKey = "lock:jobs:knowledge_sweep"

// KnowledgeSweeper removes expired knowledge records
type KnowledgeSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Locker is a distributed lock, satisfied by services.RedisService
type Locker interface {
	AcquireLock(ctx context.Context, lockKey string, lockValue string, expiration time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// KnowledgeSweepJob deletes knowledge records past their TTL. When a locker is
// set, only one coordinator instance sweeps per run.
type KnowledgeSweepJob struct {
	sweeper    KnowledgeSweeper
	locker     Locker
	instanceID string
	lockTTL    time.Duration
}

// NewKnowledgeSweepJob creates a sweep job. locker may be nil.
func NewKnowledgeSweepJob(sweeper KnowledgeSweeper, locker Locker) *KnowledgeSweepJob {
	return &KnowledgeSweepJob{
		sweeper:    sweeper,
		locker:     locker,
		instanceID: uuid.New().String(),
		lockTTL:    2 * time.Minute,
	}
}

// Run sweeps once
func (j *KnowledgeSweepJob) Run(ctx context.Context) error {
	if j.locker != nil {
		acquired, err := j.locker.AcquireLock(ctx, knowledgeSweepLockKey, j.instanceID, j.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			log.Println("⏭️  [KNOWLEDGE-SWEEP] Another instance holds the sweep lock, skipping")
			return nil
		}
		defer func() {
			if _, err := j.locker.ReleaseLock(context.Background(), knowledgeSweepLockKey, j.instanceID); err != nil {
				log.Printf("⚠️ [KNOWLEDGE-SWEEP] Failed to release lock: %v", err)
			}
		}()
	}

	swept, err := j.sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("knowledge sweep failed: %w", err)
	}
	log.Printf("✅ [KNOWLEDGE-SWEEP] Removed %d expired record(s)", swept)
	return nil
}
