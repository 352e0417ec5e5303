package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	reservationserrors "deskhub/internal/reservations/errors"
	"deskhub/pkg/config"
	"deskhub/pkg/model"
)

const (
	LockCollectionName = "Office_locks"
)

// OfficeLockRepository provides the per-office advisory lock. At most one
// holder exists per office; the lease expires after LockLeaseDuration so a
// crashed holder cannot block bookings forever (a TTL index on expires_at
// reaps stale documents as a backstop).
type OfficeLockRepository interface {
	Acquire(ctx context.Context, officeID, owner string) (*model.OfficeLock, error)
	Release(ctx context.Context, lock *model.OfficeLock) error
}

type mongoOfficeLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOfficeLockRepository(cfg *config.Config) OfficeLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOfficeLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire blocks until the office lock is obtained or LockWaitTimeout
// elapses, polling every LockRetryInterval. Returns ErrLockNotAcquired when
// the wait budget runs out.
func (r *mongoOfficeLockRepository) Acquire(ctx context.Context, officeID, owner string) (*model.OfficeLock, error) {
	deadline := time.Now().Add(r.cfg.LockWaitTimeout)
	ticker := time.NewTicker(r.cfg.LockRetryInterval)
	defer ticker.Stop()

	for {
		lock, err := r.tryAcquire(ctx, officeID, owner)
		if err == nil {
			return lock, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to acquire office lock: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, reservationserrors.ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *mongoOfficeLockRepository) tryAcquire(ctx context.Context, officeID, owner string) (*model.OfficeLock, error) {
	now := time.Now().UTC()
	lock := &model.OfficeLock{
		ID:        model.OfficeLockKey(officeID),
		Owner:     owner,
		ExpiresAt: now.Add(r.cfg.LockLeaseDuration),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return lock, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		// The TTL reaper runs on a coarse interval; evict a holder whose
		// lease has already expired instead of waiting for it.
		if r.evictExpired(ctx, lock.ID) {
			if _, retryErr := r.collection.InsertOne(ctx, lock); retryErr == nil {
				return lock, nil
			}
		}
	}

	return nil, err
}

func (r *mongoOfficeLockRepository) evictExpired(ctx context.Context, lockID string) bool {
	result, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lockID,
		"expires_at": bson.M{"$lte": time.Now().UTC()},
	})
	return err == nil && result.DeletedCount > 0
}

// Release deletes the lock only if this caller still owns it, so a holder
// whose lease expired cannot delete a successor's lock.
func (r *mongoOfficeLockRepository) Release(ctx context.Context, lock *model.OfficeLock) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":   lock.ID,
		"owner": lock.Owner,
	})
	return err
}
