package model

import "time"

// OfficeLock is the advisory lock serializing booking attempts for one
// office. The _id is derived from the office so at most one holder exists per
// office; ExpiresAt is the lease deadline, enforced by a TTL index so a
// crashed holder cannot starve other bookers.
type OfficeLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

const officeLockKeyPrefix = "office-lock:"

// OfficeLockKey builds the lock _id for an office.
func OfficeLockKey(officeID string) string {
	return officeLockKeyPrefix + officeID
}
