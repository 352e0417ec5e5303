package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "deskhub"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultLockWaitTimeout   = 3 * time.Second
	DefaultLockRetryInterval = 100 * time.Millisecond
	DefaultLockLeaseDuration = 10 * time.Second

	DefaultReservationEventsTopic = "reservation-events"
	DefaultReservationDLQTopic    = "reservation-events-dlq"

	DefaultPaginationLimit = 100
)
