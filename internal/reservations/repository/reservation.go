package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reservationserrors "deskhub/internal/reservations/errors"
	"deskhub/pkg/config"
	mongotx "deskhub/pkg/db/mongo"
	"deskhub/pkg/model"
)

const (
	CollectionName = "Reservations"
)

// ListFilter narrows user and host listings. Zero values mean "no filter".
type ListFilter struct {
	Status   model.ReservationStatus
	OfficeID string
	Between  *model.DateRange
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindActiveOverlapping(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error)
	FindByUser(ctx context.Context, userID string, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error)
	CountByUser(ctx context.Context, userID string, filter ListFilter) (int64, error)
	FindByOffices(ctx context.Context, officeIDs []string, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error)
	CountByOffices(ctx context.Context, officeIDs []string, filter ListFilter) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoReservationRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoReservationRepository(cfg *config.Config) ReservationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoReservationRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, reservation)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		reservation.ID = oid.Hex()
	}
	return nil
}

func (r *mongoReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	var reservation model.Reservation
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return &reservation, nil
}

// FindActiveOverlapping returns active reservations for the office that share
// at least one day with rng (dates are inclusive on both ends).
func (r *mongoReservationRepository) FindActiveOverlapping(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"office_id":  officeID,
		"status":     model.ReservationStatusActive,
		"start_date": bson.M{"$lte": rng.End.Time},
		"end_date":   bson.M{"$gte": rng.Start.Time},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

// UpdateStatus flips the status only when the stored status still equals
// `from`, so a cancel/cancel race has exactly one winner. Returns the number
// of matched documents.
func (r *mongoReservationRepository) UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to update reservation status: %w", err)
	}

	return result.MatchedCount, nil
}

func (r *mongoReservationRepository) FindByUser(ctx context.Context, userID string, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	return r.findFiltered(ctx, bson.M{"user_id": userID}, filter, limit, offset)
}

func (r *mongoReservationRepository) CountByUser(ctx context.Context, userID string, filter ListFilter) (int64, error) {
	return r.countFiltered(ctx, bson.M{"user_id": userID}, filter)
}

func (r *mongoReservationRepository) FindByOffices(ctx context.Context, officeIDs []string, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	return r.findFiltered(ctx, bson.M{"office_id": bson.M{"$in": officeIDs}}, filter, limit, offset)
}

func (r *mongoReservationRepository) CountByOffices(ctx context.Context, officeIDs []string, filter ListFilter) (int64, error) {
	return r.countFiltered(ctx, bson.M{"office_id": bson.M{"$in": officeIDs}}, filter)
}

func (r *mongoReservationRepository) findFiltered(ctx context.Context, base bson.M, filter ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, applyListFilter(base, filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*model.Reservation
	if err = cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}

	return reservations, nil
}

func (r *mongoReservationRepository) countFiltered(ctx context.Context, base bson.M, filter ListFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, applyListFilter(base, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

// applyListFilter layers the optional listing filters onto the base query.
// The between-dates predicate matches reservations that start in the window,
// end in the window, or span it entirely.
func applyListFilter(base bson.M, filter ListFilter) bson.M {
	query := bson.M{}
	for k, v := range base {
		query[k] = v
	}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.OfficeID != "" {
		query["office_id"] = filter.OfficeID
	}
	if filter.Between != nil {
		from := filter.Between.Start.Time
		to := filter.Between.End.Time
		query["$or"] = []bson.M{
			{"start_date": bson.M{"$gte": from, "$lte": to}},
			{"end_date": bson.M{"$gte": from, "$lte": to}},
			{"start_date": bson.M{"$lt": from}, "end_date": bson.M{"$gt": to}},
		}
	}

	return query
}

func (r *mongoReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
