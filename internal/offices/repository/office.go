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

	officeserrors "deskhub/internal/offices/errors"
	"deskhub/pkg/config"
	"deskhub/pkg/model"
)

const (
	CollectionName = "Offices"
)

// OfficeRepository is a read-only view of the office directory. Listing,
// search and moderation belong to the offices service; the reservation core
// only resolves single offices and host ownership.
type OfficeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Office, error)
	FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

type mongoOfficeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOfficeRepository(cfg *config.Config) OfficeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOfficeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoOfficeRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoOfficeRepository) FindByID(ctx context.Context, id string) (*model.Office, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", officeserrors.ErrInvalidID, id)
	}

	var office model.Office
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&office)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, officeserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find office: %w", err)
	}

	return &office, nil
}

func (r *mongoOfficeRepository) FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find offices by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode office IDs: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID.Hex())
	}

	return ids, nil
}
