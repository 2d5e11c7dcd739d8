package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roomRepository struct {
	db *mongo.Database
}

func NewRoomRepository(database *mongo.Database) domain.RoomRepository {
	return &roomRepository{
		db: database,
	}
}

func (r *roomRepository) Exists(ctx context.Context, roomID string) (bool, error) {
	if roomID == "" {
		return false, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	count, err := collection.CountDocuments(ctx, bson.M{"roomId": roomID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Insert persists a new room. The unique index on roomId is the arbiter
// for concurrent creates; a duplicate key from the insert itself maps to
// ErrRoomAlreadyExists.
func (r *roomRepository) Insert(ctx context.Context, room *domain.Room) error {
	if room == nil || room.RoomID == "" || room.Owner == "" {
		return domain.ErrInvalidInput
	}

	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	collection := r.db.Collection(db.RoomsCollection)

	if _, err := collection.InsertOne(ctx, room); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomAlreadyExists
		}
		return err
	}

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	var room domain.Room
	err := collection.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	return &room, nil
}

func (r *roomRepository) Delete(ctx context.Context, roomID string) error {
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.RoomsCollection)

	result, err := collection.DeleteOne(ctx, bson.M{"roomId": roomID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrRoomNotFound
	}

	return nil
}

func (r *roomRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.RoomsCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
