package repository

import (
	"context"
	"time"

	"github.com/hilthontt/relay/internal/domain"
	"github.com/hilthontt/relay/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageRepository struct {
	db *mongo.Database
}

func NewMessageRepository(database *mongo.Database) domain.MessageRepository {
	return &messageRepository{
		db: database,
	}
}

// Insert stores the message with a server-assigned timestamp. Delivery
// order within a room follows insertion order, so the timestamp is
// non-decreasing per room.
func (r *messageRepository) Insert(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if message == nil || message.RoomID == "" || message.Username == "" {
		return nil, domain.ErrInvalidInput
	}

	stored := *message
	stored.Timestamp = time.Now().UTC()

	collection := r.db.Collection(db.MessagesCollection)

	if _, err := collection.InsertOne(ctx, stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// GetRecentByRoomID fetches the newest limit messages and returns them
// oldest-first: sort descending, limit, then reverse.
func (r *messageRepository) GetRecentByRoomID(ctx context.Context, roomID string, limit int64) ([]domain.Message, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 50
	}

	collection := r.db.Collection(db.MessagesCollection)

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *messageRepository) DeleteByRoomID(ctx context.Context, roomID string) error {
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.DeleteMany(ctx, bson.M{"roomId": roomID})
	return err
}

func (r *messageRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.MessagesCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "roomId", Value: 1},
			{Key: "timestamp", Value: -1},
		},
	})
	return err
}
