package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes every collection relies on. The
// unique room index in particular is load-bearing; it arbitrates
// concurrent room creation.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexed := []interface {
		EnsureIndexes(ctx context.Context) error
	}{
		&roomRepository{db: database},
		&messageRepository{db: database},
		&roomAuditLogRepository{db: database},
	}

	for _, r := range indexed {
		if err := r.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
