package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	issuesCollection        = "issues"
	usersCollection         = "users"
	thresholdsCollection    = "thresholds"
	notificationsCollection = "notifications"
)

// EnsureIndexes creates the indexes every collection relies on.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		issuesCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "h3Index", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "status", Value: 1}, {Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
			{Keys: bson.D{{Key: "upvoters", Value: 1}}},
			{Keys: bson.D{{Key: "downvoters", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "department", Value: 1}}},
		},
		thresholdsCollection: {
			{Keys: bson.D{{Key: "department", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for name, indexes := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("creating indexes for %s: %w", name, err)
		}
	}
	return nil
}
