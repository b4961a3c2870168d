package repository

import (
	"context"

	"fixit-be/apperrors"
	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoNotifications struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotifications{coll: db.Collection(notificationsCollection)}
}

func (r *mongoNotifications) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return translate(err, "Notification")
}

func (r *mongoNotifications) ListForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.Notification, int64, error) {
	page, limit = Normalize(page, limit)
	filter := bson.M{"userId": userID}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "Notification")
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, translate(err, "Notification")
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, translate(err, "Notification")
	}
	return notifications, total, nil
}

func (r *mongoNotifications) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	return n, translate(err, "Notification")
}

func (r *mongoNotifications) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return translate(err, "Notification")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Notification")
	}
	return nil
}

func (r *mongoNotifications) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, bson.M{"userId": userID, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, translate(err, "Notification")
	}
	return res.ModifiedCount, nil
}
