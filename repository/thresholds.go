package repository

import (
	"context"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoThresholds struct {
	coll *mongo.Collection
}

func NewThresholdRepository(db *mongo.Database) ThresholdRepository {
	return &mongoThresholds{coll: db.Collection(thresholdsCollection)}
}

func (r *mongoThresholds) List(ctx context.Context) ([]models.DepartmentThreshold, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, translate(err, "Threshold")
	}
	defer cursor.Close(ctx)

	thresholds := []models.DepartmentThreshold{}
	if err := cursor.All(ctx, &thresholds); err != nil {
		return nil, translate(err, "Threshold")
	}
	return thresholds, nil
}

func (r *mongoThresholds) Get(ctx context.Context, department models.Department) (*models.DepartmentThreshold, error) {
	var t models.DepartmentThreshold
	if err := r.coll.FindOne(ctx, bson.M{"department": department}).Decode(&t); err != nil {
		return nil, translate(err, "Threshold")
	}
	return &t, nil
}

func (r *mongoThresholds) Upsert(ctx context.Context, t *models.DepartmentThreshold) error {
	update := bson.M{
		"$set": bson.M{
			"maxPendingHours":    t.MaxPendingHours,
			"maxInProgressHours": t.MaxInProgressHours,
			"description":        t.Description,
			"isActive":           true,
			"updatedBy":          t.UpdatedBy,
			"updatedAt":          t.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": t.UpdatedAt},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err := r.coll.FindOneAndUpdate(ctx, bson.M{"department": t.Department}, update, opts).Decode(t)
	return translate(err, "Threshold")
}

func (r *mongoThresholds) Deactivate(ctx context.Context, department models.Department, by *primitive.ObjectID, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"department": department}, bson.M{"$set": bson.M{
		"isActive":  false,
		"updatedBy": by,
		"updatedAt": at,
	}})
	if err != nil {
		return translate(err, "Threshold")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Threshold")
	}
	return nil
}
