package repository

import (
	"context"
	"strings"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoUsers struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &mongoUsers{coll: db.Collection(usersCollection)}
}

func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Validation("User with this email already exists")
	}
	return translate(err, "User")
}

func (r *mongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

func (r *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user); err != nil {
		return nil, translate(err, "User")
	}
	return &user, nil
}

func (r *mongoUsers) CountByEmail(ctx context.Context, email string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
	return n, translate(err, "User")
}

func (r *mongoUsers) ListByRole(ctx context.Context, role models.Role, department *models.Department) ([]models.User, error) {
	filter := bson.M{"role": role}
	if department != nil {
		filter["department"] = *department
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, translate(err, "User")
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, translate(err, "User")
	}
	return users, nil
}

func (r *mongoUsers) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err, "User")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("User")
	}
	return nil
}

func (r *mongoUsers) UpdateScore(ctx context.Context, id primitive.ObjectID, score, level int) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{
		"impactScore": score,
		"level":       level,
		"updatedAt":   time.Now(),
	}})
}

func (r *mongoUsers) AddRedeemedReward(ctx context.Context, id primitive.ObjectID, reward models.RedeemedReward) error {
	return r.update(ctx, id, bson.M{
		"$push": bson.M{"redeemedRewards": reward},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
}

func (r *mongoUsers) SetRole(ctx context.Context, id primitive.ObjectID, role models.Role, department *models.Department) error {
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now()}}
	if department != nil {
		update["$set"].(bson.M)["department"] = *department
	} else {
		update["$unset"] = bson.M{"department": ""}
	}
	return r.update(ctx, id, update)
}
