package repository

import (
	"context"
	"regexp"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoIssues struct {
	coll *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) IssueRepository {
	return &mongoIssues{coll: db.Collection(issuesCollection)}
}

func (r *mongoIssues) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, issue)
	return translate(err, "Issue")
}

func (r *mongoIssues) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		return nil, translate(err, "Issue")
	}
	return &issue, nil
}

func issueQuery(f IssueFilter) bson.M {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}
	if f.AssignedTo != nil {
		filter["assignedTo"] = *f.AssignedTo
	}
	if len(f.H3Cells) > 0 {
		filter["h3Index"] = bson.M{"$in": f.H3Cells}
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

func (r *mongoIssues) List(ctx context.Context, f IssueFilter) ([]models.Issue, int64, error) {
	filter := issueQuery(f)
	page, limit := Normalize(f.Page, f.Limit)

	sortOptions := bson.D{{Key: "createdAt", Value: -1}}
	if f.Sort == "oldest" {
		sortOptions = bson.D{{Key: "createdAt", Value: 1}}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translate(err, "Issue")
	}

	findOptions := options.Find().
		SetSort(sortOptions).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, translate(err, "Issue")
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, translate(err, "Issue")
	}
	return issues, total, nil
}

func (r *mongoIssues) ListActive(ctx context.Context) ([]models.Issue, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, translate(err, "Issue")
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, translate(err, "Issue")
	}
	return issues, nil
}

func (r *mongoIssues) Save(ctx context.Context, issue *models.Issue) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": issue.ID}, issue)
	if err != nil {
		return translate(err, "Issue")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Issue")
	}
	return nil
}

func (r *mongoIssues) SaveTransition(ctx context.Context, issue *models.Issue, from models.IssueStatus) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": issue.ID, "status": from}, issue)
	if err != nil {
		return translate(err, "Issue")
	}
	if res.MatchedCount == 0 {
		return apperrors.Validation("Issue is no longer %s", from)
	}
	return nil
}

func (r *mongoIssues) UpdateVotes(ctx context.Context, issue *models.Issue) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": issue.ID}, bson.M{"$set": bson.M{
		"upvoters":   issue.Upvoters,
		"downvoters": issue.Downvoters,
		"priority":   issue.Priority,
		"updatedAt":  issue.UpdatedAt,
	}})
	if err != nil {
		return translate(err, "Issue")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Issue")
	}
	return nil
}

func (r *mongoIssues) AppendComment(ctx context.Context, id primitive.ObjectID, comment models.Comment) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "isActive": true}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updatedAt": comment.CreatedAt},
	})
	if err != nil {
		return translate(err, "Issue")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Issue")
	}
	return nil
}

func (r *mongoIssues) SetAddress(ctx context.Context, id primitive.ObjectID, address string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"location.address": address,
		"updatedAt":        time.Now(),
	}})
	return translate(err, "Issue")
}

func (r *mongoIssues) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "Issue")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Issue")
	}
	return nil
}

func (r *mongoIssues) CountOpenAssigned(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"assignedTo": userID,
		"isActive":   true,
		"status":     bson.M{"$in": []models.IssueStatus{models.StatusReported, models.StatusInProgress}},
	})
	return n, translate(err, "Issue")
}

func (r *mongoIssues) VotedBy(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, []primitive.ObjectID, error) {
	filter := bson.M{
		"isActive": true,
		"$or":      []bson.M{{"upvoters": userID}, {"downvoters": userID}},
	}
	projection := bson.M{"_id": 1, "upvoters": 1, "downvoters": 1}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, nil, translate(err, "Issue")
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, nil, translate(err, "Issue")
	}

	up, down := []primitive.ObjectID{}, []primitive.ObjectID{}
	for i := range issues {
		switch issues[i].VoteOf(userID) {
		case models.Upvote:
			up = append(up, issues[i].ID)
		case models.Downvote:
			down = append(down, issues[i].ID)
		}
	}
	return up, down, nil
}
