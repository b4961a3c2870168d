package services_test

import (
	"context"
	"testing"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newVoteFixture(t *testing.T) (*env, *services.VoteService, *models.User, *models.User, models.Issue) {
	t.Helper()
	reporter := &models.User{Name: "Rita"}
	voter := &models.User{Name: "Vic"}
	e := newEnv(t, nil, reporter, voter)
	issue := models.Issue{
		ID:         primitive.NewObjectID(),
		Title:      "Pothole",
		Category:   models.Roads,
		Status:     models.StatusReported,
		Priority:   models.PriorityMedium,
		ReportedBy: ptr(reporter.ID),
		IsActive:   true,
	}
	require.NoError(t, e.issues.Create(context.Background(), &issue))
	return e, services.NewVoteService(e.issues, e.scorer), reporter, voter, issue
}

func TestVote_UpvoteAwardsReporter(t *testing.T) {
	e, votes, reporter, voter, issue := newVoteFixture(t)

	res, err := votes.Vote(context.Background(), issue.ID, voter, models.Upvote)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Upvotes)
	assert.Equal(t, 0, res.Downvotes)
	assert.Equal(t, models.Upvote, res.UserVote)
	assert.Equal(t, models.PriorityMedium, res.Priority)
	assert.Equal(t, services.PointTable[services.EventReceiveUpvote], e.users.Get(reporter.ID).ImpactScore)

	stored, _ := e.issues.Get(issue.ID)
	assert.Equal(t, []primitive.ObjectID{voter.ID}, stored.Upvoters)
}

func TestVote_SameVoteTogglesOff(t *testing.T) {
	e, votes, reporter, voter, issue := newVoteFixture(t)
	ctx := context.Background()

	_, err := votes.Vote(ctx, issue.ID, voter, models.Upvote)
	require.NoError(t, err)
	res, err := votes.Vote(ctx, issue.ID, voter, models.Upvote)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, models.NoVote, res.UserVote)
	// Toggling off does not take back the award.
	assert.Equal(t, 2, e.users.Get(reporter.ID).ImpactScore)
}

func TestVote_SwitchMovesBetweenSets(t *testing.T) {
	_, votes, _, voter, issue := newVoteFixture(t)
	ctx := context.Background()

	_, err := votes.Vote(ctx, issue.ID, voter, models.Upvote)
	require.NoError(t, err)
	res, err := votes.Vote(ctx, issue.ID, voter, models.Downvote)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Upvotes)
	assert.Equal(t, 1, res.Downvotes)
	assert.Equal(t, models.PriorityLow, res.Priority)

	history, err := votes.History(ctx, voter.ID)
	require.NoError(t, err)
	assert.Empty(t, history.Upvoted)
	assert.Equal(t, []primitive.ObjectID{issue.ID}, history.Downvoted)
}

func TestVote_SelfUpvoteEarnsNothing(t *testing.T) {
	e, votes, reporter, _, issue := newVoteFixture(t)

	_, err := votes.Vote(context.Background(), issue.ID, reporter, models.Upvote)
	require.NoError(t, err)
	assert.Zero(t, e.users.Get(reporter.ID).ImpactScore)
}

func TestVote_Rejections(t *testing.T) {
	_, votes, _, voter, issue := newVoteFixture(t)
	ctx := context.Background()

	_, err := votes.Vote(ctx, issue.ID, nil, models.Upvote)
	assert.True(t, apperrors.Is(err, apperrors.KindUnauthorized))

	_, err = votes.Vote(ctx, issue.ID, voter, "sideways")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = votes.Vote(ctx, primitive.NewObjectID(), voter, models.Upvote)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}
