package services

import (
	"context"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VoteResult struct {
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
	Priority  models.Priority `json:"priority"`
	UserVote  models.VoteType `json:"userVote"`
}

type VoteHistory struct {
	Upvoted   []primitive.ObjectID `json:"upvotedIssues"`
	Downvoted []primitive.ObjectID `json:"downvotedIssues"`
}

// VoteService keeps votes on the issue document only; a user's history is
// derived by query.
type VoteService struct {
	issues repository.IssueRepository
	scorer *Scorer
	now    func() time.Time
}

func NewVoteService(issues repository.IssueRepository, scorer *Scorer) *VoteService {
	return &VoteService{issues: issues, scorer: scorer, now: time.Now}
}

func (s *VoteService) Vote(ctx context.Context, issueID primitive.ObjectID, actor *models.User, vote models.VoteType) (*VoteResult, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("User not authenticated")
	}
	if !vote.Valid() {
		return nil, apperrors.Validation("Invalid vote type")
	}
	issue, err := s.issues.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if !issue.IsActive {
		return nil, apperrors.NotFound("Issue")
	}

	outcome := issue.ApplyVote(actor.ID, vote)
	issue.UpdatedAt = s.now()
	if err := s.issues.UpdateVotes(ctx, issue); err != nil {
		return nil, err
	}

	if outcome.UpvoteAdded && !issue.IsReporter(actor.ID) {
		s.scorer.award(ctx, issue.ReportedBy, EventReceiveUpvote)
	}

	return &VoteResult{
		Upvotes:   len(issue.Upvoters),
		Downvotes: len(issue.Downvoters),
		Priority:  issue.Priority,
		UserVote:  outcome.Current,
	}, nil
}

func (s *VoteService) History(ctx context.Context, userID primitive.ObjectID) (*VoteHistory, error) {
	up, down, err := s.issues.VotedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if up == nil {
		up = []primitive.ObjectID{}
	}
	if down == nil {
		down = []primitive.ObjectID{}
	}
	return &VoteHistory{Upvoted: up, Downvoted: down}, nil
}
