package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// VoteType enum
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
	NoVote   VoteType = ""
)

func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// VoteOutcome describes the state after ApplyVote.
type VoteOutcome struct {
	Current VoteType
	// UpvoteAdded is set when the user moved into the upvoters set.
	UpvoteAdded bool
}

func (i *Issue) VoteBalance() int {
	return len(i.Upvoters) - len(i.Downvoters)
}

// VoteOf returns the vote userID currently holds on the issue.
func (i *Issue) VoteOf(userID primitive.ObjectID) VoteType {
	if containsID(i.Upvoters, userID) {
		return Upvote
	}
	if containsID(i.Downvoters, userID) {
		return Downvote
	}
	return NoVote
}

// ApplyVote toggles a vote: repeating the held vote clears it, the opposite
// vote moves the user between sets. Priority is re-derived afterwards.
func (i *Issue) ApplyVote(userID primitive.ObjectID, vote VoteType) VoteOutcome {
	previous := i.VoteOf(userID)
	i.Upvoters = removeID(i.Upvoters, userID)
	i.Downvoters = removeID(i.Downvoters, userID)

	var out VoteOutcome
	if previous != vote {
		switch vote {
		case Upvote:
			i.Upvoters = append(i.Upvoters, userID)
			out.UpvoteAdded = true
		case Downvote:
			i.Downvoters = append(i.Downvoters, userID)
		}
		out.Current = vote
	}
	i.Priority = DerivePriority(i.VoteBalance())
	return out
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
