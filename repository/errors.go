package repository

import (
	"context"
	"errors"

	"fixit-be/apperrors"

	"go.mongodb.org/mongo-driver/mongo"
)

// translate classifies driver errors. entity names what was looked up.
func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.NotFound(entity)
	case errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err):
		return apperrors.Unavailable("Database unavailable", err)
	default:
		return apperrors.Internal("database error", err)
	}
}
