package services

import (
	"context"
	"log"
	"time"

	"fixit-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueEventsQueue carries models.IssueEvent messages.
const IssueEventsQueue = "issue_events"

// ImageStore persists an uploaded image and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, folder string, img *models.ImageUpload) (string, error)
}

// ImageAnalyzer is the AI image analysis collaborator.
type ImageAnalyzer interface {
	Classify(ctx context.Context, imageURL string) (*models.ImageAnalysis, error)
	// CompareResolution scores (0-100) how well the resolution photo shows
	// the reported problem fixed.
	CompareResolution(ctx context.Context, originalURL, resolutionURL string) (int, error)
}

// Geocoder turns coordinates into an address; "" means unknown.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}

// GeoIndexer maps coordinates to index cells for proximity queries.
type GeoIndexer interface {
	Cell(latitude, longitude float64) string
	// Neighborhood returns the cells covering radiusKm around the point.
	Neighborhood(latitude, longitude, radiusKm float64) []string
}

type EventPublisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
}

func publishIssueEvent(ctx context.Context, p EventPublisher, kind models.IssueEventType, issue *models.Issue, actor *models.User, at time.Time) {
	if p == nil {
		return
	}
	ev := models.IssueEvent{
		Type:       kind,
		IssueID:    issue.ID.Hex(),
		Status:     issue.Status,
		OccurredAt: at,
	}
	if actor != nil && !actor.ID.IsZero() {
		ev.ActorID = actor.ID.Hex()
	}
	if err := p.Publish(ctx, IssueEventsQueue, ev); err != nil {
		log.Printf("[EVENTS] failed to publish %s for issue %s: %v", kind, ev.IssueID, err)
	}
}

func actorRef(actor *models.User) *primitive.ObjectID {
	if actor == nil || actor.ID.IsZero() {
		return nil
	}
	id := actor.ID
	return &id
}
