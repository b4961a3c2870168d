package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"fixit-be/models"
	"fixit-be/platform/queue"
	"fixit-be/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressEnricher fills in missing issue addresses.
type AddressEnricher interface {
	EnrichAddress(ctx context.Context, id primitive.ObjectID) error
}

// IssueConsumer handles issue events off the request path.
type IssueConsumer struct {
	consumer queue.Consumer
	enricher AddressEnricher
}

func NewIssueConsumer(consumer queue.Consumer, enricher AddressEnricher) *IssueConsumer {
	return &IssueConsumer{consumer: consumer, enricher: enricher}
}

func (c *IssueConsumer) Start(ctx context.Context) error {
	log.Printf("[WORKER] Starting IssueConsumer on queue '%s'...", services.IssueEventsQueue)
	return c.consumer.Consume(ctx, services.IssueEventsQueue, c.Handle)
}

// Handle processes one message body.
func (c *IssueConsumer) Handle(ctx context.Context, body []byte) error {
	var ev models.IssueEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("failed to unmarshal issue event: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(ev.IssueID)
	if err != nil {
		return fmt.Errorf("invalid issue id %q: %w", ev.IssueID, err)
	}

	switch ev.Type {
	case models.IssueCreated:
		log.Printf("[WORKER] Enriching new issue %s", ev.IssueID)
		if err := c.enricher.EnrichAddress(ctx, id); err != nil {
			return fmt.Errorf("address enrichment failed for issue %s: %w", ev.IssueID, err)
		}
	case models.IssueStatusChanged:
		log.Printf("[WORKER] Issue %s is now %s", ev.IssueID, ev.Status)
	default:
		log.Printf("[WORKER] Ignoring unknown event %q", ev.Type)
	}
	return nil
}
