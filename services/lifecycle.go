package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lifecycle drives issues through reported -> in_progress -> resolved -> closed.
// Every check runs before anything is uploaded or written.
type Lifecycle struct {
	Issues        repository.IssueRepository
	Images        ImageStore
	Analyzer      ImageAnalyzer
	Scorer        *Scorer
	Notifications *NotificationService
	Events        EventPublisher
	Now           func() time.Time
}

func (l *Lifecycle) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// load fetches an active issue and checks the caller may move it from the
// expected status to the target.
func (l *Lifecycle) load(ctx context.Context, id primitive.ObjectID, actor *models.User, from, to models.IssueStatus) (*models.Issue, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("User not authenticated")
	}
	issue, err := l.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsActive {
		return nil, apperrors.NotFound("Issue")
	}
	if issue.Status != from {
		return nil, apperrors.Validation("Issue is %s, expected %s", issue.Status, from)
	}
	if !CanTransition(actor, issue, from, to) {
		return nil, apperrors.Forbidden("You are not allowed to change this issue")
	}
	return issue, nil
}

func requireProof(proof *models.ImageUpload) error {
	if proof == nil || proof.Reader == nil || proof.Size == 0 {
		return apperrors.Validation("A proof image is required")
	}
	return nil
}

func (l *Lifecycle) upload(ctx context.Context, issue *models.Issue, proof *models.ImageUpload) (string, error) {
	if l.Images == nil {
		return "", apperrors.Unavailable("Image storage is not configured", nil)
	}
	url, err := l.Images.Upload(ctx, "issues/"+issue.ID.Hex(), proof)
	if err != nil {
		return "", fmt.Errorf("uploading proof image: %w", err)
	}
	return url, nil
}

// StartWork moves an assigned issue to in_progress.
func (l *Lifecycle) StartWork(ctx context.Context, id primitive.ObjectID, actor *models.User, proof *models.ImageUpload) (*models.Issue, error) {
	issue, err := l.load(ctx, id, actor, models.StatusReported, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	if err := requireProof(proof); err != nil {
		return nil, err
	}
	url, err := l.upload(ctx, issue, proof)
	if err != nil {
		return nil, err
	}

	now := l.now()
	issue.WorkStartedAt = &now
	issue.WorkStartedImage = url
	issue.AppendStatus(models.StatusInProgress, actorRef(actor), "Work started", now)
	if err := l.Issues.SaveTransition(ctx, issue, models.StatusReported); err != nil {
		return nil, err
	}

	l.notifyReporter(ctx, issue, models.NotifyStatusUpdate, "Work started",
		fmt.Sprintf("Work has started on %q", issue.Title))
	publishIssueEvent(ctx, l.Events, models.IssueStatusChanged, issue, actor, now)
	return issue, nil
}

// Resolve marks the work done and asks the reporter for review.
func (l *Lifecycle) Resolve(ctx context.Context, id primitive.ObjectID, actor *models.User, proof *models.ImageUpload) (*models.Issue, error) {
	issue, err := l.load(ctx, id, actor, models.StatusInProgress, models.StatusResolved)
	if err != nil {
		return nil, err
	}
	if err := requireProof(proof); err != nil {
		return nil, err
	}
	url, err := l.upload(ctx, issue, proof)
	if err != nil {
		return nil, err
	}

	now := l.now()
	issue.ResolvedAt = &now
	issue.ResolutionImage = url
	issue.ResolutionStatus = models.ResolutionPendingReview
	issue.ResolutionConfidence = l.confidence(ctx, issue, url)
	issue.AppendStatus(models.StatusResolved, actorRef(actor), "Marked as resolved", now)
	if err := l.Issues.SaveTransition(ctx, issue, models.StatusInProgress); err != nil {
		return nil, err
	}

	l.notifyReporter(ctx, issue, models.NotifyResolutionReview, "Please review the fix",
		fmt.Sprintf("%q was marked as resolved. Approve or reject the fix.", issue.Title))
	l.Scorer.award(ctx, issue.ReportedBy, EventResolveIssue)
	publishIssueEvent(ctx, l.Events, models.IssueStatusChanged, issue, actor, now)
	return issue, nil
}

// confidence returns nil when the analysis service cannot score the fix.
func (l *Lifecycle) confidence(ctx context.Context, issue *models.Issue, resolutionURL string) *int {
	if l.Analyzer == nil || len(issue.Images) == 0 {
		return nil
	}
	score, err := l.Analyzer.CompareResolution(ctx, issue.Images[0], resolutionURL)
	if err != nil {
		log.Printf("[LIFECYCLE] resolution analysis unavailable for %s: %v", issue.ID.Hex(), err)
		return nil
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &score
}

// ApproveFix closes a resolved issue. A closed issue cannot be approved
// again, so the confirmation award is granted once.
func (l *Lifecycle) ApproveFix(ctx context.Context, id primitive.ObjectID, actor *models.User) (*models.Issue, error) {
	issue, err := l.load(ctx, id, actor, models.StatusResolved, models.StatusClosed)
	if err != nil {
		return nil, err
	}

	now := l.now()
	issue.ResolutionStatus = models.ResolutionVerified
	issue.ClosedAt = &now
	issue.AppendStatus(models.StatusClosed, actorRef(actor), "Fix approved", now)
	if err := l.Issues.SaveTransition(ctx, issue, models.StatusResolved); err != nil {
		return nil, err
	}

	l.notifyAssignee(ctx, issue, models.NotifyStatusUpdate, "Fix approved",
		fmt.Sprintf("The reporter approved your fix for %q", issue.Title))
	l.Scorer.award(ctx, issue.ReportedBy, EventConfirmResolution)
	publishIssueEvent(ctx, l.Events, models.IssueStatusChanged, issue, actor, now)
	return issue, nil
}

// RejectFix reopens a resolved issue for more work.
func (l *Lifecycle) RejectFix(ctx context.Context, id primitive.ObjectID, actor *models.User, reason string) (*models.Issue, error) {
	issue, err := l.load(ctx, id, actor, models.StatusResolved, models.StatusInProgress)
	if err != nil {
		return nil, err
	}

	note := strings.TrimSpace(reason)
	if note == "" {
		note = "Fix rejected"
	}
	now := l.now()
	issue.ResolutionStatus = models.ResolutionRejected
	issue.AppendStatus(models.StatusInProgress, actorRef(actor), note, now)
	if err := l.Issues.SaveTransition(ctx, issue, models.StatusResolved); err != nil {
		return nil, err
	}

	l.notifyAssignee(ctx, issue, models.NotifyStatusUpdate, "Fix rejected",
		fmt.Sprintf("The reporter rejected the fix for %q: %s", issue.Title, note))
	publishIssueEvent(ctx, l.Events, models.IssueStatusChanged, issue, actor, now)
	return issue, nil
}

// SetStatus is the admin override: any status, always logged.
func (l *Lifecycle) SetStatus(ctx context.Context, id primitive.ObjectID, actor *models.User, status models.IssueStatus, note string) (*models.Issue, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("User not authenticated")
	}
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can override the status")
	}
	if !status.Valid() {
		return nil, apperrors.Validation("Invalid status %q", status)
	}
	issue, err := l.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(actor, issue, issue.Status, status) {
		return nil, apperrors.Forbidden("Only admins can override the status")
	}

	from := issue.Status
	now := l.now()
	switch status {
	case models.StatusInProgress:
		if issue.WorkStartedAt == nil {
			issue.WorkStartedAt = &now
		}
	case models.StatusResolved:
		if issue.ResolvedAt == nil {
			issue.ResolvedAt = &now
		}
	case models.StatusClosed:
		issue.ClosedAt = &now
	}
	issue.AppendStatus(status, actorRef(actor), strings.TrimSpace(note), now)
	if err := l.Issues.SaveTransition(ctx, issue, from); err != nil {
		return nil, err
	}

	l.notifyReporter(ctx, issue, models.NotifyStatusUpdate, "Status updated",
		fmt.Sprintf("%q is now %s", issue.Title, status))
	publishIssueEvent(ctx, l.Events, models.IssueStatusChanged, issue, actor, now)
	return issue, nil
}

func (l *Lifecycle) notifyReporter(ctx context.Context, issue *models.Issue, kind models.NotificationType, title, message string) {
	if issue.ReportedBy == nil {
		return
	}
	l.notify(ctx, *issue.ReportedBy, issue, kind, title, message)
}

func (l *Lifecycle) notifyAssignee(ctx context.Context, issue *models.Issue, kind models.NotificationType, title, message string) {
	if issue.AssignedTo == nil {
		return
	}
	l.notify(ctx, *issue.AssignedTo, issue, kind, title, message)
}

func (l *Lifecycle) notify(ctx context.Context, userID primitive.ObjectID, issue *models.Issue, kind models.NotificationType, title, message string) {
	if l.Notifications == nil {
		return
	}
	issueID := issue.ID
	l.Notifications.Notify(ctx, models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		IssueID: &issueID,
	})
}
