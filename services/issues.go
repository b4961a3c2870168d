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

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxCommentLength     = 1000
	defaultNearbyKm      = 1.0
	maxNearbyKm          = 10.0
)

// IssueService handles intake, reads and the non-lifecycle mutations of issues.
type IssueService struct {
	issues        repository.IssueRepository
	users         repository.UserRepository
	images        ImageStore
	analyzer      ImageAnalyzer
	geocoder      Geocoder
	geo           GeoIndexer
	scorer        *Scorer
	notifications *NotificationService
	events        EventPublisher
	now           func() time.Time
}

// IssueDeps groups the optional collaborators of IssueService. Nil members
// disable the feature they back.
type IssueDeps struct {
	Images        ImageStore
	Analyzer      ImageAnalyzer
	Geocoder      Geocoder
	Geo           GeoIndexer
	Scorer        *Scorer
	Notifications *NotificationService
	Events        EventPublisher
}

func NewIssueService(issues repository.IssueRepository, users repository.UserRepository, deps IssueDeps) *IssueService {
	return &IssueService{
		issues:        issues,
		users:         users,
		images:        deps.Images,
		analyzer:      deps.Analyzer,
		geocoder:      deps.Geocoder,
		geo:           deps.Geo,
		scorer:        deps.Scorer,
		notifications: deps.Notifications,
		events:        deps.Events,
		now:           time.Now,
	}
}

type CreateIssueInput struct {
	Title       string
	Description string
	Category    string
	Severity    string
	Latitude    float64
	Longitude   float64
	Address     string
	IsAnonymous bool
	Tags        []string
	Image       *models.ImageUpload
}

// IssueView is an issue as a given viewer sees it.
type IssueView struct {
	*models.Issue
	Upvotes   int             `json:"upvotes"`
	Downvotes int             `json:"downvotes"`
	UserVote  models.VoteType `json:"userVote"`
}

// ViewOf hides the reporter of anonymous issues from everyone except the
// reporter and admins. The reporter's id is also dropped from the status log
// and from their comments.
func ViewOf(issue *models.Issue, viewer *models.User) IssueView {
	view := IssueView{
		Issue:     issue,
		Upvotes:   len(issue.Upvoters),
		Downvotes: len(issue.Downvoters),
	}
	if viewer != nil {
		view.UserVote = issue.VoteOf(viewer.ID)
	}
	if issue.IsAnonymous && issue.ReportedBy != nil && !viewer.IsAdmin() && (viewer == nil || !issue.IsReporter(viewer.ID)) {
		view.Issue = maskReporter(issue)
	}
	return view
}

func maskReporter(issue *models.Issue) *models.Issue {
	reporter := *issue.ReportedBy
	masked := *issue
	masked.ReportedBy = nil

	masked.StatusLog = make([]models.StatusLogEntry, len(issue.StatusLog))
	for i, entry := range issue.StatusLog {
		if entry.ChangedBy != nil && *entry.ChangedBy == reporter {
			entry.ChangedBy = nil
		}
		masked.StatusLog[i] = entry
	}

	masked.Comments = make([]models.Comment, len(issue.Comments))
	for i, c := range issue.Comments {
		if c.Author == reporter {
			c.Author = primitive.NilObjectID
		}
		masked.Comments[i] = c
	}
	return &masked
}

type IssuePage struct {
	Issues      []IssueView `json:"issues"`
	TotalIssues int64       `json:"totalIssues"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
}

func (s *IssueService) Create(ctx context.Context, actor *models.User, in CreateIssueInput) (*models.Issue, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("User not authenticated")
	}
	if err := models.ValidateCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if in.Image == nil || in.Image.Reader == nil || in.Image.Size == 0 {
		return nil, apperrors.Validation("An image of the issue is required")
	}

	var category models.Department
	if strings.TrimSpace(in.Category) != "" {
		d, ok := models.ParseDepartment(in.Category)
		if !ok {
			return nil, apperrors.Validation("Invalid category %q", in.Category)
		}
		category = d
	}
	severity := models.Severity(strings.ToLower(strings.TrimSpace(in.Severity)))
	if severity != "" && !severity.Valid() {
		return nil, apperrors.Validation("Invalid severity %q", in.Severity)
	}
	if err := checkText(in.Title, in.Description); err != nil {
		return nil, err
	}
	// Without an analyzer nothing can fill these in after the upload.
	if s.analyzer == nil {
		if category == "" {
			return nil, apperrors.Validation("Category is required")
		}
		if strings.TrimSpace(in.Title) == "" {
			return nil, apperrors.Validation("Title is required")
		}
	}
	if s.images == nil {
		return nil, apperrors.Unavailable("Image storage is not configured", nil)
	}

	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Severity:    severity,
		Location:    models.NewLocation(in.Latitude, in.Longitude, strings.TrimSpace(in.Address)),
		IsAnonymous: in.IsAnonymous,
		Tags:        cleanTags(in.Tags),
		Comments:    []models.Comment{},
		Upvoters:    []primitive.ObjectID{},
		Downvoters:  []primitive.ObjectID{},
		IsActive:    true,
	}

	url, err := s.images.Upload(ctx, "issues/"+issue.ID.Hex(), in.Image)
	if err != nil {
		return nil, fmt.Errorf("uploading issue image: %w", err)
	}
	issue.Images = []string{url}

	if err := s.classify(ctx, issue, url); err != nil {
		return nil, err
	}

	if issue.Category == "" {
		return nil, apperrors.Validation("Category is required")
	}
	if issue.Title == "" {
		return nil, apperrors.Validation("Title is required")
	}
	if err := checkText(issue.Title, issue.Description); err != nil {
		return nil, err
	}
	if issue.Severity == "" {
		issue.Severity = models.SeverityMedium
	}
	issue.Priority = models.DerivePriority(0)
	if s.geo != nil {
		issue.H3Index = s.geo.Cell(in.Latitude, in.Longitude)
	}
	issue.AssignedTo = s.pickAssignee(ctx, issue.Category)

	reporter := actor.ID
	issue.ReportedBy = &reporter
	now := s.now()
	issue.CreatedAt = now
	issue.AppendStatus(models.StatusReported, &reporter, "Issue reported", now)

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, err
	}

	s.scorer.award(ctx, issue.ReportedBy, EventReportIssue)
	if issue.AIVerified {
		s.scorer.award(ctx, issue.ReportedBy, EventAIVerifiedReport)
	}
	if issue.AssignedTo != nil && s.notifications != nil {
		s.notifications.Notify(ctx, models.Notification{
			UserID:   *issue.AssignedTo,
			Type:     models.NotifyAssignment,
			Title:    "New issue assigned",
			Message:  fmt.Sprintf("You have been assigned %q", issue.Title),
			Priority: models.NotificationHigh,
			IssueID:  &issue.ID,
		})
	}
	publishIssueEvent(ctx, s.events, models.IssueCreated, issue, actor, now)
	return issue, nil
}

// classify fills empty fields from the image analysis. Irrelevant images are
// rejected; an unreachable analysis service only skips verification.
func (s *IssueService) classify(ctx context.Context, issue *models.Issue, imageURL string) error {
	if s.analyzer == nil {
		return nil
	}
	analysis, err := s.analyzer.Classify(ctx, imageURL)
	if err != nil {
		log.Printf("[ISSUES] image analysis unavailable for %s: %v", issue.ID.Hex(), err)
		return nil
	}
	if !analysis.IsRelevant {
		return apperrors.Validation("The image does not appear to show a civic issue")
	}
	category, ok := models.ParseDepartment(analysis.Category)
	if !ok {
		return apperrors.Validation("Unsupported issue category %q", analysis.Category)
	}

	if issue.Category == "" {
		issue.Category = category
	}
	if issue.Title == "" {
		issue.Title = strings.TrimSpace(analysis.Title)
	}
	if issue.Description == "" {
		issue.Description = strings.TrimSpace(analysis.Description)
	}
	if sev := models.Severity(strings.ToLower(analysis.Severity)); issue.Severity == "" && sev.Valid() {
		issue.Severity = sev
	}
	if len(issue.Tags) == 0 {
		issue.Tags = cleanTags(analysis.Tags)
	}
	issue.AIVerified = true
	return nil
}

// pickAssignee returns the field worker of the department with the fewest
// open assignments, or nil when nobody can take the issue.
func (s *IssueService) pickAssignee(ctx context.Context, department models.Department) *primitive.ObjectID {
	workers, err := s.users.ListByRole(ctx, models.RoleFieldWorker, &department)
	if err != nil {
		log.Printf("[ISSUES] listing field workers for %s: %v", department, err)
		return nil
	}
	var (
		best     *primitive.ObjectID
		bestLoad int64
	)
	for i := range workers {
		load, err := s.issues.CountOpenAssigned(ctx, workers[i].ID)
		if err != nil {
			log.Printf("[ISSUES] counting assignments of %s: %v", workers[i].ID.Hex(), err)
			continue
		}
		if best == nil || load < bestLoad {
			id := workers[i].ID
			best, bestLoad = &id, load
		}
	}
	return best
}

func checkText(title, description string) error {
	if len(strings.TrimSpace(title)) > maxTitleLength {
		return apperrors.Validation("Title must be at most %d characters", maxTitleLength)
	}
	if len(strings.TrimSpace(description)) > maxDescriptionLength {
		return apperrors.Validation("Description must be at most %d characters", maxDescriptionLength)
	}
	return nil
}

func cleanTags(tags []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *IssueService) Get(ctx context.Context, id primitive.ObjectID, viewer *models.User) (*IssueView, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsActive && !viewer.IsAdmin() {
		return nil, apperrors.NotFound("Issue")
	}
	view := ViewOf(issue, viewer)
	return &view, nil
}

func (s *IssueService) List(ctx context.Context, filter repository.IssueFilter, viewer *models.User) (*IssuePage, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, apperrors.Validation("Invalid category %q", filter.Category)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("Invalid status %q", filter.Status)
	}
	if filter.IncludeInactive && !viewer.IsAdmin() {
		filter.IncludeInactive = false
	}
	filter.Page, filter.Limit = repository.Normalize(filter.Page, filter.Limit)

	issues, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := &IssuePage{
		Issues:      make([]IssueView, 0, len(issues)),
		TotalIssues: total,
		TotalPages:  int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		CurrentPage: filter.Page,
	}
	for i := range issues {
		page.Issues = append(page.Issues, ViewOf(&issues[i], viewer))
	}
	return page, nil
}

// Nearby lists active issues in the index cells around a point.
func (s *IssueService) Nearby(ctx context.Context, latitude, longitude, radiusKm float64, viewer *models.User) ([]IssueView, error) {
	if err := models.ValidateCoordinates(latitude, longitude); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if s.geo == nil {
		return nil, apperrors.Unavailable("Location index is not configured", nil)
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyKm
	}
	if radiusKm > maxNearbyKm {
		radiusKm = maxNearbyKm
	}
	issues, _, err := s.issues.List(ctx, repository.IssueFilter{
		H3Cells: s.geo.Neighborhood(latitude, longitude, radiusKm),
		Limit:   100,
	})
	if err != nil {
		return nil, err
	}
	views := make([]IssueView, 0, len(issues))
	for i := range issues {
		views = append(views, ViewOf(&issues[i], viewer))
	}
	return views, nil
}

func (s *IssueService) AddComment(ctx context.Context, id primitive.ObjectID, actor *models.User, text string) (*models.Comment, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("User not authenticated")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("Comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, apperrors.Validation("Comment must be at most %d characters", maxCommentLength)
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsActive {
		return nil, apperrors.NotFound("Issue")
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Author:    actor.ID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.issues.AppendComment(ctx, id, comment); err != nil {
		return nil, err
	}

	s.scorer.award(ctx, &actor.ID, EventAddComment)
	if issue.ReportedBy != nil && !issue.IsReporter(actor.ID) && s.notifications != nil {
		s.notifications.Notify(ctx, models.Notification{
			UserID:  *issue.ReportedBy,
			Type:    models.NotifyComment,
			Title:   "New comment",
			Message: fmt.Sprintf("Someone commented on %q", issue.Title),
			IssueID: &issue.ID,
		})
	}
	return &comment, nil
}

// Remove soft-deletes an issue.
func (s *IssueService) Remove(ctx context.Context, id primitive.ObjectID, actor *models.User) error {
	if actor == nil {
		return apperrors.Unauthorized("User not authenticated")
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !issue.IsActive {
		return apperrors.NotFound("Issue")
	}
	if !CanRemove(actor, issue) {
		return apperrors.Forbidden("You can only delete your own issues")
	}
	issue.IsActive = false
	issue.UpdatedAt = s.now()
	return s.issues.Save(ctx, issue)
}

// Purge physically deletes an issue.
func (s *IssueService) Purge(ctx context.Context, id primitive.ObjectID, actor *models.User) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can purge issues")
	}
	return s.issues.Delete(ctx, id)
}

// MarkSpam deactivates an issue and penalizes its reporter once.
func (s *IssueService) MarkSpam(ctx context.Context, id primitive.ObjectID, actor *models.User) (*models.Issue, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can flag spam")
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.IsSpam {
		return issue, nil
	}
	issue.IsSpam = true
	issue.IsActive = false
	issue.UpdatedAt = s.now()
	if err := s.issues.Save(ctx, issue); err != nil {
		return nil, err
	}
	s.scorer.award(ctx, issue.ReportedBy, EventSpamPenalty)
	return issue, nil
}

// Assign hands an open issue to a field worker.
func (s *IssueService) Assign(ctx context.Context, id primitive.ObjectID, actor *models.User, assigneeID primitive.ObjectID) (*models.Issue, error) {
	if !CanAssign(actor) {
		return nil, apperrors.Forbidden("You are not allowed to assign issues")
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsActive {
		return nil, apperrors.NotFound("Issue")
	}
	if !issue.Status.Open() {
		return nil, apperrors.Validation("Only open issues can be assigned")
	}
	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if assignee.Role != models.RoleFieldWorker {
		return nil, apperrors.Validation("Issues can only be assigned to field workers")
	}

	issue.AssignedTo = &assignee.ID
	issue.UpdatedAt = s.now()
	if err := s.issues.Save(ctx, issue); err != nil {
		return nil, err
	}
	if s.notifications != nil {
		s.notifications.Notify(ctx, models.Notification{
			UserID:   assignee.ID,
			Type:     models.NotifyAssignment,
			Title:    "New issue assigned",
			Message:  fmt.Sprintf("You have been assigned %q", issue.Title),
			Priority: models.NotificationHigh,
			IssueID:  &issue.ID,
		})
	}
	return issue, nil
}

// EnrichAddress reverse-geocodes issues reported without an address.
func (s *IssueService) EnrichAddress(ctx context.Context, id primitive.ObjectID) error {
	if s.geocoder == nil {
		return nil
	}
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if issue.Location.Address != "" {
		return nil
	}
	address, err := s.geocoder.ReverseGeocode(ctx, issue.Location.Latitude(), issue.Location.Longitude())
	if err != nil {
		return fmt.Errorf("reverse geocoding issue %s: %w", id.Hex(), err)
	}
	if address == "" {
		return nil
	}
	return s.issues.SetAddress(ctx, id, address)
}
