package services_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"
	"fixit-be/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type issueFixture struct {
	*env
	svc      *services.IssueService
	analyzer *MockAnalyzer
	events   *MockPublisher
	geocoder *fakeGeocoder
	reporter *models.User
	busy     *models.User
	idle     *models.User
	admin    *models.User
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()
	roads := models.Roads
	f := &issueFixture{
		reporter: &models.User{Name: "Rita", Role: models.RoleUser},
		busy:     &models.User{Name: "Busy", Role: models.RoleFieldWorker, Department: &roads},
		idle:     &models.User{Name: "Idle", Role: models.RoleFieldWorker, Department: &roads},
		admin:    &models.User{Name: "Ada", Role: models.RoleAdmin},
		analyzer: new(MockAnalyzer),
		events:   new(MockPublisher),
		geocoder: &fakeGeocoder{address: "1 Main St"},
	}
	f.env = newEnv(t, nil, f.reporter, f.busy, f.idle, f.admin)
	existing := models.Issue{
		Category:   models.Roads,
		Status:     models.StatusInProgress,
		AssignedTo: ptr(f.busy.ID),
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, f.issues.Create(context.Background(), &existing))

	f.events.On("Publish", services.IssueEventsQueue, mock.AnythingOfType("models.IssueEvent")).Return(nil)
	f.svc = services.NewIssueService(f.issues, f.users, services.IssueDeps{
		Images:        f.images,
		Analyzer:      f.analyzer,
		Geocoder:      f.geocoder,
		Geo:           fakeGeo{},
		Scorer:        f.scorer,
		Notifications: f.notifier,
		Events:        f.events,
	})
	return f
}

func validInput() services.CreateIssueInput {
	return services.CreateIssueInput{
		Title:     "Deep pothole",
		Category:  "roads",
		Latitude:  12.97,
		Longitude: 77.59,
		Image:     photo(),
	}
}

func TestCreateIssue_VerifiedAndAutoAssigned(t *testing.T) {
	f := newIssueFixture(t)
	f.analyzer.On("Classify", mock.AnythingOfType("string")).Return(&models.ImageAnalysis{
		Description: "A deep pothole in the left lane",
		Category:    "roads",
		Severity:    "high",
		Tags:        []string{"Pothole", "pothole", "traffic"},
		IsRelevant:  true,
	}, nil)

	issue, err := f.svc.Create(context.Background(), f.reporter, validInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusReported, issue.Status)
	assert.Equal(t, models.SeverityHigh, issue.Severity)
	assert.Equal(t, models.PriorityMedium, issue.Priority)
	assert.Equal(t, "A deep pothole in the left lane", issue.Description)
	assert.Equal(t, []string{"pothole", "traffic"}, issue.Tags)
	assert.True(t, issue.AIVerified)
	assert.Equal(t, "12.97:77.59", issue.H3Index)
	assert.Equal(t, []float64{77.59, 12.97}, issue.Location.Coordinates)
	require.Len(t, issue.StatusLog, 1)
	assert.Equal(t, models.StatusReported, issue.StatusLog[0].Status)

	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, f.idle.ID, *issue.AssignedTo, "least loaded field worker")
	require.Len(t, f.notifications.For(f.idle.ID), 1)

	want := services.PointTable[services.EventReportIssue] + services.PointTable[services.EventAIVerifiedReport]
	assert.Equal(t, want, f.users.Get(f.reporter.ID).ImpactScore)
	f.events.AssertCalled(t, "Publish", services.IssueEventsQueue, mock.MatchedBy(func(ev models.IssueEvent) bool {
		return ev.Type == models.IssueCreated && ev.IssueID == issue.ID.Hex()
	}))
}

func TestCreateIssue_AnalysisDownStillAccepts(t *testing.T) {
	f := newIssueFixture(t)
	f.analyzer.On("Classify", mock.Anything).Return(nil, errBoom)

	issue, err := f.svc.Create(context.Background(), f.reporter, validInput())
	require.NoError(t, err)

	assert.False(t, issue.AIVerified)
	assert.Equal(t, models.SeverityMedium, issue.Severity)
	assert.Equal(t, services.PointTable[services.EventReportIssue], f.users.Get(f.reporter.ID).ImpactScore)
}

func TestCreateIssue_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*services.CreateIssueInput)
		analysis *models.ImageAnalysis
	}{
		{"latitude out of range", func(in *services.CreateIssueInput) { in.Latitude = 91 }, nil},
		{"no image", func(in *services.CreateIssueInput) { in.Image = nil }, nil},
		{"unknown category", func(in *services.CreateIssueInput) { in.Category = "parks" }, nil},
		{"unknown severity", func(in *services.CreateIssueInput) { in.Severity = "apocalyptic" }, nil},
		{"irrelevant image", func(*services.CreateIssueInput) {}, &models.ImageAnalysis{Category: "roads", IsRelevant: false}},
		{"analysis category outside enum", func(*services.CreateIssueInput) {}, &models.ImageAnalysis{Category: "graffiti", IsRelevant: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIssueFixture(t)
			if tt.analysis != nil {
				f.analyzer.On("Classify", mock.Anything).Return(tt.analysis, nil)
			}
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), f.reporter, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
			f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateIssue_WithoutAnalyzerRejectsBeforeUpload(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*services.CreateIssueInput)
	}{
		{"no category", func(in *services.CreateIssueInput) { in.Category = "" }},
		{"no title", func(in *services.CreateIssueInput) { in.Title = "   " }},
		{"title too long", func(in *services.CreateIssueInput) { in.Title = strings.Repeat("x", 201) }},
		{"description too long", func(in *services.CreateIssueInput) { in.Description = strings.Repeat("x", 1001) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIssueFixture(t)
			svc := services.NewIssueService(f.issues, f.users, services.IssueDeps{
				Images:        f.images,
				Scorer:        f.scorer,
				Notifications: f.notifier,
			})
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), f.reporter, in)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation), "got %v", err)
			assert.Zero(t, f.images.uploads())
		})
	}
}

func TestIssueView_HidesAnonymousReporter(t *testing.T) {
	reporter := &models.User{ID: primitive.NewObjectID()}
	issue := &models.Issue{ReportedBy: ptr(reporter.ID), IsAnonymous: true}

	assert.Nil(t, services.ViewOf(issue, nil).ReportedBy)
	assert.Nil(t, services.ViewOf(issue, &models.User{ID: primitive.NewObjectID()}).ReportedBy)
	assert.NotNil(t, services.ViewOf(issue, reporter).ReportedBy)
	assert.NotNil(t, services.ViewOf(issue, &models.User{Role: models.RoleAdmin}).ReportedBy)
	assert.NotNil(t, issue.ReportedBy, "the stored issue is not modified")
}

func TestIssueView_AnonymousReporterAbsentFromSerializedView(t *testing.T) {
	reporter := &models.User{ID: primitive.NewObjectID()}
	worker := &models.User{ID: primitive.NewObjectID(), Role: models.RoleFieldWorker}
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		ReportedBy:  ptr(reporter.ID),
		AssignedTo:  ptr(worker.ID),
		IsAnonymous: true,
		Comments: []models.Comment{
			{ID: primitive.NewObjectID(), Author: reporter.ID, Text: "any update?"},
			{ID: primitive.NewObjectID(), Author: worker.ID, Text: "on it"},
		},
	}
	issue.AppendStatus(models.StatusReported, ptr(reporter.ID), "Issue reported", clock)
	issue.AppendStatus(models.StatusInProgress, ptr(worker.ID), "Work started", clock.Add(time.Hour))
	issue.AppendStatus(models.StatusResolved, ptr(worker.ID), "Marked as resolved", clock.Add(2*time.Hour))
	issue.AppendStatus(models.StatusInProgress, ptr(reporter.ID), "still broken", clock.Add(3*time.Hour))

	for _, viewer := range []*models.User{nil, worker, {ID: primitive.NewObjectID(), Role: models.RoleGovernment}} {
		raw, err := json.Marshal(services.ViewOf(issue, viewer))
		require.NoError(t, err)
		assert.NotContains(t, string(raw), reporter.ID.Hex())
		assert.Contains(t, string(raw), worker.ID.Hex(), "other actors stay visible")
	}

	raw, err := json.Marshal(services.ViewOf(issue, reporter))
	require.NoError(t, err)
	assert.Contains(t, string(raw), reporter.ID.Hex())

	require.NotNil(t, issue.StatusLog[0].ChangedBy, "the stored status log is not modified")
	assert.Equal(t, reporter.ID, issue.Comments[0].Author)
}

func TestListIssues_FiltersAndPages(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.issues.Create(ctx, &models.Issue{Title: "Leak", Category: models.Water, Status: models.StatusReported, IsActive: true, CreatedAt: time.Now().Add(time.Duration(i) * time.Minute)}))
	}

	page, err := f.svc.List(ctx, repository.IssueFilter{Category: models.Water, Limit: 2}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalIssues)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Issues, 2)

	_, err = f.svc.List(ctx, repository.IssueFilter{Status: "lost"}, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestAddComment_AwardsAndNotifies(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := models.Issue{Title: "Leak", ReportedBy: ptr(f.reporter.ID), IsActive: true}
	require.NoError(t, f.issues.Create(ctx, &issue))

	comment, err := f.svc.AddComment(ctx, issue.ID, f.idle, "  On it tomorrow ")
	require.NoError(t, err)
	assert.Equal(t, "On it tomorrow", comment.Text)

	stored, _ := f.issues.Get(issue.ID)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, services.PointTable[services.EventAddComment], f.users.Get(f.idle.ID).ImpactScore)
	require.Len(t, f.notifications.For(f.reporter.ID), 1)

	_, err = f.svc.AddComment(ctx, issue.ID, f.idle, "   ")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestRemoveAndSpam(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := models.Issue{Title: "Fake", ReportedBy: ptr(f.reporter.ID), IsActive: true}
	require.NoError(t, f.issues.Create(ctx, &issue))

	err := f.svc.Remove(ctx, issue.ID, f.idle)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, err = f.svc.MarkSpam(ctx, issue.ID, f.reporter)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	flagged, err := f.svc.MarkSpam(ctx, issue.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, flagged.IsSpam)
	assert.False(t, flagged.IsActive)

	_, err = f.svc.MarkSpam(ctx, issue.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, services.PointTable[services.EventSpamPenalty], f.users.Get(f.reporter.ID).ImpactScore, "penalized once")

	_, err = f.svc.Get(ctx, issue.ID, f.reporter)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	require.NoError(t, f.svc.Purge(ctx, issue.ID, f.admin))
	_, ok := f.issues.Get(issue.ID)
	assert.False(t, ok)
}

func TestAssign(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	issue := models.Issue{Title: "Leak", Status: models.StatusReported, IsActive: true}
	require.NoError(t, f.issues.Create(ctx, &issue))

	_, err := f.svc.Assign(ctx, issue.ID, f.reporter, f.idle.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, err = f.svc.Assign(ctx, issue.ID, f.admin, f.reporter.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	got, err := f.svc.Assign(ctx, issue.ID, f.admin, f.idle.ID)
	require.NoError(t, err)
	assert.Equal(t, f.idle.ID, *got.AssignedTo)
	assert.Len(t, f.notifications.For(f.idle.ID), 1)
}

func TestEnrichAddress(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	bare := models.Issue{Location: models.NewLocation(1, 2, ""), IsActive: true}
	known := models.Issue{Location: models.NewLocation(1, 2, "Town Hall"), IsActive: true}
	require.NoError(t, f.issues.Create(ctx, &bare))
	require.NoError(t, f.issues.Create(ctx, &known))

	require.NoError(t, f.svc.EnrichAddress(ctx, bare.ID))
	require.NoError(t, f.svc.EnrichAddress(ctx, known.ID))

	stored, _ := f.issues.Get(bare.ID)
	assert.Equal(t, "1 Main St", stored.Location.Address)
	assert.Equal(t, 1, f.geocoder.calls)
}

func TestNearby(t *testing.T) {
	f := newIssueFixture(t)
	ctx := context.Background()
	near := models.Issue{H3Index: "12.97:77.59", IsActive: true}
	far := models.Issue{H3Index: "40.00:10.00", IsActive: true}
	require.NoError(t, f.issues.Create(ctx, &near))
	require.NoError(t, f.issues.Create(ctx, &far))

	views, err := f.svc.Nearby(ctx, 12.97, 77.59, 2, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, near.ID, views[0].ID)

	_, err = f.svc.Nearby(ctx, 100, 0, 1, nil)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
