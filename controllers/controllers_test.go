package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fixit-be/controllers"
	"fixit-be/health"
	"fixit-be/middlewares"
	"fixit-be/models"
	"fixit-be/repository/repositorytest"
	"fixit-be/routes"
	"fixit-be/services"
	authUtils "fixit-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "controller-secret"

func init() {
	gin.SetMode(gin.TestMode)
	if err := controllers.RegisterValidators(); err != nil {
		panic(err)
	}
}

type memoryImages struct{}

func (memoryImages) Upload(_ context.Context, folder string, img *models.ImageUpload) (string, error) {
	if _, err := io.Copy(io.Discard, img.Reader); err != nil {
		return "", err
	}
	return "https://cdn.test/" + folder + "/" + img.Filename, nil
}

type server struct {
	router        *gin.Engine
	issues        *repositorytest.Issues
	users         *repositorytest.Users
	notifications *repositorytest.Notifications
}

func newServer(t *testing.T, checker *health.Checker, users ...*models.User) *server {
	t.Helper()
	s := &server{
		issues:        repositorytest.NewIssues(),
		users:         repositorytest.NewUsers(users...),
		notifications: repositorytest.NewNotifications(),
	}
	notifications := services.NewNotificationService(s.notifications)
	scorer := services.NewScorer(s.users, notifications)
	thresholds := services.NewThresholdService(repositorytest.NewThresholds(), models.DefaultLimits)

	ctl := &controllers.Controller{
		Users: s.users,
		Issues: services.NewIssueService(s.issues, s.users, services.IssueDeps{
			Images:        memoryImages{},
			Scorer:        scorer,
			Notifications: notifications,
		}),
		Lifecycle: &services.Lifecycle{
			Issues:        s.issues,
			Images:        memoryImages{},
			Scorer:        scorer,
			Notifications: notifications,
		},
		Votes:         services.NewVoteService(s.issues, scorer),
		Dashboard:     services.NewDashboardService(s.issues, thresholds),
		Thresholds:    thresholds,
		Notifications: notifications,
		Rewards:       services.NewRewardService(s.users, notifications),
		Health:        checker,
		JWTSecret:     secret,
		Domain:        "localhost",
	}

	s.router = gin.New()
	routes.Register(s.router, ctl, routes.Middleware{
		Auth:         middlewares.AuthMiddleware(secret, s.users),
		OptionalAuth: middlewares.OptionalAuth(secret, s.users),
	})
	return s
}

func (s *server) do(t *testing.T, method, path string, as *models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req, as)
}

func (s *server) form(t *testing.T, method, path string, as *models.User, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.serve(t, req, as)
}

func (s *server) serve(t *testing.T, req *http.Request, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		token, err := authUtils.GenerateToken(secret, as.ID.Hex())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into), w.Body.String())
}

var jpeg = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func citizen() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Citizen", Email: "citizen@example.com", Role: models.RoleUser}
}

func worker(dept models.Department) *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Worker", Email: "worker@example.com", Role: models.RoleFieldWorker, Department: &dept}
}

func official(dept models.Department) *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Official", Email: "gov@example.com", Role: models.RoleGovernment, Department: &dept}
}

func admin() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin}
}

func TestRegisterLoginMe(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"name": "Ana", "email": "Ana@Example.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]interface{}
	decode(t, w, &created)
	assert.Equal(t, "ana@example.com", created["email"])
	assert.Equal(t, "user", created["role"])
	assert.NotContains(t, created, "password")

	w = s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"name": "Ana", "email": "ana@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/register", nil, gin.H{"name": "Ana", "email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", nil, gin.H{"email": "ana@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login map[string]interface{}
	decode(t, w, &login)
	assert.NotEmpty(t, login["token"])

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.AuthCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	w = s.serve(t, req, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")

	w = s.do(t, http.MethodPost, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateIssue(t *testing.T) {
	reporter := citizen()
	roadsWorker := worker(models.Roads)
	s := newServer(t, nil, reporter, roadsWorker)

	fields := map[string]string{
		"title":     "Pothole on Main St",
		"category":  "roads",
		"latitude":  "40.7128",
		"longitude": "-74.0060",
		"tags":      "Pothole, road,pothole",
	}
	w := s.form(t, http.MethodPost, "/api/issues", reporter, fields, jpeg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issue map[string]interface{}
	decode(t, w, &issue)
	assert.Equal(t, "reported", issue["status"])
	assert.Equal(t, "medium", issue["severity"])
	assert.Equal(t, roadsWorker.ID.Hex(), issue["assignedTo"])
	assert.Equal(t, []interface{}{"pothole", "road"}, issue["tags"])

	w = s.do(t, http.MethodGet, "/api/notifications/unread-count", roadsWorker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/issues?category=roads", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.IssuePage
	decode(t, w, &page)
	assert.EqualValues(t, 1, page.TotalIssues)
}

func TestCreateIssueRejectsBadInput(t *testing.T) {
	reporter := citizen()
	s := newServer(t, nil, reporter)
	base := func() map[string]string {
		return map[string]string{"title": "Broken lamp", "category": "lighting", "latitude": "10", "longitude": "10"}
	}

	w := s.form(t, http.MethodPost, "/api/issues", nil, base(), jpeg)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	noLat := base()
	delete(noLat, "latitude")
	assert.Equal(t, http.StatusBadRequest, s.form(t, http.MethodPost, "/api/issues", reporter, noLat, jpeg).Code)

	badCategory := base()
	badCategory["category"] = "parks"
	assert.Equal(t, http.StatusBadRequest, s.form(t, http.MethodPost, "/api/issues", reporter, badCategory, jpeg).Code)

	outOfRange := base()
	outOfRange["latitude"] = "91"
	assert.Equal(t, http.StatusBadRequest, s.form(t, http.MethodPost, "/api/issues", reporter, outOfRange, jpeg).Code)

	w = s.form(t, http.MethodPost, "/api/issues", reporter, base(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "image")
}

func seedIssue(s *server, reporter, assignee *models.User, status models.IssueStatus) models.Issue {
	rid := reporter.ID
	issue := models.Issue{
		ID:         primitive.NewObjectID(),
		Title:      "Leaking hydrant",
		Category:   models.Water,
		Severity:   models.SeverityHigh,
		Priority:   models.PriorityMedium,
		Status:     status,
		Location:   models.NewLocation(10, 10, ""),
		ReportedBy: &rid,
		IsActive:   true,
		CreatedAt:  time.Now(),
		Images:     []string{"https://cdn.test/original.jpg"},
	}
	if assignee != nil {
		aid := assignee.ID
		issue.AssignedTo = &aid
	}
	if err := s.issues.Create(context.Background(), &issue); err != nil {
		panic(err)
	}
	return issue
}

func TestVoteAndHistory(t *testing.T) {
	reporter, voter := citizen(), citizen()
	voter.Email = "voter@example.com"
	s := newServer(t, nil, reporter, voter)
	issue := seedIssue(s, reporter, nil, models.StatusReported)
	path := "/api/issues/" + issue.ID.Hex() + "/vote"

	w := s.do(t, http.MethodPost, path, voter, gin.H{"voteType": "upvote"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result services.VoteResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Upvotes)
	assert.Equal(t, models.Upvote, result.UserVote)

	w = s.do(t, http.MethodGet, "/api/users/me/votes", voter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history services.VoteHistory
	decode(t, w, &history)
	assert.Equal(t, []primitive.ObjectID{issue.ID}, history.Upvoted)
	assert.Empty(t, history.Downvoted)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, path, voter, gin.H{"voteType": "sideways"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/issues/nope/vote", voter, gin.H{"voteType": "upvote"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/issues/"+primitive.NewObjectID().Hex()+"/vote", voter, gin.H{"voteType": "upvote"}).Code)
}

func TestLifecycleOverHTTP(t *testing.T) {
	reporter := citizen()
	assignee := worker(models.Water)
	s := newServer(t, nil, reporter, assignee)
	issue := seedIssue(s, reporter, assignee, models.StatusReported)
	base := "/api/issues/" + issue.ID.Hex()

	w := s.form(t, http.MethodPut, base+"/start-work", reporter, nil, jpeg)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.form(t, http.MethodPut, base+"/start-work", assignee, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.form(t, http.MethodPut, base+"/start-work", assignee, nil, jpeg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"in_progress"`)

	w = s.do(t, http.MethodPut, base+"/approve-fix", reporter, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.form(t, http.MethodPut, base+"/resolve", assignee, nil, jpeg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"resolutionStatus":"pending_review"`)

	w = s.do(t, http.MethodPut, base+"/reject-fix", reporter, gin.H{"reason": "Still leaking"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"in_progress"`)

	w = s.form(t, http.MethodPut, base+"/resolve", assignee, nil, jpeg)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, base+"/approve-fix", assignee, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, base+"/approve-fix", reporter, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"closed"`)

	stored, err := s.issues.GetByID(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusLog, 5)
}

func TestLifecycleResponsesHideAnonymousReporter(t *testing.T) {
	reporter := citizen()
	assignee := worker(models.Water)
	gov := official(models.Water)
	s := newServer(t, nil, reporter, assignee, gov)
	issue := seedIssue(s, reporter, assignee, models.StatusReported)
	issue.IsAnonymous = true
	issue.AppendStatus(models.StatusReported, &reporter.ID, "Issue reported", issue.CreatedAt)
	require.NoError(t, s.issues.Save(context.Background(), &issue))
	base := "/api/issues/" + issue.ID.Hex()

	w := s.form(t, http.MethodPut, base+"/start-work", assignee, nil, jpeg)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), reporter.ID.Hex())

	w = s.do(t, http.MethodPut, "/api/government/issues/"+issue.ID.Hex()+"/assign", gov, gin.H{"assigneeId": assignee.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), reporter.ID.Hex())

	w = s.do(t, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), reporter.ID.Hex())

	w = s.do(t, http.MethodGet, base, reporter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), reporter.ID.Hex())
}

func TestGovernmentRoutes(t *testing.T) {
	reporter := citizen()
	gov := official(models.Water)
	fieldWorker := worker(models.Water)
	s := newServer(t, nil, reporter, gov, fieldWorker)
	issue := seedIssue(s, reporter, nil, models.StatusReported)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/government/dashboard", reporter, nil).Code)

	w := s.do(t, http.MethodGet, "/api/government/dashboard", gov, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report services.OverdueReport
	decode(t, w, &report)
	assert.Equal(t, 1, report.Total)

	w = s.do(t, http.MethodPut, "/api/government/thresholds/water", gov, gin.H{"maxPendingHours": 24, "maxInProgressHours": 48})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/government/thresholds/parks", gov, gin.H{"maxPendingHours": 24, "maxInProgressHours": 48})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/government/thresholds", gov, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var thresholds struct {
		Departments []services.ThresholdView `json:"departments"`
	}
	decode(t, w, &thresholds)
	for _, v := range thresholds.Departments {
		if v.Department == models.Water {
			assert.True(t, v.Configured)
			assert.Equal(t, 24.0, v.MaxPendingHours)
		}
	}

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/government/thresholds/water", gov, nil).Code)

	w = s.do(t, http.MethodPut, "/api/government/issues/"+issue.ID.Hex()+"/assign", gov, gin.H{"assigneeId": fieldWorker.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), fieldWorker.ID.Hex())

	w = s.do(t, http.MethodPut, "/api/government/issues/"+issue.ID.Hex()+"/assign", gov, gin.H{"assigneeId": reporter.ID.Hex()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	reporter := citizen()
	root := admin()
	s := newServer(t, nil, reporter, root)
	issue := seedIssue(s, reporter, nil, models.StatusReported)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/admin/issues/"+issue.ID.Hex()+"/status", reporter, gin.H{"status": "closed"}).Code)

	w := s.do(t, http.MethodPut, "/api/admin/issues/"+issue.ID.Hex()+"/status", root, gin.H{"status": "closed", "note": "duplicate"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"closed"`)

	w = s.do(t, http.MethodPut, "/api/admin/issues/"+issue.ID.Hex()+"/status", root, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := "/api/admin/users/" + reporter.ID.Hex() + "/role"
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, root, gin.H{"role": "mayor"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, root, gin.H{"role": "field_worker"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, path, root, gin.H{"role": "field_worker", "department": "roads"}).Code)

	updated := s.users.Get(reporter.ID)
	assert.Equal(t, models.RoleFieldWorker, updated.Role)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/admin/issues/"+issue.ID.Hex(), root, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/issues/"+issue.ID.Hex(), root, nil).Code)
}

func TestRewardsOverHTTP(t *testing.T) {
	user := citizen()
	user.Level = 2
	user.ImpactScore = 120
	s := newServer(t, nil, user)

	w := s.do(t, http.MethodGet, "/api/rewards", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "transit-day-pass")

	w = s.do(t, http.MethodPost, "/api/rewards/transit-day-pass/redeem", user, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var redeemed models.RedeemedReward
	decode(t, w, &redeemed)
	assert.Len(t, redeemed.Code, 12)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/rewards/transit-day-pass/redeem", user, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/rewards/council-meeting/redeem", user, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/rewards/yacht/redeem", user, nil).Code)

	w = s.do(t, http.MethodGet, "/api/notifications", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), redeemed.Code)

	w = s.do(t, http.MethodPut, "/api/notifications/read-all", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, s.do(t, http.MethodGet, "/api/notifications/unread-count", user, nil).Body.String())
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil, nil).Code)

	down := health.NewChecker(time.Second, map[string]health.CheckFunc{
		"mongodb": func(context.Context) error { return errors.New("unreachable") },
	})
	s = newServer(t, down)
	w := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"mongodb":"down"`)
}
