package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"fixit-be/models"
	"fixit-be/repository/repositorytest"
	"fixit-be/services"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockAnalyzer is a testify mock of services.ImageAnalyzer.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Classify(ctx context.Context, imageURL string) (*models.ImageAnalysis, error) {
	args := m.Called(imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImageAnalysis), args.Error(1)
}

func (m *MockAnalyzer) CompareResolution(ctx context.Context, originalURL, resolutionURL string) (int, error) {
	args := m.Called(originalURL, resolutionURL)
	return args.Int(0), args.Error(1)
}

// MockPublisher is a testify mock of services.EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, queueName string, message interface{}) error {
	args := m.Called(queueName, message)
	return args.Error(0)
}

type fakeImages struct {
	mu      sync.Mutex
	folders []string
	err     error
}

func (f *fakeImages) Upload(_ context.Context, folder string, img *models.ImageUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(img.Reader); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.folders = append(f.folders, folder)
	return fmt.Sprintf("https://images.test/%s/%d.jpg", folder, len(f.folders)), nil
}

func (f *fakeImages) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.folders)
}

type fakeGeo struct{}

func (fakeGeo) Cell(latitude, longitude float64) string {
	return fmt.Sprintf("%.2f:%.2f", latitude, longitude)
}

func (fakeGeo) Neighborhood(latitude, longitude, radiusKm float64) []string {
	return []string{fmt.Sprintf("%.2f:%.2f", latitude, longitude)}
}

type fakeGeocoder struct {
	address string
	err     error
	calls   int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, latitude, longitude float64) (string, error) {
	f.calls++
	return f.address, f.err
}

var errBoom = errors.New("boom")

func photo() *models.ImageUpload {
	return &models.ImageUpload{Reader: strings.NewReader("jpeg"), Size: 4, Filename: "photo.jpg"}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

// env wires services over in-memory repositories.
type env struct {
	issues        *repositorytest.Issues
	users         *repositorytest.Users
	notifications *repositorytest.Notifications
	images        *fakeImages
	notifier      *services.NotificationService
	scorer        *services.Scorer
}

func newEnv(t *testing.T, issues []models.Issue, users ...*models.User) *env {
	t.Helper()
	e := &env{
		issues:        repositorytest.NewIssues(issues...),
		users:         repositorytest.NewUsers(users...),
		notifications: repositorytest.NewNotifications(),
		images:        &fakeImages{},
	}
	e.notifier = services.NewNotificationService(e.notifications)
	e.scorer = services.NewScorer(e.users, e.notifier)
	return e
}
