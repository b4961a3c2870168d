// Package repositorytest provides in-memory repositories for tests.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Issues is an in-memory repository.IssueRepository.
type Issues struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Issue
	// Err, when set, is returned by every call.
	Err   error
	Saves int
}

func NewIssues(seed ...models.Issue) *Issues {
	r := &Issues{items: map[primitive.ObjectID]models.Issue{}}
	for _, issue := range seed {
		if issue.ID.IsZero() {
			issue.ID = primitive.NewObjectID()
		}
		r.items[issue.ID] = cloneIssue(issue)
	}
	return r
}

func cloneIssue(in models.Issue) models.Issue {
	out := in
	out.Images = append([]string(nil), in.Images...)
	out.Tags = append([]string(nil), in.Tags...)
	out.StatusLog = append([]models.StatusLogEntry(nil), in.StatusLog...)
	out.Comments = append([]models.Comment(nil), in.Comments...)
	out.Upvoters = append([]primitive.ObjectID(nil), in.Upvoters...)
	out.Downvoters = append([]primitive.ObjectID(nil), in.Downvoters...)
	out.Location.Coordinates = append([]float64(nil), in.Location.Coordinates...)
	return out
}

// Get returns the stored copy without going through the interface.
func (r *Issues) Get(id primitive.ObjectID) (models.Issue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	issue, ok := r.items[id]
	return cloneIssue(issue), ok
}

func (r *Issues) Create(_ context.Context, issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	r.items[issue.ID] = cloneIssue(*issue)
	return nil
}

func (r *Issues) GetByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	issue, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("Issue")
	}
	out := cloneIssue(issue)
	return &out, nil
}

func matches(issue models.Issue, f repository.IssueFilter) bool {
	if !f.IncludeInactive && !issue.IsActive {
		return false
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.ReportedBy != nil && !issue.IsReporter(*f.ReportedBy) {
		return false
	}
	if f.AssignedTo != nil && !issue.IsAssignee(*f.AssignedTo) {
		return false
	}
	if len(f.H3Cells) > 0 {
		found := false
		for _, c := range f.H3Cells {
			if c == issue.H3Index {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), q) && !strings.Contains(strings.ToLower(issue.Description), q) {
			return false
		}
	}
	return true
}

func (r *Issues) sorted(oldestFirst bool) []models.Issue {
	all := make([]models.Issue, 0, len(r.items))
	for _, issue := range r.items {
		all = append(all, cloneIssue(issue))
	}
	sort.SliceStable(all, func(i, j int) bool {
		if oldestFirst {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func (r *Issues) List(_ context.Context, f repository.IssueFilter) ([]models.Issue, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	page, limit := repository.Normalize(f.Page, f.Limit)

	matched := []models.Issue{}
	for _, issue := range r.sorted(f.Sort == "oldest") {
		if matches(issue, f) {
			matched = append(matched, issue)
		}
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], int64(len(matched)), nil
}

func (r *Issues) ListActive(_ context.Context) ([]models.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := []models.Issue{}
	for _, issue := range r.sorted(true) {
		if issue.IsActive {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (r *Issues) Save(_ context.Context, issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.items[issue.ID]; !ok {
		return apperrors.NotFound("Issue")
	}
	r.items[issue.ID] = cloneIssue(*issue)
	r.Saves++
	return nil
}

func (r *Issues) SaveTransition(_ context.Context, issue *models.Issue, from models.IssueStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.items[issue.ID]
	if !ok || stored.Status != from {
		return apperrors.Validation("Issue is no longer %s", from)
	}
	r.items[issue.ID] = cloneIssue(*issue)
	r.Saves++
	return nil
}

func (r *Issues) UpdateVotes(_ context.Context, issue *models.Issue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.items[issue.ID]
	if !ok {
		return apperrors.NotFound("Issue")
	}
	stored.Upvoters = append([]primitive.ObjectID(nil), issue.Upvoters...)
	stored.Downvoters = append([]primitive.ObjectID(nil), issue.Downvoters...)
	stored.Priority = issue.Priority
	stored.UpdatedAt = issue.UpdatedAt
	r.items[issue.ID] = stored
	return nil
}

func (r *Issues) AppendComment(_ context.Context, id primitive.ObjectID, comment models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.items[id]
	if !ok || !stored.IsActive {
		return apperrors.NotFound("Issue")
	}
	stored.Comments = append(stored.Comments, comment)
	stored.UpdatedAt = comment.CreatedAt
	r.items[id] = stored
	return nil
}

func (r *Issues) SetAddress(_ context.Context, id primitive.ObjectID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored, ok := r.items[id]
	if !ok {
		return nil
	}
	stored.Location.Address = address
	r.items[id] = stored
	return nil
}

func (r *Issues) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.items[id]; !ok {
		return apperrors.NotFound("Issue")
	}
	delete(r.items, id)
	return nil
}

func (r *Issues) CountOpenAssigned(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for _, issue := range r.items {
		if issue.IsActive && issue.IsAssignee(userID) && issue.Status.Open() {
			n++
		}
	}
	return n, nil
}

func (r *Issues) VotedBy(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, []primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, nil, r.Err
	}
	up, down := []primitive.ObjectID{}, []primitive.ObjectID{}
	for _, issue := range r.sorted(true) {
		if !issue.IsActive {
			continue
		}
		switch issue.VoteOf(userID) {
		case models.Upvote:
			up = append(up, issue.ID)
		case models.Downvote:
			down = append(down, issue.ID)
		}
	}
	return up, down, nil
}

// Users is an in-memory repository.UserRepository.
type Users struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.User
	Err   error
}

func NewUsers(seed ...*models.User) *Users {
	r := &Users{items: map[primitive.ObjectID]models.User{}}
	for _, u := range seed {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		if u.Level == 0 {
			u.Level = 1
		}
		r.items[u.ID] = cloneUser(*u)
	}
	return r
}

func cloneUser(in models.User) models.User {
	out := in
	out.RedeemedRewards = append([]models.RedeemedReward(nil), in.RedeemedRewards...)
	return out
}

func (r *Users) Get(id primitive.ObjectID) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneUser(r.items[id])
}

func (r *Users) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	user.Email = strings.ToLower(user.Email)
	for _, existing := range r.items {
		if existing.Email == user.Email {
			return apperrors.Validation("User with this email already exists")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.items[user.ID] = cloneUser(*user)
	return nil
}

func (r *Users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	u, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("User")
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, u := range r.items {
		if u.Email == strings.ToLower(email) {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, apperrors.NotFound("User")
}

func (r *Users) CountByEmail(ctx context.Context, email string) (int64, error) {
	_, err := r.GetByEmail(ctx, email)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return 1, nil
}

func (r *Users) ListByRole(_ context.Context, role models.Role, department *models.Department) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := []models.User{}
	for _, u := range r.items {
		if u.Role != role {
			continue
		}
		if department != nil && (u.Department == nil || *u.Department != *department) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *Users) modify(id primitive.ObjectID, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	u, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("User")
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	r.items[id] = u
	return nil
}

func (r *Users) UpdateScore(_ context.Context, id primitive.ObjectID, score, level int) error {
	return r.modify(id, func(u *models.User) {
		u.ImpactScore = score
		u.Level = level
	})
}

func (r *Users) AddRedeemedReward(_ context.Context, id primitive.ObjectID, reward models.RedeemedReward) error {
	return r.modify(id, func(u *models.User) {
		u.RedeemedRewards = append(u.RedeemedRewards, reward)
	})
}

func (r *Users) SetRole(_ context.Context, id primitive.ObjectID, role models.Role, department *models.Department) error {
	return r.modify(id, func(u *models.User) {
		u.Role = role
		u.Department = department
	})
}

// Thresholds is an in-memory repository.ThresholdRepository.
type Thresholds struct {
	mu    sync.Mutex
	items map[models.Department]models.DepartmentThreshold
	Err   error
}

func NewThresholds(seed ...models.DepartmentThreshold) *Thresholds {
	r := &Thresholds{items: map[models.Department]models.DepartmentThreshold{}}
	for _, t := range seed {
		r.items[t.Department] = t
	}
	return r
}

func (r *Thresholds) List(_ context.Context) ([]models.DepartmentThreshold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := []models.DepartmentThreshold{}
	for _, d := range models.Departments {
		if t, ok := r.items[d]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Thresholds) Get(_ context.Context, department models.Department) (*models.DepartmentThreshold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	t, ok := r.items[department]
	if !ok {
		return nil, apperrors.NotFound("Threshold")
	}
	return &t, nil
}

func (r *Thresholds) Upsert(_ context.Context, t *models.DepartmentThreshold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	existing, ok := r.items[t.Department]
	if ok {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
	} else {
		t.ID = primitive.NewObjectID()
		t.CreatedAt = t.UpdatedAt
	}
	t.IsActive = true
	r.items[t.Department] = *t
	return nil
}

func (r *Thresholds) Deactivate(_ context.Context, department models.Department, by *primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	t, ok := r.items[department]
	if !ok {
		return apperrors.NotFound("Threshold")
	}
	t.IsActive = false
	t.UpdatedBy = by
	t.UpdatedAt = at
	r.items[department] = t
	return nil
}

// Notifications is an in-memory repository.NotificationRepository.
type Notifications struct {
	mu    sync.Mutex
	items []models.Notification
	Err   error
}

func NewNotifications() *Notifications {
	return &Notifications{}
}

// For returns every notification addressed to userID, oldest first.
func (r *Notifications) For(userID primitive.ObjectID) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (r *Notifications) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.items = append(r.items, *n)
	return nil
}

func (r *Notifications) ListForUser(_ context.Context, userID primitive.ObjectID, page, limit int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, 0, r.Err
	}
	page, limit = repository.Normalize(page, limit)
	mine := []models.Notification{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			mine = append(mine, r.items[i])
		}
	}
	start := (page - 1) * limit
	if start > len(mine) {
		start = len(mine)
	}
	end := start + limit
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], int64(len(mine)), nil
}

func (r *Notifications) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for _, item := range r.items {
		if item.UserID == userID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (r *Notifications) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return nil
		}
	}
	return apperrors.NotFound("Notification")
}

func (r *Notifications) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return 0, r.Err
	}
	var n int64
	for i := range r.items {
		if r.items[i].UserID == userID && !r.items[i].Read {
			r.items[i].Read = true
			n++
		}
	}
	return n, nil
}

var (
	_ repository.IssueRepository        = (*Issues)(nil)
	_ repository.UserRepository         = (*Users)(nil)
	_ repository.ThresholdRepository    = (*Thresholds)(nil)
	_ repository.NotificationRepository = (*Notifications)(nil)
)
