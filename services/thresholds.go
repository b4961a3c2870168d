package services

import (
	"context"
	"strings"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"
)

// ThresholdService is the threshold store: per-department overdue limits
// with a single injected set of defaults.
type ThresholdService struct {
	repo     repository.ThresholdRepository
	defaults models.Limits
	now      func() time.Time
}

func NewThresholdService(repo repository.ThresholdRepository, defaults models.Limits) *ThresholdService {
	return &ThresholdService{repo: repo, defaults: defaults, now: time.Now}
}

func (s *ThresholdService) Defaults() models.Limits { return s.defaults }

// Resolve loads the active thresholds into a set that falls back to the defaults.
func (s *ThresholdService) Resolve(ctx context.Context) (models.ThresholdSet, error) {
	thresholds, err := s.repo.List(ctx)
	if err != nil {
		return models.ThresholdSet{}, err
	}
	return models.NewThresholdSet(s.defaults, thresholds), nil
}

// For returns the effective limits of one department.
func (s *ThresholdService) For(ctx context.Context, department models.Department) (models.Limits, error) {
	t, err := s.repo.Get(ctx, department)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return models.Limits{}, err
	}
	if !t.IsActive {
		return s.defaults, nil
	}
	return t.Limits, nil
}

type ThresholdView struct {
	Department  models.Department `json:"department"`
	models.Limits
	Description string    `json:"description,omitempty"`
	Configured  bool      `json:"configured"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// List returns the effective limits of every department.
func (s *ThresholdService) List(ctx context.Context) ([]ThresholdView, error) {
	thresholds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	byDept := make(map[models.Department]models.DepartmentThreshold, len(thresholds))
	for _, t := range thresholds {
		if t.IsActive {
			byDept[t.Department] = t
		}
	}

	views := make([]ThresholdView, 0, len(models.Departments))
	for _, d := range models.Departments {
		view := ThresholdView{Department: d, Limits: s.defaults}
		if t, ok := byDept[d]; ok {
			view.Limits = t.Limits
			view.Description = t.Description
			view.Configured = true
			view.UpdatedAt = t.UpdatedAt
		}
		views = append(views, view)
	}
	return views, nil
}

type ThresholdInput struct {
	MaxPendingHours    float64
	MaxInProgressHours float64
	Description        string
}

// Set creates or replaces the active threshold of a department.
func (s *ThresholdService) Set(ctx context.Context, actor *models.User, department string, in ThresholdInput) (*models.DepartmentThreshold, error) {
	if !CanManageThresholds(actor) {
		return nil, apperrors.Forbidden("Only government staff can configure thresholds")
	}
	dept, ok := models.ParseDepartment(department)
	if !ok {
		return nil, apperrors.Validation("Invalid department %q", department)
	}
	limits := models.Limits{MaxPendingHours: in.MaxPendingHours, MaxInProgressHours: in.MaxInProgressHours}
	if err := limits.Validate(); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	t := &models.DepartmentThreshold{
		Department:  dept,
		Limits:      limits,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		UpdatedAt:   s.now(),
	}
	if !actor.ID.IsZero() {
		id := actor.ID
		t.UpdatedBy = &id
	}
	if err := s.repo.Upsert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Deactivate returns a department to the default limits.
func (s *ThresholdService) Deactivate(ctx context.Context, actor *models.User, department string) error {
	if !CanManageThresholds(actor) {
		return apperrors.Forbidden("Only government staff can configure thresholds")
	}
	dept, ok := models.ParseDepartment(department)
	if !ok {
		return apperrors.Validation("Invalid department %q", department)
	}
	id := actor.ID
	return s.repo.Deactivate(ctx, dept, &id, s.now())
}
