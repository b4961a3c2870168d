package services

import (
	"context"
	"math"
	"sort"
	"time"

	"fixit-be/apperrors"
	"fixit-be/models"
	"fixit-be/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OverdueIssue is an open issue that has stayed in its status too long.
type OverdueIssue struct {
	IssueID        primitive.ObjectID  `json:"issueId"`
	Title          string              `json:"title"`
	Department     models.Department   `json:"department"`
	Status         models.IssueStatus  `json:"status"`
	Severity       models.Severity     `json:"severity"`
	Priority       models.Priority     `json:"priority"`
	AssignedTo     *primitive.ObjectID `json:"assignedTo,omitempty"`
	Since          time.Time           `json:"since"`
	HoursInStatus  float64             `json:"hoursInStatus"`
	ThresholdHours float64             `json:"thresholdHours"`
	OverdueBy      float64             `json:"overdueBy"`
}

type DepartmentSummary struct {
	Department models.Department `json:"department"`
	Total      int               `json:"total"`
	Reported   int               `json:"reported"`
	InProgress int               `json:"inProgress"`
	Resolved   int               `json:"resolved"`
	Closed     int               `json:"closed"`
	Overdue    int               `json:"overdue"`
}

type OverdueReport struct {
	GeneratedAt    time.Time           `json:"generatedAt"`
	Pending        []OverdueIssue      `json:"pending"`
	InProgress     []OverdueIssue      `json:"inProgress"`
	Departments    []DepartmentSummary `json:"departments"`
	Total          int                 `json:"total"`
	Resolved       int                 `json:"resolved"`
	CompletionRate int                 `json:"completionRate"`
}

// statusSince is when the issue entered its current open status. In-progress
// issues without a matching log entry fall back to createdAt.
func statusSince(issue *models.Issue) time.Time {
	if issue.Status == models.StatusInProgress {
		if at, ok := issue.LastTransitionTo(models.StatusInProgress); ok {
			return at
		}
	}
	return issue.CreatedAt
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

// EvaluateOverdue classifies issues against thresholds at now.
func EvaluateOverdue(issues []models.Issue, thresholds models.ThresholdSet, now time.Time) OverdueReport {
	report := OverdueReport{
		GeneratedAt: now,
		Pending:     []OverdueIssue{},
		InProgress:  []OverdueIssue{},
	}
	summaries := make(map[models.Department]*DepartmentSummary, len(models.Departments))
	for _, d := range models.Departments {
		summaries[d] = &DepartmentSummary{Department: d}
	}

	for i := range issues {
		issue := &issues[i]
		summary, ok := summaries[issue.Category]
		if !ok {
			summary = &DepartmentSummary{Department: issue.Category}
			summaries[issue.Category] = summary
		}
		summary.Total++
		report.Total++

		switch issue.Status {
		case models.StatusReported:
			summary.Reported++
		case models.StatusInProgress:
			summary.InProgress++
		case models.StatusResolved:
			summary.Resolved++
			report.Resolved++
		case models.StatusClosed:
			summary.Closed++
			report.Resolved++
		}

		limit, open := thresholds.For(issue.Category).For(issue.Status)
		if !open {
			continue
		}
		since := statusSince(issue)
		age := now.Sub(since).Hours()
		if age <= limit {
			continue
		}

		summary.Overdue++
		entry := OverdueIssue{
			IssueID:        issue.ID,
			Title:          issue.Title,
			Department:     issue.Category,
			Status:         issue.Status,
			Severity:       issue.Severity,
			Priority:       issue.Priority,
			AssignedTo:     issue.AssignedTo,
			Since:          since,
			HoursInStatus:  roundHours(age),
			ThresholdHours: limit,
			OverdueBy:      roundHours(age - limit),
		}
		if issue.Status == models.StatusReported {
			report.Pending = append(report.Pending, entry)
		} else {
			report.InProgress = append(report.InProgress, entry)
		}
	}

	byOverdue := func(list []OverdueIssue) func(i, j int) bool {
		return func(i, j int) bool { return list[i].OverdueBy > list[j].OverdueBy }
	}
	sort.SliceStable(report.Pending, byOverdue(report.Pending))
	sort.SliceStable(report.InProgress, byOverdue(report.InProgress))

	for _, d := range models.Departments {
		report.Departments = append(report.Departments, *summaries[d])
		delete(summaries, d)
	}
	// Categories outside the enum only appear through legacy documents.
	extra := make([]models.Department, 0, len(summaries))
	for d := range summaries {
		extra = append(extra, d)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, d := range extra {
		report.Departments = append(report.Departments, *summaries[d])
	}

	if report.Total > 0 {
		report.CompletionRate = int(math.Round(100 * float64(report.Resolved) / float64(report.Total)))
	}
	return report
}

// DashboardService runs the overdue evaluation against the stores.
type DashboardService struct {
	issues     repository.IssueRepository
	thresholds *ThresholdService
	now        func() time.Time
}

func NewDashboardService(issues repository.IssueRepository, thresholds *ThresholdService) *DashboardService {
	return &DashboardService{issues: issues, thresholds: thresholds, now: time.Now}
}

// Dashboard builds the report visible to actor. Department-bound government
// staff only see their own department.
func (s *DashboardService) Dashboard(ctx context.Context, actor *models.User) (*OverdueReport, error) {
	if !CanViewDashboard(actor) {
		return nil, apperrors.Forbidden("Only government staff can view the dashboard")
	}
	set, err := s.thresholds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	issues, err := s.issues.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleGovernment && actor.Department != nil {
		scoped := issues[:0]
		for _, issue := range issues {
			if issue.Category == *actor.Department {
				scoped = append(scoped, issue)
			}
		}
		issues = scoped
	}

	report := EvaluateOverdue(issues, set, s.now())
	return &report, nil
}
