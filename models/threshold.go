package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MinThresholdHours is the smallest configurable dwell time.
const MinThresholdHours = 1

// Limits is the maximum dwell time, in hours, per open status.
type Limits struct {
	MaxPendingHours    float64 `bson:"maxPendingHours" json:"maxPendingHours"`
	MaxInProgressHours float64 `bson:"maxInProgressHours" json:"maxInProgressHours"`
}

// DefaultLimits applies to departments without an active threshold.
var DefaultLimits = Limits{MaxPendingHours: 72, MaxInProgressHours: 168}

func (l Limits) Validate() error {
	if l.MaxPendingHours < MinThresholdHours {
		return fmt.Errorf("maxPendingHours must be at least %d", MinThresholdHours)
	}
	if l.MaxInProgressHours < MinThresholdHours {
		return fmt.Errorf("maxInProgressHours must be at least %d", MinThresholdHours)
	}
	return nil
}

// For returns the limit that applies to status. Only open statuses have one.
func (l Limits) For(status IssueStatus) (float64, bool) {
	switch status {
	case StatusReported:
		return l.MaxPendingHours, true
	case StatusInProgress:
		return l.MaxInProgressHours, true
	}
	return 0, false
}

type DepartmentThreshold struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Department  Department          `bson:"department" json:"department"`
	Limits      `bson:",inline"`
	Description string              `bson:"description" json:"description"`
	IsActive    bool                `bson:"isActive" json:"isActive"`
	UpdatedBy   *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ThresholdSet resolves effective limits per department.
type ThresholdSet struct {
	defaults Limits
	byDept   map[Department]Limits
}

// NewThresholdSet keeps only active thresholds; later entries win.
func NewThresholdSet(defaults Limits, thresholds []DepartmentThreshold) ThresholdSet {
	set := ThresholdSet{defaults: defaults, byDept: make(map[Department]Limits, len(thresholds))}
	for _, t := range thresholds {
		if t.IsActive {
			set.byDept[t.Department] = t.Limits
		}
	}
	return set
}

func (s ThresholdSet) For(d Department) Limits {
	if l, ok := s.byDept[d]; ok {
		return l
	}
	return s.defaults
}

func (s ThresholdSet) Configured(d Department) bool {
	_, ok := s.byDept[d]
	return ok
}
