package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleGovernment  Role = "government"
	RoleManager     Role = "manager"
	RoleFieldWorker Role = "field_worker"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleGovernment, RoleManager, RoleFieldWorker:
		return true
	}
	return false
}

// NeedsDepartment reports whether the role is bound to a department.
func (r Role) NeedsDepartment() bool {
	return r == RoleGovernment || r == RoleFieldWorker
}

type RedeemedReward struct {
	RewardID   string    `bson:"rewardId" json:"rewardId"`
	Code       string    `bson:"code" json:"code"`
	RedeemedAt time.Time `bson:"redeemedAt" json:"redeemedAt"`
}

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"`
	Password        string             `bson:"password,omitempty" json:"-"`
	EmailVerified   bool               `bson:"emailVerified" json:"emailVerified"`
	Role            Role               `bson:"role" json:"role"`
	Department      *Department        `bson:"department,omitempty" json:"department,omitempty"`
	ImpactScore     int                `bson:"impactScore" json:"impactScore"`
	Level           int                `bson:"level" json:"level"`
	RedeemedRewards []RedeemedReward   `bson:"redeemedRewards" json:"redeemedRewards"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) HasRedeemed(rewardID string) bool {
	for _, r := range u.RedeemedRewards {
		if r.RewardID == rewardID {
			return true
		}
	}
	return false
}

// LevelTier is one row of the fixed leveling table.
type LevelTier struct {
	Level    int    `json:"level"`
	MinScore int    `json:"minScore"`
	Name     string `json:"name"`
}

var LevelTiers = []LevelTier{
	{Level: 1, MinScore: 0, Name: "Newcomer"},
	{Level: 2, MinScore: 200, Name: "Contributor"},
	{Level: 3, MinScore: 400, Name: "Advocate"},
	{Level: 4, MinScore: 600, Name: "Champion"},
	{Level: 5, MinScore: 800, Name: "Civic Hero"},
}

// LevelForScore returns the highest level whose minimum score is reached.
func LevelForScore(score int) int {
	level := LevelTiers[0].Level
	for _, tier := range LevelTiers {
		if score >= tier.MinScore {
			level = tier.Level
		}
	}
	return level
}

// TierFor returns the tier of level and the next tier, if any.
func TierFor(level int) (LevelTier, *LevelTier) {
	for idx, tier := range LevelTiers {
		if tier.Level == level {
			if idx+1 < len(LevelTiers) {
				next := LevelTiers[idx+1]
				return tier, &next
			}
			return tier, nil
		}
	}
	return LevelTiers[0], &LevelTiers[1]
}
