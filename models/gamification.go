package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	BadgeBronze   = "bronze"
	BadgeSilver   = "silver"
	BadgeGold     = "gold"
	BadgePlatinum = "platinum"
)

type Badge struct {
	gorm.Model
	Name                   string `gorm:"not null"`
	Description            string
	Level                  string `gorm:"default:bronze"`
	PointsAwarded          int    `gorm:"default:0"`
	IconURL                string
	RequirementDescription string
	IsActive               bool `gorm:"default:true"`
}

// Achievement types mirror the kinds of accumulated values the evaluator
// compares against required_value.
const (
	AchievementCourseCompletion = "course_completion"
	AchievementStreak           = "streak"
	AchievementQuizScore        = "quiz_score"
	AchievementContribution     = "contribution"
	AchievementSkillMastery     = "skill_mastery"
	AchievementSpecial          = "special"
)

type Achievement struct {
	gorm.Model
	Name            string `gorm:"not null"`
	Description     string
	AchievementType string `gorm:"size:20;index;not null"`
	PointsAwarded   int    `gorm:"default:0"`
	BadgeID         *uint
	IsHidden        bool `gorm:"default:false"`
	RequiredValue   int  `gorm:"default:1"`
	IsActive        bool `gorm:"default:true"`
}

// UserAchievement is created at most once per (user, achievement); the
// unique index is the source of truth under concurrent award attempts.
type UserAchievement struct {
	gorm.Model
	UserID        uint `gorm:"not null;uniqueIndex:idx_user_achievement"`
	AchievementID uint `gorm:"not null;uniqueIndex:idx_user_achievement"`
	DateEarned    time.Time
	ValueAchieved int `gorm:"default:1"`
	CourseID      *uint
	IsShowcased   bool `gorm:"default:false"`

	Achievement Achievement
}

type Level struct {
	gorm.Model
	LevelNumber      int `gorm:"unique;not null"`
	Name             string
	MinPoints        int `gorm:"not null"`
	MaxPoints        int `gorm:"not null"`
	PerksDescription string
}

const (
	TxCourseProgress        = "course_progress"
	TxQuizCompletion        = "quiz_completion"
	TxStreakBonus           = "streak_bonus"
	TxAchievementEarned     = "achievement_earned"
	TxCommunityContribution = "community_contribution"
	TxReferralBonus         = "referral_bonus"
	TxAdminAdjustment       = "admin_adjustment"
	TxChallengeCompletion   = "challenge_completion"
)

// PointTransaction is append-only. The user's balance is always the sum
// of their deltas; no mutable balance column exists anywhere.
type PointTransaction struct {
	gorm.Model
	UserID            uint   `gorm:"index;not null"`
	Points            int    `gorm:"not null"` // signed delta
	TransactionType   string `gorm:"size:30;not null"`
	Description       string
	RelatedObjectType string
	RelatedObjectID   *uint
	AwardedByID       *uint
}

// Streak holds one row per user. Mutated only through the streak service,
// at most one effective transition per calendar day.
type Streak struct {
	gorm.Model
	UserID            uint `gorm:"uniqueIndex;not null"`
	CurrentStreakDays int  `gorm:"default:0"`
	LongestStreakDays int  `gorm:"default:0"` // high-water mark of CurrentStreakDays
	LastActivityDate  time.Time
	StreakFreezeCount int `gorm:"default:0"`
	TotalActivityDays int `gorm:"default:0"`
}

const (
	ChallengeCourseCompletion = "course_completion"
	ChallengeQuizMastery      = "quiz_mastery"
	ChallengeStreak           = "streak"
	ChallengeEngagement       = "engagement"
)

type Challenge struct {
	gorm.Model
	Title         string `gorm:"not null"`
	Description   string
	ChallengeType string `gorm:"size:30;index;not null"`
	PointsReward  int    `gorm:"default:0"`
	BadgeRewardID *uint
	StartDate     time.Time `gorm:"not null"`
	EndDate       time.Time `gorm:"not null"`
	TargetValue   int       `gorm:"default:1"`
	IsActive      bool      `gorm:"default:true"`
	IsFeatured    bool      `gorm:"default:false"`
}

func (ch *Challenge) IsOngoing(now time.Time) bool {
	return !now.Before(ch.StartDate) && !now.After(ch.EndDate)
}

const (
	ChallengeInProgress = "in_progress"
	ChallengeCompleted  = "completed"
	ChallengeFailed     = "failed"
	ChallengeAbandoned  = "abandoned"
)

type UserChallenge struct {
	gorm.Model
	UserID      uint `gorm:"not null;uniqueIndex:idx_user_challenge"`
	ChallengeID uint `gorm:"not null;uniqueIndex:idx_user_challenge"`
	// Monotonically non-decreasing while status is in_progress.
	CurrentValue  int    `gorm:"default:0"`
	Status        string `gorm:"default:in_progress"`
	CompletedAt   *time.Time
	RewardClaimed bool `gorm:"default:false"`

	Challenge Challenge
}
