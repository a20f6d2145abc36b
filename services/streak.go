package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillforge/models"
)

// StreakTransition tags the outcome of a streak update.
type StreakTransition string

const (
	StreakUnchanged      StreakTransition = "unchanged"
	StreakExtended       StreakTransition = "extended"
	StreakFreezeConsumed StreakTransition = "freeze-consumed"
	StreakReset          StreakTransition = "reset"
)

// StreakResult is the state returned to callers after an update.
type StreakResult struct {
	CurrentStreak int              `json:"current_streak"`
	LongestStreak int              `json:"longest_streak"`
	FreezesLeft   int              `json:"freezes_left"`
	Transition    StreakTransition `json:"transition"`
}

// DateOnly truncates t to midnight UTC so streak arithmetic works on
// whole calendar days.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApplyActivity advances the streak state machine in place for activity
// on activityDate and returns the transition taken:
//
//   - same day as the last activity: unchanged
//   - exactly the next day: extended
//   - one missed day with a freeze available: freeze-consumed
//   - a longer gap (or one missed day without a freeze): reset to 1
//
// A date before the recorded last activity is rejected; applying the
// reset branch to a backfilled date would zero a valid streak.
func ApplyActivity(s *models.Streak, activityDate time.Time) (StreakTransition, error) {
	activity := DateOnly(activityDate)
	last := DateOnly(s.LastActivityDate)

	if activity.Before(last) {
		return "", validation("activity_date", "before last recorded activity")
	}

	gap := int(activity.Sub(last).Hours() / 24)

	switch {
	case gap == 0:
		return StreakUnchanged, nil

	case gap == 1:
		s.CurrentStreakDays++
		s.TotalActivityDays++
		s.LastActivityDate = activity
		if s.CurrentStreakDays > s.LongestStreakDays {
			s.LongestStreakDays = s.CurrentStreakDays
		}
		return StreakExtended, nil

	case gap == 2 && s.StreakFreezeCount > 0:
		s.StreakFreezeCount--
		s.TotalActivityDays++
		s.LastActivityDate = activity
		return StreakFreezeConsumed, nil

	default:
		s.CurrentStreakDays = 1
		s.TotalActivityDays++
		s.LastActivityDate = activity
		if s.LongestStreakDays < 1 {
			s.LongestStreakDays = 1
		}
		return StreakReset, nil
	}
}

// StreakService persists streak transitions, one row per user.
type StreakService struct {
	DB *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db}
}

// Update applies one day of activity for the user and commits at most one
// transition. Calling it again on the same day is a no-op.
func (ss *StreakService) Update(userID uint, activityDate time.Time) (*StreakResult, error) {
	var result StreakResult

	err := ss.DB.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&streak).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			streak = models.Streak{
				UserID:            userID,
				CurrentStreakDays: 1,
				LongestStreakDays: 1,
				LastActivityDate:  DateOnly(activityDate),
				TotalActivityDays: 1,
			}
			if err := tx.Create(&streak).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost the creation race; the winner's row carries
					// today's activity already.
					if err := tx.Where("user_id = ?", userID).First(&streak).Error; err != nil {
						return err
					}
					result = streakResult(&streak, StreakUnchanged)
					return nil
				}
				return err
			}
			result = streakResult(&streak, StreakExtended)
			return nil
		} else if err != nil {
			return err
		}

		transition, err := ApplyActivity(&streak, activityDate)
		if err != nil {
			return err
		}

		if transition != StreakUnchanged {
			if err := tx.Save(&streak).Error; err != nil {
				return err
			}
		}

		result = streakResult(&streak, transition)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Get returns the user's streak row, or a zero-value result if the user
// has never been active.
func (ss *StreakService) Get(userID uint) (*models.Streak, error) {
	var streak models.Streak
	err := ss.DB.Where("user_id = ?", userID).First(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Streak{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// AddFreeze grants the user extra streak freezes.
func (ss *StreakService) AddFreeze(userID uint, count int) error {
	if count <= 0 {
		return validation("count", "must be positive")
	}
	return ss.DB.Transaction(func(tx *gorm.DB) error {
		var streak models.Streak
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&streak).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		streak.StreakFreezeCount += count
		return tx.Save(&streak).Error
	})
}

func streakResult(s *models.Streak, transition StreakTransition) StreakResult {
	return StreakResult{
		CurrentStreak: s.CurrentStreakDays,
		LongestStreak: s.LongestStreakDays,
		FreezesLeft:   s.StreakFreezeCount,
		Transition:    transition,
	}
}
