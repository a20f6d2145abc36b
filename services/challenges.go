package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillforge/models"
)

// ChallengeResult reports the user-challenge state after an advance.
type ChallengeResult struct {
	CurrentValue       int    `json:"current_value"`
	ProgressPercentage int    `json:"progress_percentage"`
	Status             string `json:"status"`
}

// ChallengeProgressPercent computes min(100, floor(100*current/target)).
// A non-positive target yields 0; such challenges are rejected before
// they can be created.
func ChallengeProgressPercent(current, target int) int {
	if target <= 0 {
		return 0
	}
	pct := current * 100 / target
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Evaluator compares accumulated values against challenge targets and
// achievement thresholds.
type Evaluator struct {
	DB     *gorm.DB
	Ledger *PointsLedger
}

func NewEvaluator(db *gorm.DB, ledger *PointsLedger) *Evaluator {
	return &Evaluator{DB: db, Ledger: ledger}
}

// CreateChallenge validates and stores a new challenge definition.
func (ev *Evaluator) CreateChallenge(challenge *models.Challenge) error {
	if challenge.TargetValue <= 0 {
		return validation("target_value", "must be positive")
	}
	if !challenge.EndDate.After(challenge.StartDate) {
		return validation("end_date", "must be after start_date")
	}
	return ev.DB.Create(challenge).Error
}

// JoinChallenge enters the user into an ongoing challenge. Joining twice
// returns the existing participation.
func (ev *Evaluator) JoinChallenge(userID, challengeID uint) (*models.UserChallenge, error) {
	var challenge models.Challenge
	err := ev.DB.First(&challenge, challengeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive {
		return nil, validation("challenge", "not active")
	}
	if !challenge.IsOngoing(time.Now()) {
		return nil, validation("challenge", "outside its time window")
	}

	uc := models.UserChallenge{
		UserID:      userID,
		ChallengeID: challengeID,
		Status:      models.ChallengeInProgress,
	}
	if err := ev.DB.Create(&uc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.UserChallenge
			if err := ev.DB.Where("user_id = ? AND challenge_id = ?", userID, challengeID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &uc, nil
}

// AdvanceChallenge raises current_value to max(current_value, newValue)
// under a row lock and completes the challenge when the target is met.
// Advancing a non-in_progress participation is a no-op.
func (ev *Evaluator) AdvanceChallenge(userChallengeID uint, newValue int) (*ChallengeResult, error) {
	if newValue < 0 {
		return nil, validation("new_value", "must not be negative")
	}

	var result ChallengeResult

	err := ev.DB.Transaction(func(tx *gorm.DB) error {
		var uc models.UserChallenge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&uc, userChallengeID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var challenge models.Challenge
		if err := tx.First(&challenge, uc.ChallengeID).Error; err != nil {
			return err
		}
		if challenge.TargetValue <= 0 {
			return validation("target_value", "challenge has invalid configuration")
		}

		if uc.Status != models.ChallengeInProgress {
			result = challengeResult(&uc, &challenge)
			return nil
		}

		if newValue > uc.CurrentValue {
			uc.CurrentValue = newValue
		}

		if uc.CurrentValue >= challenge.TargetValue {
			now := time.Now()
			uc.Status = models.ChallengeCompleted
			uc.CompletedAt = &now
		}

		if err := tx.Save(&uc).Error; err != nil {
			return err
		}

		result = challengeResult(&uc, &challenge)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The reward is appended outside the row lock; the claimed flag keeps
	// it single-shot.
	if result.Status == models.ChallengeCompleted {
		if err := ev.claimReward(userChallengeID); err != nil {
			return nil, err
		}
	}

	return &result, nil
}

// AdvanceUserChallenges pushes an accumulated value into every in-progress
// participation the user has in ongoing challenges of the given type.
func (ev *Evaluator) AdvanceUserChallenges(userID uint, challengeType string, value int) error {
	var participations []models.UserChallenge
	err := ev.DB.Joins("JOIN challenges ON challenges.id = user_challenges.challenge_id").
		Where("user_challenges.user_id = ? AND user_challenges.status = ?", userID, models.ChallengeInProgress).
		Where("challenges.challenge_type = ? AND challenges.is_active = ?", challengeType, true).
		Find(&participations).Error
	if err != nil {
		return err
	}

	for _, uc := range participations {
		if _, err := ev.AdvanceChallenge(uc.ID, value); err != nil {
			return err
		}
	}
	return nil
}

// CheckAchievement awards every active achievement of the given type whose
// threshold the value meets and the user does not hold yet. Concurrent
// duplicate calls are safe: the unique (user, achievement) constraint wins
// and the loser treats the conflict as already-awarded.
func (ev *Evaluator) CheckAchievement(userID uint, achievementType string, value int) ([]models.UserAchievement, error) {
	if value < 0 {
		return nil, validation("value", "must not be negative")
	}

	var achievements []models.Achievement
	err := ev.DB.Where(
		"achievement_type = ? AND is_active = ? AND required_value <= ?",
		achievementType, true, value,
	).Find(&achievements).Error
	if err != nil {
		return nil, err
	}

	var awarded []models.UserAchievement
	for _, achievement := range achievements {
		ua := models.UserAchievement{
			UserID:        userID,
			AchievementID: achievement.ID,
			DateEarned:    time.Now(),
			ValueAchieved: value,
		}
		if err := ev.DB.Create(&ua).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return nil, err
		}

		if achievement.PointsAwarded != 0 && ev.Ledger != nil {
			id := achievement.ID
			_, _, err := ev.Ledger.Award(userID, achievement.PointsAwarded,
				models.TxAchievementEarned,
				fmt.Sprintf("Achievement earned: %s", achievement.Name),
				"achievement", &id)
			if err != nil {
				return nil, err
			}
		}
		awarded = append(awarded, ua)
	}
	return awarded, nil
}

// ExpireChallenges fails every in-progress participation whose challenge
// window has closed. Run nightly by the scheduler.
func (ev *Evaluator) ExpireChallenges(now time.Time) (int64, error) {
	result := ev.DB.Model(&models.UserChallenge{}).
		Where("status = ?", models.ChallengeInProgress).
		Where("challenge_id IN (?)",
			ev.DB.Model(&models.Challenge{}).Select("id").Where("end_date < ?", now),
		).
		Update("status", models.ChallengeFailed)
	return result.RowsAffected, result.Error
}

// claimReward appends the challenge's point reward exactly once.
func (ev *Evaluator) claimReward(userChallengeID uint) error {
	if ev.Ledger == nil {
		return nil
	}
	return ev.DB.Transaction(func(tx *gorm.DB) error {
		var uc models.UserChallenge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&uc, userChallengeID).Error
		if err != nil {
			return err
		}
		if uc.Status != models.ChallengeCompleted || uc.RewardClaimed {
			return nil
		}

		var challenge models.Challenge
		if err := tx.First(&challenge, uc.ChallengeID).Error; err != nil {
			return err
		}

		uc.RewardClaimed = true
		if err := tx.Save(&uc).Error; err != nil {
			return err
		}

		if challenge.PointsReward != 0 {
			transaction := models.PointTransaction{
				UserID:            uc.UserID,
				Points:            challenge.PointsReward,
				TransactionType:   models.TxChallengeCompletion,
				Description:       fmt.Sprintf("Challenge completed: %s", challenge.Title),
				RelatedObjectType: "challenge",
				RelatedObjectID:   &challenge.ID,
			}
			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func challengeResult(uc *models.UserChallenge, challenge *models.Challenge) ChallengeResult {
	return ChallengeResult{
		CurrentValue:       uc.CurrentValue,
		ProgressPercentage: ChallengeProgressPercent(uc.CurrentValue, challenge.TargetValue),
		Status:             uc.Status,
	}
}
