package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/models"
)

func TestChallengeProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ChallengeProgressPercent(10, 0))
	assert.Equal(t, 0, ChallengeProgressPercent(0, 100))
	assert.Equal(t, 80, ChallengeProgressPercent(80, 100))
	assert.Equal(t, 33, ChallengeProgressPercent(1, 3))
	assert.Equal(t, 100, ChallengeProgressPercent(120, 100))
}

func activeChallenge(target, reward int) *models.Challenge {
	now := time.Now()
	return &models.Challenge{
		Title:         "Reach the target",
		ChallengeType: models.ChallengeCourseCompletion,
		PointsReward:  reward,
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(24 * time.Hour),
		TargetValue:   target,
	}
}

func TestCreateChallengeRejectsZeroTarget(t *testing.T) {
	db := newTestDB(t)
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	challenge := activeChallenge(0, 10)
	err := evaluator.CreateChallenge(challenge)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestAdvanceChallengeMonotonic(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "challenger1")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	challenge := activeChallenge(100, 0)
	require.NoError(t, evaluator.CreateChallenge(challenge))
	uc, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.NoError(t, err)

	result, err := evaluator.AdvanceChallenge(uc.ID, 80)
	require.NoError(t, err)
	assert.Equal(t, 80, result.CurrentValue)
	assert.Equal(t, 80, result.ProgressPercentage)
	assert.Equal(t, models.ChallengeInProgress, result.Status)

	// A lower value never regresses progress.
	result, err = evaluator.AdvanceChallenge(uc.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 80, result.CurrentValue)
	assert.Equal(t, models.ChallengeInProgress, result.Status)
}

func TestAdvanceChallengeCompletesAndCaps(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "challenger2")
	ledger := NewPointsLedger(db)
	evaluator := NewEvaluator(db, ledger)

	challenge := activeChallenge(100, 25)
	require.NoError(t, evaluator.CreateChallenge(challenge))
	uc, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.NoError(t, err)

	result, err := evaluator.AdvanceChallenge(uc.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, 120, result.CurrentValue)
	assert.Equal(t, 100, result.ProgressPercentage)
	assert.Equal(t, models.ChallengeCompleted, result.Status)

	var refreshed models.UserChallenge
	require.NoError(t, db.First(&refreshed, uc.ID).Error)
	assert.NotNil(t, refreshed.CompletedAt)
	assert.True(t, refreshed.RewardClaimed)

	balance, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	// Re-advancing a completed challenge is a no-op and never pays twice.
	result, err = evaluator.AdvanceChallenge(uc.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 120, result.CurrentValue)
	assert.Equal(t, models.ChallengeCompleted, result.Status)

	balance, err = ledger.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, balance)
}

func TestAdvanceChallengeNegativeRejected(t *testing.T) {
	db := newTestDB(t)
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	_, err := evaluator.AdvanceChallenge(1, -5)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestJoinChallengeTwiceReturnsExisting(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "challenger3")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	challenge := activeChallenge(10, 0)
	require.NoError(t, evaluator.CreateChallenge(challenge))

	first, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.NoError(t, err)
	second, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestJoinChallengeOutsideWindowRejected(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "challenger4")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	challenge := activeChallenge(10, 0)
	challenge.StartDate = time.Now().Add(-48 * time.Hour)
	challenge.EndDate = time.Now().Add(-24 * time.Hour)
	require.NoError(t, evaluator.CreateChallenge(challenge))

	_, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestAdvanceUserChallengesByType(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "challenger5")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	courses := activeChallenge(3, 0)
	require.NoError(t, evaluator.CreateChallenge(courses))
	streaks := activeChallenge(7, 0)
	streaks.ChallengeType = models.ChallengeStreak
	require.NoError(t, evaluator.CreateChallenge(streaks))

	ucCourses, err := evaluator.JoinChallenge(user.ID, courses.ID)
	require.NoError(t, err)
	ucStreaks, err := evaluator.JoinChallenge(user.ID, streaks.ID)
	require.NoError(t, err)

	require.NoError(t, evaluator.AdvanceUserChallenges(user.ID, models.ChallengeCourseCompletion, 2))

	var refreshedCourses models.UserChallenge
	require.NoError(t, db.First(&refreshedCourses, ucCourses.ID).Error)
	assert.Equal(t, 2, refreshedCourses.CurrentValue)

	// Challenges of another type are untouched.
	var refreshedStreaks models.UserChallenge
	require.NoError(t, db.First(&refreshedStreaks, ucStreaks.ID).Error)
	assert.Equal(t, 0, refreshedStreaks.CurrentValue)
}

func TestCheckAchievementAwardsOnce(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "achiever1")
	ledger := NewPointsLedger(db)
	evaluator := NewEvaluator(db, ledger)

	achievement := models.Achievement{
		Name:            "Week-long streak",
		AchievementType: models.AchievementStreak,
		RequiredValue:   7,
		PointsAwarded:   15,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	awarded, err := evaluator.CheckAchievement(user.ID, models.AchievementStreak, 7)
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, 7, awarded[0].ValueAchieved)

	// Second call with the threshold still met awards nothing new.
	awarded, err = evaluator.CheckAchievement(user.ID, models.AchievementStreak, 9)
	require.NoError(t, err)
	assert.Empty(t, awarded)

	var count int64
	db.Model(&models.UserAchievement{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	balance, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, balance)
}

func TestCheckAchievementBelowThreshold(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "achiever2")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	achievement := models.Achievement{
		Name:            "Ten courses",
		AchievementType: models.AchievementCourseCompletion,
		RequiredValue:   10,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&achievement).Error)

	awarded, err := evaluator.CheckAchievement(user.ID, models.AchievementCourseCompletion, 9)
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestExpireChallenges(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "expirer")
	evaluator := NewEvaluator(db, NewPointsLedger(db))

	challenge := activeChallenge(10, 0)
	require.NoError(t, evaluator.CreateChallenge(challenge))
	uc, err := evaluator.JoinChallenge(user.ID, challenge.ID)
	require.NoError(t, err)

	expired, err := evaluator.ExpireChallenges(time.Now().Add(48 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var refreshed models.UserChallenge
	require.NoError(t, db.First(&refreshed, uc.ID).Error)
	assert.Equal(t, models.ChallengeFailed, refreshed.Status)
}
