package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/models"
)

func TestApplyActivitySameDay(t *testing.T) {
	streak := models.Streak{
		CurrentStreakDays: 5,
		LongestStreakDays: 5,
		LastActivityDate:  date(2024, time.January, 1),
		TotalActivityDays: 10,
	}

	transition, err := ApplyActivity(&streak, date(2024, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, StreakUnchanged, transition)
	assert.Equal(t, 5, streak.CurrentStreakDays)
	assert.Equal(t, 10, streak.TotalActivityDays)
}

func TestApplyActivitySequence(t *testing.T) {
	streak := models.Streak{
		CurrentStreakDays: 5,
		LongestStreakDays: 5,
		LastActivityDate:  date(2024, time.January, 1),
		StreakFreezeCount: 1,
		TotalActivityDays: 5,
	}

	// Next-day activity extends the streak and the high-water mark.
	transition, err := ApplyActivity(&streak, date(2024, time.January, 2))
	require.NoError(t, err)
	assert.Equal(t, StreakExtended, transition)
	assert.Equal(t, 6, streak.CurrentStreakDays)
	assert.Equal(t, 6, streak.LongestStreakDays)

	// One missed day with a freeze available consumes the freeze and
	// keeps the streak.
	transition, err = ApplyActivity(&streak, date(2024, time.January, 4))
	require.NoError(t, err)
	assert.Equal(t, StreakFreezeConsumed, transition)
	assert.Equal(t, 6, streak.CurrentStreakDays)
	assert.Equal(t, 0, streak.StreakFreezeCount)

	// A longer gap with no freeze left resets to 1.
	transition, err = ApplyActivity(&streak, date(2024, time.January, 7))
	require.NoError(t, err)
	assert.Equal(t, StreakReset, transition)
	assert.Equal(t, 1, streak.CurrentStreakDays)
	assert.Equal(t, 6, streak.LongestStreakDays)
	assert.Equal(t, 8, streak.TotalActivityDays)
}

func TestApplyActivityMissedDayWithoutFreeze(t *testing.T) {
	streak := models.Streak{
		CurrentStreakDays: 3,
		LongestStreakDays: 3,
		LastActivityDate:  date(2024, time.March, 10),
	}

	transition, err := ApplyActivity(&streak, date(2024, time.March, 12))
	require.NoError(t, err)
	assert.Equal(t, StreakReset, transition)
	assert.Equal(t, 1, streak.CurrentStreakDays)
}

func TestApplyActivityBackdatedRejected(t *testing.T) {
	streak := models.Streak{
		CurrentStreakDays: 5,
		LongestStreakDays: 5,
		LastActivityDate:  date(2024, time.June, 10),
	}

	_, err := ApplyActivity(&streak, date(2024, time.June, 9))
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	// State untouched on rejection.
	assert.Equal(t, 5, streak.CurrentStreakDays)
	assert.Equal(t, date(2024, time.June, 10), streak.LastActivityDate)
}

func TestApplyActivityLongestNeverDecreases(t *testing.T) {
	streak := models.Streak{
		CurrentStreakDays: 1,
		LongestStreakDays: 1,
		LastActivityDate:  date(2024, time.May, 1),
	}

	days := []int{2, 3, 4, 8, 9, 20, 21, 22, 23, 24}
	prevLongest := streak.LongestStreakDays
	for _, d := range days {
		_, err := ApplyActivity(&streak, date(2024, time.May, d))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, streak.LongestStreakDays, prevLongest)
		assert.GreaterOrEqual(t, streak.LongestStreakDays, streak.CurrentStreakDays)
		prevLongest = streak.LongestStreakDays
	}
	assert.Equal(t, 5, streak.CurrentStreakDays)
	assert.Equal(t, 5, streak.LongestStreakDays)
}

func TestStreakServiceFirstActivityCreatesRow(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "firststreak")
	service := NewStreakService(db)

	result, err := service.Update(user.ID, date(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, StreakExtended, result.Transition)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 1, result.LongestStreak)

	var streak models.Streak
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&streak).Error)
	assert.Equal(t, 1, streak.TotalActivityDays)
}

func TestStreakServiceSameDayIsNoOp(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "sameday")
	service := NewStreakService(db)

	_, err := service.Update(user.ID, date(2024, time.February, 1))
	require.NoError(t, err)

	result, err := service.Update(user.ID, date(2024, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, StreakUnchanged, result.Transition)
	assert.Equal(t, 1, result.CurrentStreak)
}

func TestStreakServicePersistsTransitions(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "persist")
	service := NewStreakService(db)

	_, err := service.Update(user.ID, date(2024, time.February, 1))
	require.NoError(t, err)
	result, err := service.Update(user.ID, date(2024, time.February, 2))
	require.NoError(t, err)
	assert.Equal(t, StreakExtended, result.Transition)
	assert.Equal(t, 2, result.CurrentStreak)

	require.NoError(t, service.AddFreeze(user.ID, 1))

	// Miss one day; the freeze keeps the streak.
	result, err = service.Update(user.ID, date(2024, time.February, 4))
	require.NoError(t, err)
	assert.Equal(t, StreakFreezeConsumed, result.Transition)
	assert.Equal(t, 2, result.CurrentStreak)
	assert.Equal(t, 0, result.FreezesLeft)
}

func TestStreakServiceGetWithoutActivity(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "noactivity")
	service := NewStreakService(db)

	streak, err := service.Get(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, streak.CurrentStreakDays)
}
