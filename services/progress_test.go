package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/models"
)

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, CompletionPercentage(0, 0))
	assert.Equal(t, 0, CompletionPercentage(5, 0))
	assert.Equal(t, 0, CompletionPercentage(0, 4))
	assert.Equal(t, 25, CompletionPercentage(1, 4))
	assert.Equal(t, 33, CompletionPercentage(1, 3))
	assert.Equal(t, 100, CompletionPercentage(4, 4))
}

func TestRecordCompletionAdvancesPercentage(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor1")
	student := createUser(t, db, "student1")
	course, _, contentIDs := createCourseWithContent(t, db, "go-basics", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)

	result, err := tracker.RecordCompletion(enrollment.ID, models.ContentText, contentIDs[0], 120)
	require.NoError(t, err)
	assert.Equal(t, 25, result.CompletionPercentage)
	assert.Equal(t, models.EnrollmentActive, result.Status)
	assert.False(t, result.JustCompleted)

	var refreshed models.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.NotNil(t, refreshed.LastAccessed)
}

func TestRecordCompletionIdempotent(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor2")
	student := createUser(t, db, "student2")
	course, _, contentIDs := createCourseWithContent(t, db, "idempotent", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	first, err := tracker.RecordCompletion(enrollment.ID, models.ContentText, contentIDs[0], 60)
	require.NoError(t, err)
	second, err := tracker.RecordCompletion(enrollment.ID, models.ContentText, contentIDs[0], 0)
	require.NoError(t, err)

	assert.Equal(t, first.CompletionPercentage, second.CompletionPercentage)

	var count int64
	db.Model(&models.Progress{}).Where("enrollment_id = ?", enrollment.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	var progress models.Progress
	require.NoError(t, db.Where("enrollment_id = ?", enrollment.ID).First(&progress).Error)
	assert.Equal(t, 60, progress.TimeSpent)
}

func TestRecordCompletionTimeSpentAccumulates(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor3")
	student := createUser(t, db, "student3")
	course, _, contentIDs := createCourseWithContent(t, db, "accumulate", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	_, err = tracker.RecordCompletion(enrollment.ID, models.ContentVideo, contentIDs[2], 100)
	require.NoError(t, err)
	_, err = tracker.RecordCompletion(enrollment.ID, models.ContentVideo, contentIDs[2], 50)
	require.NoError(t, err)

	var progress models.Progress
	require.NoError(t, db.Where(
		"enrollment_id = ? AND content_type = ?", enrollment.ID, models.ContentVideo,
	).First(&progress).Error)
	assert.Equal(t, 150, progress.TimeSpent)
}

func TestRecordCompletionNegativeTimeRejected(t *testing.T) {
	db := newTestDB(t)
	tracker := NewProgressTracker(db)

	_, err := tracker.RecordCompletion(1, models.ContentText, 1, -10)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRecordCompletionUnknownEnrollment(t *testing.T) {
	db := newTestDB(t)
	tracker := NewProgressTracker(db)

	_, err := tracker.RecordCompletion(9999, models.ContentText, 1, 0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRecordCompletionForeignContentRejected(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor4")
	student := createUser(t, db, "student4")
	course, _, _ := createCourseWithContent(t, db, "mine", instructor.ID)
	_, _, otherContent := createCourseWithContent(t, db, "other", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	_, err = tracker.RecordCompletion(enrollment.ID, models.ContentText, otherContent[0], 0)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCompletionTransitionHappensOnce(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor5")
	student := createUser(t, db, "student5")
	course, _, contentIDs := createCourseWithContent(t, db, "finish", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	contentTypes := []string{
		models.ContentText, models.ContentText,
		models.ContentVideo, models.ContentAssignment,
	}
	var last *CompletionResult
	for i, id := range contentIDs {
		last, err = tracker.RecordCompletion(enrollment.ID, contentTypes[i], id, 30)
		require.NoError(t, err)
	}

	assert.Equal(t, 100, last.CompletionPercentage)
	assert.Equal(t, models.EnrollmentCompleted, last.Status)
	assert.True(t, last.JustCompleted)

	var refreshed models.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	require.NotNil(t, refreshed.DateCompleted)
	firstCompletion := *refreshed.DateCompleted

	// Replaying the final completion does not transition again.
	again, err := tracker.RecordCompletion(enrollment.ID, contentTypes[3], contentIDs[3], 0)
	require.NoError(t, err)
	assert.Equal(t, 100, again.CompletionPercentage)
	assert.Equal(t, models.EnrollmentCompleted, again.Status)
	assert.False(t, again.JustCompleted)

	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.Equal(t, firstCompletion, *refreshed.DateCompleted)
}

func TestEmptyCourseYieldsZeroPercent(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor6")
	student := createUser(t, db, "student6")

	course := models.Course{
		Title: "Empty", Slug: "empty",
		InstructorID: instructor.ID,
		Status:       models.CoursePublished,
	}
	require.NoError(t, db.Create(&course).Error)
	module := models.CourseModule{CourseID: course.ID, Title: "Empty module"}
	require.NoError(t, db.Create(&module).Error)
	text := models.TextContent{}
	text.ModuleID = module.ID
	require.NoError(t, db.Create(&text).Error)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	// Delete the only content item after a progress row exists so the
	// denominator goes to zero.
	result, err := tracker.RecordCompletion(enrollment.ID, models.ContentText, text.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, result.CompletionPercentage)

	require.NoError(t, db.Unscoped().Delete(&models.TextContent{}, text.ID).Error)

	var enr models.Enrollment
	require.NoError(t, db.First(&enr, enrollment.ID).Error)
	pct, err := recomputeCompletion(db, &enr)
	require.NoError(t, err)
	assert.Equal(t, 0, pct)
}

func TestEnrollTwiceReturnsExisting(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor7")
	student := createUser(t, db, "student7")
	course, _, _ := createCourseWithContent(t, db, "dup-enroll", instructor.ID)

	tracker := NewProgressTracker(db)
	first, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	second, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnrollUnpublishedCourseRejected(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "instructor8")
	student := createUser(t, db, "student8")

	course := models.Course{
		Title: "Draft", Slug: "draft-course",
		InstructorID: instructor.ID,
		Status:       models.CourseDraft,
	}
	require.NoError(t, db.Create(&course).Error)

	tracker := NewProgressTracker(db)
	_, err := tracker.Enroll(student.ID, course.ID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
