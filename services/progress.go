package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillforge/models"
)

// CompletionResult reports the enrollment state after recording progress.
type CompletionResult struct {
	CompletionPercentage int    `json:"completion_percentage"`
	Status               string `json:"status"`
	// JustCompleted is set only on the call that performed the
	// active -> completed transition.
	JustCompleted bool `json:"just_completed"`
}

// CompletionPercentage computes floor(100 * completed / total). A course
// with no content yields 0, never a division error.
func CompletionPercentage(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(completed * 100 / total)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressTracker owns per-enrollment completion state.
type ProgressTracker struct {
	DB *gorm.DB
}

func NewProgressTracker(db *gorm.DB) *ProgressTracker {
	return &ProgressTracker{DB: db}
}

// Enroll registers the user in a course. Re-enrolling returns the
// existing enrollment.
func (pt *ProgressTracker) Enroll(userID, courseID uint) (*models.Enrollment, error) {
	var course models.Course
	err := pt.DB.First(&course, courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if course.Status != models.CoursePublished {
		return nil, validation("course", "not published")
	}

	enrollment := models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   models.EnrollmentActive,
	}
	if err := pt.DB.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Enrollment
			if err := pt.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
				First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

// RecordCompletion idempotently marks one content item completed for the
// enrollment, accumulates time spent, and recomputes the completion
// percentage under a row lock on the enrollment. Reaching 100% flips an
// active enrollment to completed exactly once.
func (pt *ProgressTracker) RecordCompletion(enrollmentID uint, contentType string, contentID uint, timeSpentDelta int) (*CompletionResult, error) {
	if timeSpentDelta < 0 {
		return nil, validation("time_spent", "must not be negative")
	}

	var result CompletionResult

	err := pt.DB.Transaction(func(tx *gorm.DB) error {
		var enrollment models.Enrollment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&enrollment, enrollmentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		moduleID, err := resolveContentModule(tx, enrollment.CourseID, contentType, contentID)
		if err != nil {
			return err
		}

		if err := upsertProgress(tx, enrollment.ID, moduleID, contentType, contentID, timeSpentDelta); err != nil {
			return err
		}

		pct, err := recomputeCompletion(tx, &enrollment)
		if err != nil {
			return err
		}

		now := time.Now()
		enrollment.CompletionPercentage = pct
		enrollment.LastAccessed = &now
		if pct == 100 && enrollment.Status == models.EnrollmentActive {
			enrollment.Status = models.EnrollmentCompleted
			enrollment.DateCompleted = &now
			result.JustCompleted = true
		}
		if err := tx.Save(&enrollment).Error; err != nil {
			return err
		}

		result.CompletionPercentage = pct
		result.Status = enrollment.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Touch refreshes last_accessed for an enrollment on any content view.
func (pt *ProgressTracker) Touch(enrollmentID uint) error {
	return pt.DB.Model(&models.Enrollment{}).
		Where("id = ?", enrollmentID).
		Update("last_accessed", time.Now()).Error
}

// CompletedCourseCount counts the user's completed enrollments; it is the
// accumulated value fed to course-completion achievements and challenges.
func (pt *ProgressTracker) CompletedCourseCount(userID uint) (int, error) {
	var count int64
	err := pt.DB.Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentCompleted).
		Count(&count).Error
	return int(count), err
}

// resolveContentModule finds the module of the referenced content item
// and checks it belongs to the enrollment's course.
func resolveContentModule(tx *gorm.DB, courseID uint, contentType string, contentID uint) (uint, error) {
	var moduleID uint
	var err error

	switch contentType {
	case models.ContentText:
		err = contentModuleID(tx, &models.TextContent{}, contentID, &moduleID)
	case models.ContentVideo:
		err = contentModuleID(tx, &models.VideoContent{}, contentID, &moduleID)
	case models.ContentResource:
		err = contentModuleID(tx, &models.ResourceContent{}, contentID, &moduleID)
	case models.ContentAssignment:
		err = contentModuleID(tx, &models.Assignment{}, contentID, &moduleID)
	default:
		return 0, validation("content_type", "unknown content type")
	}
	if err != nil {
		return 0, err
	}

	var module models.CourseModule
	err = tx.First(&module, moduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if module.CourseID != courseID {
		return 0, validation("content_id", "content does not belong to the enrolled course")
	}
	return moduleID, nil
}

func contentModuleID(tx *gorm.DB, model interface{}, contentID uint, moduleID *uint) error {
	var row struct{ ModuleID uint }
	err := tx.Model(model).
		Select("module_id").
		Where("id = ?", contentID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	*moduleID = row.ModuleID
	return nil
}

// upsertProgress creates the Progress row on first interaction or marks
// the existing one completed; time_spent only ever grows. A duplicate
// insert lost to a concurrent request falls through to the update path.
func upsertProgress(tx *gorm.DB, enrollmentID, moduleID uint, contentType string, contentID uint, timeSpentDelta int) error {
	var progress models.Progress
	err := tx.Where(
		"enrollment_id = ? AND content_type = ? AND content_id = ?",
		enrollmentID, contentType, contentID,
	).First(&progress).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = models.Progress{
			EnrollmentID: enrollmentID,
			ModuleID:     moduleID,
			ContentType:  contentType,
			ContentID:    contentID,
			Completed:    true,
			TimeSpent:    timeSpentDelta,
		}
		err = tx.Create(&progress).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		if err := tx.Where(
			"enrollment_id = ? AND content_type = ? AND content_id = ?",
			enrollmentID, contentType, contentID,
		).First(&progress).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	progress.Completed = true
	progress.TimeSpent += timeSpentDelta
	return tx.Save(&progress).Error
}

// recomputeCompletion counts every content item across the course's
// modules as the denominator and completed Progress rows as the numerator.
func recomputeCompletion(tx *gorm.DB, enrollment *models.Enrollment) (int, error) {
	var moduleIDs []uint
	if err := tx.Model(&models.CourseModule{}).
		Where("course_id = ?", enrollment.CourseID).
		Pluck("id", &moduleIDs).Error; err != nil {
		return 0, err
	}
	if len(moduleIDs) == 0 {
		return 0, nil
	}

	var total int64
	for _, model := range []interface{}{
		&models.TextContent{}, &models.VideoContent{},
		&models.ResourceContent{}, &models.Assignment{},
	} {
		var count int64
		if err := tx.Model(model).
			Where("module_id IN ?", moduleIDs).
			Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}

	var completed int64
	if err := tx.Model(&models.Progress{}).
		Where("enrollment_id = ? AND completed = ?", enrollment.ID, true).
		Count(&completed).Error; err != nil {
		return 0, err
	}

	return CompletionPercentage(completed, total), nil
}
