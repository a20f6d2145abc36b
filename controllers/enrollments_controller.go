package controllers

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"

	"skillforge/config"
	"skillforge/models"
	"skillforge/services"
	"skillforge/utils"
)

type EnrollmentsController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Tracker  *services.ProgressTracker
	Activity *services.ActivityService
}

func NewEnrollmentsController(db *gorm.DB, cfg *config.Config, tracker *services.ProgressTracker, activity *services.ActivityService) *EnrollmentsController {
	return &EnrollmentsController{DB: db, Cfg: cfg, Tracker: tracker, Activity: activity}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Enrolling twice returns the existing enrollment
// @Tags enrollments
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/enroll [post]
func (ec *EnrollmentsController) Enroll(c *fiber.Ctx) error {
	userID, err := currentUserID(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	enrollment, err := ec.Tracker.Enroll(userID, uint(courseID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not enroll")
	}

	return utils.Success(c, fiber.StatusOK, enrollment)
}

// GetMyEnrollments godoc
// @Summary List the authenticated user's enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /enrollments [get]
func (ec *EnrollmentsController) GetMyEnrollments(c *fiber.Ctx) error {
	userID, err := currentUserID(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var enrollments []models.Enrollment
	if err := ec.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&enrollments).Error; err != nil {
		return utils.InternalServerError(c, "Could not query enrollments")
	}

	// Attach course summaries so clients can render the list in one call.
	courseIDs := make([]uint, 0, len(enrollments))
	for _, enrollment := range enrollments {
		courseIDs = append(courseIDs, enrollment.CourseID)
	}
	coursesByID := map[uint]models.Course{}
	if len(courseIDs) > 0 {
		var courses []models.Course
		ec.DB.Where("id IN ?", courseIDs).Find(&courses)
		for _, course := range courses {
			coursesByID[course.ID] = course
		}
	}

	items := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course := coursesByID[enrollment.CourseID]
		items = append(items, fiber.Map{
			"enrollment": enrollment,
			"course": fiber.Map{
				"id":    course.ID,
				"title": course.Title,
				"slug":  course.Slug,
				"level": course.Level,
			},
		})
	}

	return utils.Success(c, fiber.StatusOK, items)
}

// GetEnrollmentProgress godoc
// @Summary Get per-content progress for an enrollment
// @Tags enrollments
// @Produce json
// @Param id path int true "Enrollment id"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /enrollments/{id}/progress [get]
func (ec *EnrollmentsController) GetEnrollmentProgress(c *fiber.Ctx) error {
	userID, err := currentUserID(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	enrollmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid enrollment id")
	}

	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, enrollmentID).Error; err != nil {
		return utils.NotFound(c, "Enrollment not found")
	}
	if enrollment.UserID != userID {
		return utils.Forbidden(c, "Not your enrollment")
	}

	// Viewing course content counts as access.
	ec.Tracker.Touch(enrollment.ID)
	ec.DB.First(&enrollment, enrollment.ID)

	var progress []models.Progress
	if err := ec.DB.Where("enrollment_id = ?", enrollment.ID).Find(&progress).Error; err != nil {
		return utils.InternalServerError(c, "Could not query progress")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"enrollment": enrollment,
		"progress":   progress,
	})
}

// RecordCompletion godoc
// @Summary Mark a content item completed
// @Description Completing content is idempotent and drives streaks, points, challenges, achievements and certificates
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /enrollments/{id}/progress [post]
func (ec *EnrollmentsController) RecordCompletion(c *fiber.Ctx) error {
	userID, err := currentUserID(c, ec.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	enrollmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid enrollment id")
	}

	type CompletionInput struct {
		ContentType string `json:"content_type" validate:"required,oneof=text video resource assignment"`
		ContentID   uint   `json:"content_id" validate:"required"`
		TimeSpent   int    `json:"time_spent" validate:"gte=0"`
	}

	var input CompletionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	var enrollment models.Enrollment
	if err := ec.DB.First(&enrollment, enrollmentID).Error; err != nil {
		return utils.NotFound(c, "Enrollment not found")
	}
	if enrollment.UserID != userID {
		return utils.Forbidden(c, "Not your enrollment")
	}

	result, err := ec.Tracker.RecordCompletion(enrollment.ID, input.ContentType, input.ContentID, input.TimeSpent)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Content not found in this course")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not record completion")
	}

	ec.Activity.OnContentCompleted(userID, enrollment.ID, result)

	return utils.Success(c, fiber.StatusOK, result)
}
