package controllers

import (
	"time"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"

	"skillforge/config"
	"skillforge/models"
	"skillforge/utils"
)

type AnalyticsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg}
}

// GetLearningOverview godoc
// @Summary Learning activity overview for the authenticated user
// @Description Aggregates streak, points, enrollments and quiz activity over a period
// @Tags analytics
// @Produce json
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /analytics/overview [get]
func (ac *AnalyticsController) GetLearningOverview(c *fiber.Ctx) error {
	userID, err := currentUserID(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var start, end time.Time
	if raw := c.Query("start_date"); raw == "" {
		start = time.Now().AddDate(0, -1, 0)
	} else {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.BadRequest(c, "Invalid start_date format. Use YYYY-MM-DD")
		}
	}
	if raw := c.Query("end_date"); raw == "" {
		end = time.Now()
	} else {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return utils.BadRequest(c, "Invalid end_date format. Use YYYY-MM-DD")
		}
	}

	var streak models.Streak
	ac.DB.Where("user_id = ?", userID).First(&streak)

	var pointsEarned int64
	ac.DB.Model(&models.PointTransaction{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, start, end).
		Select("COALESCE(SUM(points), 0)").
		Scan(&pointsEarned)

	var activeEnrollments, completedCourses int64
	ac.DB.Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentActive).
		Count(&activeEnrollments)
	ac.DB.Model(&models.Enrollment{}).
		Where("user_id = ? AND status = ?", userID, models.EnrollmentCompleted).
		Count(&completedCourses)

	var attempts, passed int64
	ac.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, start, end).
		Count(&attempts)
	ac.DB.Model(&models.QuizAttempt{}).
		Where("user_id = ? AND passed = ? AND created_at BETWEEN ? AND ?", userID, true, start, end).
		Count(&passed)

	var logins []models.LoginHistory
	ac.DB.Where("user_id = ? AND login_time BETWEEN ? AND ?", userID, start, end).Find(&logins)
	loginsPerDay := make(map[string]int)
	for _, login := range logins {
		loginsPerDay[login.LoginTime.Format("2006-01-02")]++
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"streak": fiber.Map{
			"current_days": streak.CurrentStreakDays,
			"longest_days": streak.LongestStreakDays,
			"total_days":   streak.TotalActivityDays,
		},
		"points_earned":      pointsEarned,
		"active_enrollments": activeEnrollments,
		"completed_courses":  completedCourses,
		"quiz_attempts":      attempts,
		"quizzes_passed":     passed,
		"logins_per_day":     loginsPerDay,
		"period": fiber.Map{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	})
}

// GetCourseAnalytics godoc
// @Summary Enrollment and quiz statistics for a course
// @Description Visible to the course instructor and admins
// @Tags analytics
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses/{id}/analytics [get]
func (ac *AnalyticsController) GetCourseAnalytics(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	userID, err := currentUserID(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var course models.Course
	if err := ac.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}

	var user models.User
	if err := ac.DB.First(&user, userID).Error; err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	if course.InstructorID != userID && !user.IsAdmin() {
		return utils.Forbidden(c, "You don't have permission to view this analytics")
	}

	var stats struct {
		TotalEnrollments int64
		Completed        int64
		AvgCompletion    float64
		AvgTimeSpent     float64
	}

	ac.DB.Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&stats.TotalEnrollments)
	ac.DB.Model(&models.Enrollment{}).
		Where("course_id = ? AND status = ?", courseID, models.EnrollmentCompleted).
		Count(&stats.Completed)
	ac.DB.Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(completion_percentage), 0)").
		Scan(&stats.AvgCompletion)
	ac.DB.Model(&models.Progress{}).
		Joins("JOIN enrollments ON enrollments.id = progresses.enrollment_id").
		Where("enrollments.course_id = ?", courseID).
		Select("COALESCE(AVG(progresses.time_spent), 0)").
		Scan(&stats.AvgTimeSpent)

	var avgRating float64
	ac.DB.Model(&models.Review{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avgRating)

	var certificatesIssued int64
	ac.DB.Model(&models.Certificate{}).
		Where("course_id = ? AND status = ?", courseID, models.CertificateIssued).
		Count(&certificatesIssued)

	completionRate := 0.0
	if stats.TotalEnrollments > 0 {
		completionRate = float64(stats.Completed) * 100 / float64(stats.TotalEnrollments)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course_id":              course.ID,
		"total_enrollments":      stats.TotalEnrollments,
		"completed_enrollments":  stats.Completed,
		"completion_rate":        completionRate,
		"avg_completion_percent": stats.AvgCompletion,
		"avg_time_spent_seconds": stats.AvgTimeSpent,
		"avg_rating":             avgRating,
		"certificates_issued":    certificatesIssued,
	})
}
