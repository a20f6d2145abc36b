package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"skillforge/config"
	"skillforge/controllers"
	"skillforge/middleware"
	"skillforge/services"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *log.Logger) {
	// Services shared across controllers
	tracker := services.NewProgressTracker(db)
	streaks := services.NewStreakService(db)
	ledger := services.NewPointsLedger(db)
	evaluator := services.NewEvaluator(db, ledger)
	quizzes := services.NewQuizService(db)
	certificates := services.NewCertificateService(db, cfg, logger)
	activity := &services.ActivityService{
		Tracker:      tracker,
		Streaks:      streaks,
		Ledger:       ledger,
		Evaluator:    evaluator,
		Quizzes:      quizzes,
		Certificates: certificates,
		Logger:       logger,
	}

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	instructorMiddleware := middleware.InstructorMiddleware(db, cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg, activity)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Catalog routes
	coursesController := controllers.NewCoursesController(db, cfg)
	app.Get("/api/categories", coursesController.GetCategories)
	app.Get("/api/courses", coursesController.GetCourses)
	app.Get("/api/courses/:slug", coursesController.GetCourseDetails)
	app.Get("/api/courses/:id/reviews", coursesController.GetReviews)
	app.Post("/api/courses/:id/reviews", authMiddleware, coursesController.AddReview)

	// Enrollment routes
	enrollmentsController := controllers.NewEnrollmentsController(db, cfg, tracker, activity)
	app.Post("/api/courses/:id/enroll", authMiddleware, enrollmentsController.Enroll)
	enrollments := app.Group("/api/enrollments", authMiddleware)
	enrollments.Get("/", enrollmentsController.GetMyEnrollments)
	enrollments.Get("/:id/progress", enrollmentsController.GetEnrollmentProgress)
	enrollments.Post("/:id/progress", enrollmentsController.RecordCompletion)

	// Quiz routes
	quizzesController := controllers.NewQuizzesController(db, cfg, quizzes, activity)
	app.Get("/api/courses/:id/quizzes", authMiddleware, quizzesController.GetCourseQuizzes)
	quizGroup := app.Group("/api/quizzes", authMiddleware)
	quizGroup.Get("/:id", quizzesController.GetQuiz)
	quizGroup.Get("/:id/attempts", quizzesController.GetMyAttempts)
	quizGroup.Post("/:id/attempts", quizzesController.SubmitAttempt)

	// Gamification routes
	gamificationController := controllers.NewGamificationController(db, cfg, streaks, ledger, evaluator)
	gamification := app.Group("/api/gamification")
	gamification.Get("/leaderboard", gamificationController.GetLeaderboard)
	gamification.Get("/challenges", gamificationController.ListChallenges)
	gamification.Get("/achievements", gamificationController.ListAchievements)
	gamification.Get("/streak", authMiddleware, gamificationController.GetStreak)
	gamification.Get("/points", authMiddleware, gamificationController.GetPoints)
	gamification.Get("/challenges/mine", authMiddleware, gamificationController.GetMyChallenges)
	gamification.Post("/challenges/:id/join", authMiddleware, gamificationController.JoinChallenge)
	gamification.Get("/achievements/mine", authMiddleware, gamificationController.GetMyAchievements)

	// Certificate routes
	certificatesController := controllers.NewCertificatesController(db, cfg, certificates)
	app.Get("/api/certificates", authMiddleware, certificatesController.GetMyCertificates)
	app.Get("/api/certificates/:certificateId/verify", certificatesController.VerifyCertificate)
	app.Post("/api/enrollments/:id/certificate", authMiddleware, certificatesController.IssueCertificate)

	// Analytics routes
	analyticsController := controllers.NewAnalyticsController(db, cfg)
	app.Get("/api/analytics/overview", authMiddleware, analyticsController.GetLearningOverview)

	// Instructor routes
	instructor := app.Group("/api/instructor", instructorMiddleware)
	instructor.Post("/courses", coursesController.CreateCourse)
	instructor.Put("/courses/:id", coursesController.UpdateCourse)
	instructor.Post("/courses/:id/modules", coursesController.AddModule)
	instructor.Post("/courses/:id/modules/:moduleId/contents", coursesController.AddContent)
	instructor.Get("/courses/:id/analytics", analyticsController.GetCourseAnalytics)
	instructor.Post("/quizzes", quizzesController.CreateQuiz)
	instructor.Post("/quizzes/:id/questions", quizzesController.AddQuestion)

	// Admin routes
	admin := app.Group("/api/admin", adminMiddleware)
	admin.Post("/challenges", gamificationController.CreateChallenge)
	admin.Post("/achievements", gamificationController.CreateAchievement)
	admin.Post("/points", gamificationController.AdjustPoints)
	admin.Post("/streak-freezes", gamificationController.GrantStreakFreeze)
	admin.Post("/certificates/:certificateId/revoke", certificatesController.RevokeCertificate)
}
