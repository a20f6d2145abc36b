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

type QuizzesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Quizzes  *services.QuizService
	Activity *services.ActivityService
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, quizzes *services.QuizService, activity *services.ActivityService) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, Quizzes: quizzes, Activity: activity}
}

// GetCourseQuizzes godoc
// @Summary List active quizzes for a course
// @Tags quizzes
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/quizzes [get]
func (qc *QuizzesController) GetCourseQuizzes(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	var quizzes []models.Quiz
	if err := qc.DB.Where("course_id = ? AND is_active = ?", courseID, true).Find(&quizzes).Error; err != nil {
		return utils.InternalServerError(c, "Could not query quizzes")
	}

	return utils.Success(c, fiber.StatusOK, quizzes)
}

// GetQuiz godoc
// @Summary Get quiz with questions
// @Description Correct answers are never exposed here
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id} [get]
func (qc *QuizzesController) GetQuiz(c *fiber.Ctx) error {
	quizID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz id")
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		return utils.InternalServerError(c, "Could not query quiz")
	}

	questions := make([]fiber.Map, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		options := make([]fiber.Map, 0, len(question.Options))
		for _, option := range question.Options {
			options = append(options, fiber.Map{
				"id":          option.ID,
				"option_text": option.OptionText,
				"position":    option.Position,
			})
		}
		questions = append(questions, fiber.Map{
			"id":            question.ID,
			"question_text": question.QuestionText,
			"question_type": question.QuestionType,
			"marks":         question.Marks,
			"position":      question.Position,
			"options":       options,
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":                      quiz.ID,
		"title":                   quiz.Title,
		"description":             quiz.Description,
		"course_id":               quiz.CourseID,
		"time_limit_minutes":      quiz.TimeLimitMinutes,
		"total_marks":             quiz.TotalMarks,
		"passing_marks":           quiz.PassingMarks,
		"max_attempts":            quiz.MaxAttempts,
		"allow_multiple_attempts": quiz.AllowMultipleAttempts,
		"questions":               questions,
	})
}

// SubmitAttempt godoc
// @Summary Submit a quiz attempt
// @Description Grades the answers, stores the attempt and feeds the gamification chain on a pass
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [post]
func (qc *QuizzesController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := currentUserID(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz id")
	}

	type AttemptInput struct {
		Answers []struct {
			QuestionID      uint   `json:"question_id"`
			SelectedOptions []uint `json:"selected_options"`
			TextAnswer      string `json:"text_answer"`
		} `json:"answers"`
		TimeTakenSeconds *int `json:"time_taken_seconds"`
	}

	var input AttemptInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	answers := make([]services.AnswerInput, 0, len(input.Answers))
	for _, answer := range input.Answers {
		answers = append(answers, services.AnswerInput{
			QuestionID:      answer.QuestionID,
			SelectedOptions: answer.SelectedOptions,
			TextAnswer:      answer.TextAnswer,
		})
	}

	result, err := qc.Quizzes.SubmitAttempt(userID, uint(quizID), answers, input.TimeTakenSeconds)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Quiz not found")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not submit attempt")
	}

	qc.Activity.OnQuizSubmitted(userID, uint(quizID), result)

	return utils.Success(c, fiber.StatusOK, result)
}

// GetMyAttempts godoc
// @Summary List the authenticated user's attempts for a quiz
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz id"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /quizzes/{id}/attempts [get]
func (qc *QuizzesController) GetMyAttempts(c *fiber.Ctx) error {
	userID, err := currentUserID(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz id")
	}

	var attempts []models.QuizAttempt
	if err := qc.DB.Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("attempt_number ASC").Find(&attempts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query attempts")
	}

	return utils.Success(c, fiber.StatusOK, attempts)
}

type QuizInput struct {
	Title                 string `json:"title" validate:"required"`
	Description           string `json:"description"`
	CourseID              uint   `json:"course_id" validate:"required"`
	ModuleID              *uint  `json:"module_id"`
	TimeLimitMinutes      *int   `json:"time_limit_minutes"`
	TotalMarks            int    `json:"total_marks" validate:"gt=0"`
	PassingMarks          int    `json:"passing_marks" validate:"gte=0"`
	Difficulty            string `json:"difficulty" validate:"omitempty,oneof=easy medium hard expert"`
	AllowMultipleAttempts *bool  `json:"allow_multiple_attempts"`
	MaxAttempts           int    `json:"max_attempts"`
}

// CreateQuiz godoc
// @Summary Create a quiz for a course
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quiz body QuizInput true "Quiz data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/quizzes [post]
func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	userID, err := currentUserID(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input QuizInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}
	if input.PassingMarks > input.TotalMarks {
		return utils.ValidationFailed(c, map[string]string{"passing_marks": "exceeds total marks"})
	}

	var course models.Course
	if err := qc.DB.First(&course, input.CourseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	var user models.User
	if err := qc.DB.First(&user, userID).Error; err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	if course.InstructorID != userID && !user.IsAdmin() {
		return utils.Forbidden(c, "Not your course")
	}

	quiz := models.Quiz{
		Title:            input.Title,
		Description:      input.Description,
		CourseID:         input.CourseID,
		ModuleID:         input.ModuleID,
		TimeLimitMinutes: input.TimeLimitMinutes,
		TotalMarks:       input.TotalMarks,
		PassingMarks:     input.PassingMarks,
		IsActive:         true,
		MaxAttempts:      input.MaxAttempts,
	}
	if input.Difficulty != "" {
		quiz.Difficulty = input.Difficulty
	}
	if input.AllowMultipleAttempts != nil {
		quiz.AllowMultipleAttempts = *input.AllowMultipleAttempts
	} else {
		quiz.AllowMultipleAttempts = true
	}
	if quiz.MaxAttempts == 0 {
		quiz.MaxAttempts = 3
	}

	if err := qc.DB.Create(&quiz).Error; err != nil {
		return utils.InternalServerError(c, "Could not create quiz")
	}

	return utils.Success(c, fiber.StatusCreated, quiz)
}

// AddQuestion godoc
// @Summary Add a question with options to a quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path int true "Quiz id"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/quizzes/{id}/questions [post]
func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	userID, err := currentUserID(c, qc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	quizID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid quiz id")
	}

	type OptionInput struct {
		OptionText string `json:"option_text" validate:"required"`
		IsCorrect  bool   `json:"is_correct"`
		Position   int    `json:"position"`
	}
	type QuestionInput struct {
		QuestionText string        `json:"question_text" validate:"required"`
		QuestionType string        `json:"question_type" validate:"required,oneof=single_choice multiple_choice true_false short_answer"`
		Explanation  string        `json:"explanation"`
		Marks        int           `json:"marks" validate:"gt=0"`
		Position     int           `json:"position"`
		Options      []OptionInput `json:"options" validate:"dive"`
	}

	var input QuestionInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		return utils.NotFound(c, "Quiz not found")
	}
	var course models.Course
	if err := qc.DB.First(&course, quiz.CourseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	var user models.User
	if err := qc.DB.First(&user, userID).Error; err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	if course.InstructorID != userID && !user.IsAdmin() {
		return utils.Forbidden(c, "Not your course")
	}

	question := models.Question{
		QuizID:       quiz.ID,
		QuestionText: input.QuestionText,
		QuestionType: input.QuestionType,
		Explanation:  input.Explanation,
		Marks:        input.Marks,
		Position:     input.Position,
	}
	for _, option := range input.Options {
		question.Options = append(question.Options, models.QuestionOption{
			OptionText: option.OptionText,
			IsCorrect:  option.IsCorrect,
			Position:   option.Position,
		})
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return utils.InternalServerError(c, "Could not create question")
	}

	return utils.Success(c, fiber.StatusCreated, question)
}
