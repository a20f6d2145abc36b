package services

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"skillforge/models"
)

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID      uint   `json:"question_id"`
	SelectedOptions []uint `json:"selected_options"`
	TextAnswer      string `json:"text_answer"`
}

// AttemptResult reports a graded quiz attempt.
type AttemptResult struct {
	AttemptID     uint    `json:"attempt_id"`
	AttemptNumber int     `json:"attempt_number"`
	Score         int     `json:"score"`
	TotalMarks    int     `json:"total_marks"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
}

// QuizService grades quiz attempts.
type QuizService struct {
	DB *gorm.DB
}

func NewQuizService(db *gorm.DB) *QuizService {
	return &QuizService{DB: db}
}

// SubmitAttempt grades the submitted answers against the quiz definition
// and stores a new attempt. Choice questions are auto-graded; free-text
// answers are stored ungraded for instructor review.
func (qs *QuizService) SubmitAttempt(userID, quizID uint, answers []AnswerInput, timeTaken *int) (*AttemptResult, error) {
	var quiz models.Quiz
	err := qs.DB.Preload("Questions.Options").First(&quiz, quizID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, validation("quiz", "not active")
	}

	var used int64
	if err := qs.DB.Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Count(&used).Error; err != nil {
		return nil, err
	}
	maxAttempts := quiz.MaxAttempts
	if !quiz.AllowMultipleAttempts {
		maxAttempts = 1
	}
	if maxAttempts > 0 && int(used) >= maxAttempts {
		return nil, validation("attempts", "maximum number of attempts reached")
	}

	byQuestion := make(map[uint]AnswerInput, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	score := 0
	totalMarks := 0
	graded := make([]models.StudentAnswer, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		totalMarks += question.Marks
		answer, answered := byQuestion[question.ID]

		sa := models.StudentAnswer{
			QuestionID: question.ID,
			TextAnswer: answer.TextAnswer,
		}
		if answered {
			sa.SelectedOptions = joinIDs(answer.SelectedOptions)
			if isChoiceQuestion(question.QuestionType) && correctSelection(question, answer.SelectedOptions) {
				sa.IsCorrect = true
				sa.MarksAwarded = question.Marks
				score += question.Marks
			}
		}
		graded = append(graded, sa)
	}

	percentage := 0.0
	if totalMarks > 0 {
		percentage = float64(score) * 100 / float64(totalMarks)
	}
	passed := score >= quiz.PassingMarks

	now := time.Now()
	attempt := models.QuizAttempt{
		QuizID:           quizID,
		UserID:           userID,
		AttemptNumber:    int(used) + 1,
		Score:            score,
		Percentage:       percentage,
		Status:           models.AttemptCompleted,
		StartTime:        now,
		EndTime:          &now,
		TimeTakenSeconds: timeTaken,
		Passed:           passed,
		Answers:          graded,
	}

	err = qs.DB.Create(&attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Double-submit raced on the attempt number; take the next slot.
		attempt.ID = 0
		attempt.AttemptNumber++
		err = qs.DB.Create(&attempt).Error
	}
	if err != nil {
		return nil, err
	}

	return &AttemptResult{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         score,
		TotalMarks:    totalMarks,
		Percentage:    percentage,
		Passed:        passed,
	}, nil
}

// BestPercentage returns the user's best attempt percentage for the quiz,
// rounded down; feeds quiz_score achievements.
func (qs *QuizService) BestPercentage(userID, quizID uint) (int, error) {
	var best float64
	err := qs.DB.Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Select("COALESCE(MAX(percentage), 0)").
		Scan(&best).Error
	return int(best), err
}

func isChoiceQuestion(questionType string) bool {
	switch questionType {
	case models.QuestionSingleChoice, models.QuestionMultipleChoice, models.QuestionTrueFalse:
		return true
	}
	return false
}

// correctSelection compares the selected option set against the correct
// option set of the question.
func correctSelection(question models.Question, selected []uint) bool {
	var correct []uint
	for _, option := range question.Options {
		if option.IsCorrect {
			correct = append(correct, option.ID)
		}
	}
	if len(correct) == 0 || len(selected) != len(correct) {
		return false
	}

	sortIDs(correct)
	sorted := append([]uint(nil), selected...)
	sortIDs(sorted)
	for i := range correct {
		if correct[i] != sorted[i] {
			return false
		}
	}
	return true
}

func sortIDs(ids []uint) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
