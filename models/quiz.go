package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	Title            string `gorm:"not null"`
	Description      string
	CourseID         uint `gorm:"index;not null"`
	ModuleID         *uint
	TimeLimitMinutes *int
	TotalMarks       int    `gorm:"default:100"`
	PassingMarks     int    `gorm:"default:40"`
	Difficulty       string `gorm:"default:medium"` // easy, medium, hard, expert
	IsActive         bool   `gorm:"default:true"`
	// No default tag: false must survive Create.
	AllowMultipleAttempts bool
	MaxAttempts           int  `gorm:"default:3"`
	RandomizeQuestions    bool `gorm:"default:true"`
	ShowAnswers           bool `gorm:"default:false"`
	Questions             []Question
}

const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
)

type Question struct {
	gorm.Model
	QuizID       uint   `gorm:"index;not null"`
	QuestionText string `gorm:"not null"`
	QuestionType string `gorm:"size:20;not null"`
	Explanation  string
	Marks        int  `gorm:"default:1"`
	Position     int  `gorm:"default:0"`
	IsRequired   bool `gorm:"default:true"`
	Options      []QuestionOption
}

type QuestionOption struct {
	gorm.Model
	QuestionID uint   `gorm:"index;not null"`
	OptionText string `gorm:"not null"`
	IsCorrect  bool   `gorm:"default:false"`
	Position   int    `gorm:"default:0"`
}

const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
	AttemptTimedOut   = "timed_out"
)

// QuizAttempt numbers are unique per (quiz, user); a duplicate insert
// under a double-submit race is caught and retried with the next number.
type QuizAttempt struct {
	gorm.Model
	QuizID           uint    `gorm:"not null;uniqueIndex:idx_attempt_number"`
	UserID           uint    `gorm:"not null;uniqueIndex:idx_attempt_number"`
	AttemptNumber    int     `gorm:"not null;uniqueIndex:idx_attempt_number"`
	Score            int     `gorm:"default:0"`
	Percentage       float64 `gorm:"default:0"`
	Status           string  `gorm:"default:in_progress"`
	StartTime        time.Time
	EndTime          *time.Time
	TimeTakenSeconds *int
	Passed           bool `gorm:"default:false"`
	Answers          []StudentAnswer
}

type StudentAnswer struct {
	gorm.Model
	QuizAttemptID uint `gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID    uint `gorm:"not null;uniqueIndex:idx_attempt_question"`
	// Comma-separated option ids for choice questions.
	SelectedOptions string
	TextAnswer      string
	IsCorrect       bool `gorm:"default:false"`
	MarksAwarded    int  `gorm:"default:0"`
}
