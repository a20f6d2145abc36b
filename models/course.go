package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CourseDraft     = "draft"
	CoursePublished = "published"
	CourseArchived  = "archived"
)

// Content type discriminators used by Progress rows.
const (
	ContentText       = "text"
	ContentVideo      = "video"
	ContentResource   = "resource"
	ContentAssignment = "assignment"
)

type Category struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Slug        string `gorm:"unique;not null"`
	Description string
	ParentID    *uint
}

type Course struct {
	gorm.Model
	Title                string `gorm:"not null"`
	Slug                 string `gorm:"unique;not null"`
	InstructorID         uint   `gorm:"index;not null"`
	Overview             string
	Description          string
	CategoryID           *uint
	Level                string  `gorm:"default:beginner"` // beginner, intermediate, advanced, expert
	Price                float64 `gorm:"default:0"`
	Status               string  `gorm:"default:draft"`
	DurationHours        int     `gorm:"default:0"`
	Language             string  `gorm:"default:English"`
	Tags                 string
	IsFeatured           bool `gorm:"default:false"`
	CertificateAvailable bool `gorm:"default:true"`
	Modules              []CourseModule
	Reviews              []Review
}

type CourseModule struct {
	gorm.Model
	CourseID      uint `gorm:"index;not null"`
	Title         string
	Description   string
	Position      int  `gorm:"default:0"`
	IsFreePreview bool `gorm:"default:false"`
}

// ContentBase carries the fields shared by every content item type. It
// must stay exported so the schema parser promotes its columns into the
// embedding tables.
type ContentBase struct {
	ModuleID    uint `gorm:"index;not null"`
	Title       string
	Description string
	Position    int `gorm:"default:0"`
}

type TextContent struct {
	gorm.Model
	ContentBase
	Body               string
	ReadingTimeMinutes int `gorm:"default:5"`
}

type VideoContent struct {
	gorm.Model
	ContentBase
	VideoURL        string
	DurationSeconds int
	Transcript      string
}

type ResourceContent struct {
	gorm.Model
	ContentBase
	FileURL    string
	FileType   string
	FileSizeKB int
}

type Assignment struct {
	gorm.Model
	ContentBase
	Instructions   string
	DueDate        *time.Time
	TotalPoints    int    `gorm:"default:100"`
	AssignmentType string `gorm:"default:individual"` // individual, group, peer_graded
}

type Review struct {
	gorm.Model
	CourseID uint `gorm:"not null;uniqueIndex:idx_review_course_user"`
	UserID   uint `gorm:"not null;uniqueIndex:idx_review_course_user"`
	Rating   int  `gorm:"not null"` // 1..5
	Comment  string
}
