package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
	EnrollmentRefunded  = "refunded"
)

type Enrollment struct {
	gorm.Model
	UserID   uint   `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID uint   `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	Status   string `gorm:"default:active"`
	// Always 0..100; reaching 100 flips Status to completed exactly once.
	CompletionPercentage int `gorm:"default:0"`
	LastAccessed         *time.Time
	DateCompleted        *time.Time
	ExpiryDate           *time.Time
	CertificateIssued    bool `gorm:"default:false"`
}

// Progress tracks completion of one content item within one enrollment.
// The (enrollment, content_type, content_id) triple is unique; the
// constraint doubles as the guard against double-creation under races.
type Progress struct {
	gorm.Model
	EnrollmentID uint   `gorm:"not null;uniqueIndex:idx_progress_triple"`
	ModuleID     uint   `gorm:"index;not null"`
	ContentType  string `gorm:"size:20;not null;uniqueIndex:idx_progress_triple"`
	ContentID    uint   `gorm:"not null;uniqueIndex:idx_progress_triple"`
	Completed    bool   `gorm:"default:false"`
	TimeSpent    int    `gorm:"default:0"` // seconds, accumulates monotonically
}
