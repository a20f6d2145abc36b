package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CertificateDraft   = "draft"
	CertificateIssued  = "issued"
	CertificateRevoked = "revoked"
	CertificateExpired = "expired"
)

type Certificate struct {
	gorm.Model
	CertificateID string `gorm:"size:36;uniqueIndex;not null"` // UUID
	UserID        uint   `gorm:"not null;uniqueIndex:idx_cert_user_course"`
	CourseID      uint   `gorm:"not null;uniqueIndex:idx_cert_user_course"`
	EnrollmentID  uint   `gorm:"index;not null"`
	Title         string
	Description   string
	IssueDate     time.Time
	ExpiryDate    *time.Time
	Status        string `gorm:"default:draft"`
	// SHA-256 over the canonical certificate payload; what gets anchored.
	ContentHash               string
	BlockchainVerified        bool `gorm:"default:false"`
	BlockchainTxHash          string
	BlockchainVerificationURL string
	IssuerName                string
	Metadata                  datatypes.JSON
	RevocationReason          string
}

func (c *Certificate) IsValid(now time.Time) bool {
	if c.Status != CertificateIssued {
		return false
	}
	if c.ExpiryDate != nil && now.After(*c.ExpiryDate) {
		return false
	}
	return true
}

type VerificationRecord struct {
	gorm.Model
	CertificateID      uint `gorm:"index;not null"`
	VerificationMethod string
	WasValid           bool
	VerifierName       string
	VerifierEmail      string
	IPAddress          string
}
