package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"skillforge/config"
	"skillforge/models"
)

// CertificateService issues and verifies course-completion certificates.
// When an anchor endpoint is configured, issued certificate hashes are
// posted there for blockchain anchoring; anchoring failures never block
// issuance.
type CertificateService struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger *log.Logger
	client *resty.Client
}

func NewCertificateService(db *gorm.DB, cfg *config.Config, logger *log.Logger) *CertificateService {
	return &CertificateService{
		DB:     db,
		Cfg:    cfg,
		Logger: logger,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

type anchorResponse struct {
	TxHash          string `json:"tx_hash"`
	VerificationURL string `json:"verification_url"`
}

// IssueForEnrollment issues a certificate for a completed enrollment.
// Re-issuing returns the existing certificate; the (user, course) unique
// index guards the race.
func (cs *CertificateService) IssueForEnrollment(enrollmentID uint) (*models.Certificate, error) {
	var enrollment models.Enrollment
	err := cs.DB.First(&enrollment, enrollmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentCompleted {
		return nil, validation("enrollment", "course not completed")
	}

	var course models.Course
	if err := cs.DB.First(&course, enrollment.CourseID).Error; err != nil {
		return nil, err
	}
	if !course.CertificateAvailable {
		return nil, validation("course", "does not offer certificates")
	}

	var user models.User
	if err := cs.DB.First(&user, enrollment.UserID).Error; err != nil {
		return nil, err
	}

	issueDate := time.Now()
	certID := uuid.NewString()

	metadata, _ := json.Marshal(map[string]interface{}{
		"course_slug":    course.Slug,
		"course_level":   course.Level,
		"completed_at":   enrollment.DateCompleted,
		"duration_hours": course.DurationHours,
	})

	certificate := models.Certificate{
		CertificateID: certID,
		UserID:        enrollment.UserID,
		CourseID:      enrollment.CourseID,
		EnrollmentID:  enrollment.ID,
		Title:         fmt.Sprintf("Certificate of Completion: %s", course.Title),
		IssueDate:     issueDate,
		Status:        models.CertificateIssued,
		ContentHash:   CertificateHash(certID, user.Username, course.Slug, issueDate),
		IssuerName:    cs.Cfg.CertIssuerName,
		Metadata:      datatypes.JSON(metadata),
	}

	if err := cs.DB.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Certificate
			if err := cs.DB.Where("user_id = ? AND course_id = ?",
				enrollment.UserID, enrollment.CourseID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}

	cs.DB.Model(&models.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Update("certificate_issued", true)

	cs.anchor(&certificate)

	return &certificate, nil
}

// Verify checks a certificate by its public UUID, recomputing the content
// hash, and records the verification attempt.
func (cs *CertificateService) Verify(certificateID, method, verifierName, ip string) (*models.Certificate, bool, error) {
	var certificate models.Certificate
	err := cs.DB.Where("certificate_id = ?", certificateID).First(&certificate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	var user models.User
	if err := cs.DB.First(&user, certificate.UserID).Error; err != nil {
		return nil, false, err
	}
	var course models.Course
	if err := cs.DB.First(&course, certificate.CourseID).Error; err != nil {
		return nil, false, err
	}

	hashMatches := certificate.ContentHash ==
		CertificateHash(certificate.CertificateID, user.Username, course.Slug, certificate.IssueDate)
	valid := certificate.IsValid(time.Now()) && hashMatches

	record := models.VerificationRecord{
		CertificateID:      certificate.ID,
		VerificationMethod: method,
		WasValid:           valid,
		VerifierName:       verifierName,
		IPAddress:          ip,
	}
	if err := cs.DB.Create(&record).Error; err != nil {
		return nil, false, err
	}

	return &certificate, valid, nil
}

// Revoke marks a certificate revoked with a reason.
func (cs *CertificateService) Revoke(certificateID, reason string) error {
	result := cs.DB.Model(&models.Certificate{}).
		Where("certificate_id = ?", certificateID).
		Updates(map[string]interface{}{
			"status":            models.CertificateRevoked,
			"revocation_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CertificateHash computes the SHA-256 digest over the canonical
// certificate payload; this is the value anchored externally.
func CertificateHash(certificateID, username, courseSlug string, issueDate time.Time) string {
	payload := fmt.Sprintf("%s|%s|%s|%s",
		certificateID, username, courseSlug, issueDate.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (cs *CertificateService) anchor(certificate *models.Certificate) {
	if cs.Cfg.AnchorURL == "" {
		return
	}

	var response anchorResponse
	resp, err := cs.client.R().
		SetBody(map[string]string{
			"certificate_id": certificate.CertificateID,
			"content_hash":   certificate.ContentHash,
		}).
		SetResult(&response).
		Post(cs.Cfg.AnchorURL)
	if err != nil || resp.IsError() {
		if cs.Logger != nil {
			cs.Logger.Printf("certificate %s: anchoring failed: %v", certificate.CertificateID, err)
		}
		return
	}

	cs.DB.Model(certificate).Updates(map[string]interface{}{
		"blockchain_verified":         true,
		"blockchain_tx_hash":          response.TxHash,
		"blockchain_verification_url": response.VerificationURL,
	})
}
