package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillforge/config"
	"skillforge/models"
)

func testConfig() *config.Config {
	return &config.Config{CertIssuerName: "SkillForge"} // anchoring disabled
}

func finishCourse(t *testing.T, svc *ProgressTracker, enrollmentID uint, contentIDs []uint) *CompletionResult {
	t.Helper()
	contentTypes := []string{
		models.ContentText, models.ContentText,
		models.ContentVideo, models.ContentAssignment,
	}
	var last *CompletionResult
	var err error
	for i, id := range contentIDs {
		last, err = svc.RecordCompletion(enrollmentID, contentTypes[i], id, 10)
		require.NoError(t, err)
	}
	return last
}

func TestIssueCertificateForCompletedEnrollment(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "certinstructor")
	student := createUser(t, db, "certstudent")
	course, _, contentIDs := createCourseWithContent(t, db, "cert-course", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	result := finishCourse(t, tracker, enrollment.ID, contentIDs)
	require.True(t, result.JustCompleted)

	service := NewCertificateService(db, testConfig(), nil)
	certificate, err := service.IssueForEnrollment(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CertificateIssued, certificate.Status)
	assert.NotEmpty(t, certificate.CertificateID)
	assert.NotEmpty(t, certificate.ContentHash)
	assert.Equal(t, "SkillForge", certificate.IssuerName)
	assert.False(t, certificate.BlockchainVerified)

	var refreshed models.Enrollment
	require.NoError(t, db.First(&refreshed, enrollment.ID).Error)
	assert.True(t, refreshed.CertificateIssued)
}

func TestIssueCertificateIdempotent(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "certinstructor2")
	student := createUser(t, db, "certstudent2")
	course, _, contentIDs := createCourseWithContent(t, db, "cert-twice", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	finishCourse(t, tracker, enrollment.ID, contentIDs)

	service := NewCertificateService(db, testConfig(), nil)
	first, err := service.IssueForEnrollment(enrollment.ID)
	require.NoError(t, err)
	second, err := service.IssueForEnrollment(enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CertificateID, second.CertificateID)

	var count int64
	db.Model(&models.Certificate{}).Where("user_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestIssueCertificateRequiresCompletion(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "certinstructor3")
	student := createUser(t, db, "certstudent3")
	course, _, _ := createCourseWithContent(t, db, "cert-early", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)

	service := NewCertificateService(db, testConfig(), nil)
	_, err = service.IssueForEnrollment(enrollment.ID)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestVerifyCertificate(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "certinstructor4")
	student := createUser(t, db, "certstudent4")
	course, _, contentIDs := createCourseWithContent(t, db, "cert-verify", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	finishCourse(t, tracker, enrollment.ID, contentIDs)

	service := NewCertificateService(db, testConfig(), nil)
	certificate, err := service.IssueForEnrollment(enrollment.ID)
	require.NoError(t, err)

	verified, valid, err := service.Verify(certificate.CertificateID, "api", "Acme HR", "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, certificate.ID, verified.ID)

	var records int64
	db.Model(&models.VerificationRecord{}).Where("certificate_id = ?", certificate.ID).Count(&records)
	assert.Equal(t, int64(1), records)
}

func TestVerifyRevokedCertificateInvalid(t *testing.T) {
	db := newTestDB(t)
	instructor := createUser(t, db, "certinstructor5")
	student := createUser(t, db, "certstudent5")
	course, _, contentIDs := createCourseWithContent(t, db, "cert-revoke", instructor.ID)

	tracker := NewProgressTracker(db)
	enrollment, err := tracker.Enroll(student.ID, course.ID)
	require.NoError(t, err)
	finishCourse(t, tracker, enrollment.ID, contentIDs)

	service := NewCertificateService(db, testConfig(), nil)
	certificate, err := service.IssueForEnrollment(enrollment.ID)
	require.NoError(t, err)

	require.NoError(t, service.Revoke(certificate.CertificateID, "issued in error"))

	_, valid, err := service.Verify(certificate.CertificateID, "api", "", "")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCertificateHashIsStable(t *testing.T) {
	issued := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	a := CertificateHash("id-1", "alice", "go-basics", issued)
	b := CertificateHash("id-1", "alice", "go-basics", issued)
	c := CertificateHash("id-1", "alice", "go-advanced", issued)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
