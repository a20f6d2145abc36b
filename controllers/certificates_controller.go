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

type CertificatesController struct {
	DB           *gorm.DB
	Cfg          *config.Config
	Certificates *services.CertificateService
}

func NewCertificatesController(db *gorm.DB, cfg *config.Config, certificates *services.CertificateService) *CertificatesController {
	return &CertificatesController{DB: db, Cfg: cfg, Certificates: certificates}
}

// GetMyCertificates godoc
// @Summary List the authenticated user's certificates
// @Tags certificates
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /certificates [get]
func (cc *CertificatesController) GetMyCertificates(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var certificates []models.Certificate
	if err := cc.DB.Where("user_id = ?", userID).Order("issue_date DESC").Find(&certificates).Error; err != nil {
		return utils.InternalServerError(c, "Could not query certificates")
	}

	return utils.Success(c, fiber.StatusOK, certificates)
}

// IssueCertificate godoc
// @Summary Request a certificate for a completed enrollment
// @Description Issuing twice returns the existing certificate
// @Tags certificates
// @Produce json
// @Param id path int true "Enrollment id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /enrollments/{id}/certificate [post]
func (cc *CertificatesController) IssueCertificate(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	enrollmentID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid enrollment id")
	}

	var enrollment models.Enrollment
	if err := cc.DB.First(&enrollment, enrollmentID).Error; err != nil {
		return utils.NotFound(c, "Enrollment not found")
	}
	if enrollment.UserID != userID {
		return utils.Forbidden(c, "Not your enrollment")
	}

	certificate, err := cc.Certificates.IssueForEnrollment(enrollment.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Enrollment not found")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not issue certificate")
	}

	return utils.Success(c, fiber.StatusOK, certificate)
}

// VerifyCertificate godoc
// @Summary Verify a certificate by its public id
// @Description Public endpoint; recomputes the content hash and records the verification
// @Tags certificates
// @Produce json
// @Param certificateId path string true "Certificate UUID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /certificates/{certificateId}/verify [get]
func (cc *CertificatesController) VerifyCertificate(c *fiber.Ctx) error {
	certificateID := c.Params("certificateId")

	certificate, valid, err := cc.Certificates.Verify(certificateID, "api", c.Query("verifier"), c.IP())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Certificate not found")
		}
		return utils.InternalServerError(c, "Could not verify certificate")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"valid":       valid,
		"certificate": certificate,
	})
}

// RevokeCertificate godoc
// @Summary Revoke a certificate
// @Tags admin
// @Accept json
// @Produce json
// @Param certificateId path string true "Certificate UUID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/certificates/{certificateId}/revoke [post]
func (cc *CertificatesController) RevokeCertificate(c *fiber.Ctx) error {
	certificateID := c.Params("certificateId")

	type RevokeInput struct {
		Reason string `json:"reason" validate:"required"`
	}
	var input RevokeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	if err := cc.Certificates.Revoke(certificateID, input.Reason); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Certificate not found")
		}
		return utils.InternalServerError(c, "Could not revoke certificate")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"revoked": certificateID})
}
