package controllers

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"

	"skillforge/config"
	"skillforge/models"
	"skillforge/services"
	"skillforge/utils"
)

type GamificationController struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Streaks   *services.StreakService
	Ledger    *services.PointsLedger
	Evaluator *services.Evaluator
}

func NewGamificationController(db *gorm.DB, cfg *config.Config, streaks *services.StreakService, ledger *services.PointsLedger, evaluator *services.Evaluator) *GamificationController {
	return &GamificationController{DB: db, Cfg: cfg, Streaks: streaks, Ledger: ledger, Evaluator: evaluator}
}

// GetStreak godoc
// @Summary Get the authenticated user's streak
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /gamification/streak [get]
func (gc *GamificationController) GetStreak(c *fiber.Ctx) error {
	userID, err := currentUserID(c, gc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	streak, err := gc.Streaks.Get(userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not query streak")
	}

	return utils.Success(c, fiber.StatusOK, streak)
}

// GetPoints godoc
// @Summary Get points balance and recent transactions
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /gamification/points [get]
func (gc *GamificationController) GetPoints(c *fiber.Ctx) error {
	userID, err := currentUserID(c, gc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	balance, err := gc.Ledger.Balance(userID)
	if err != nil {
		return utils.InternalServerError(c, "Could not compute balance")
	}

	limit := c.QueryInt("limit", 20)
	history, err := gc.Ledger.History(userID, limit)
	if err != nil {
		return utils.InternalServerError(c, "Could not query history")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"balance":      balance,
		"transactions": history,
	})
}

// GetLeaderboard godoc
// @Summary Points leaderboard
// @Tags gamification
// @Produce json
// @Param limit query int false "Number of entries"
// @Success 200 {object} utils.SuccessResponse
// @Router /gamification/leaderboard [get]
func (gc *GamificationController) GetLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	entries, err := gc.Ledger.Leaderboard(limit)
	if err != nil {
		return utils.InternalServerError(c, "Could not query leaderboard")
	}

	return utils.Success(c, fiber.StatusOK, entries)
}

// ListChallenges godoc
// @Summary List active challenges
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /gamification/challenges [get]
func (gc *GamificationController) ListChallenges(c *fiber.Ctx) error {
	now := time.Now()
	var challenges []models.Challenge
	if err := gc.DB.Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, now, now).
		Order("end_date ASC").Find(&challenges).Error; err != nil {
		return utils.InternalServerError(c, "Could not query challenges")
	}

	return utils.Success(c, fiber.StatusOK, challenges)
}

// GetMyChallenges godoc
// @Summary List the authenticated user's challenge participations
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /gamification/challenges/mine [get]
func (gc *GamificationController) GetMyChallenges(c *fiber.Ctx) error {
	userID, err := currentUserID(c, gc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var participations []models.UserChallenge
	if err := gc.DB.Preload("Challenge").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&participations).Error; err != nil {
		return utils.InternalServerError(c, "Could not query challenges")
	}

	items := make([]fiber.Map, 0, len(participations))
	for _, uc := range participations {
		items = append(items, fiber.Map{
			"user_challenge":      uc,
			"progress_percentage": services.ChallengeProgressPercent(uc.CurrentValue, uc.Challenge.TargetValue),
		})
	}

	return utils.Success(c, fiber.StatusOK, items)
}

// JoinChallenge godoc
// @Summary Join a challenge
// @Description Joining twice returns the existing participation
// @Tags gamification
// @Produce json
// @Param id path int true "Challenge id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /gamification/challenges/{id}/join [post]
func (gc *GamificationController) JoinChallenge(c *fiber.Ctx) error {
	userID, err := currentUserID(c, gc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	challengeID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid challenge id")
	}

	participation, err := gc.Evaluator.JoinChallenge(userID, uint(challengeID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "Challenge not found")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not join challenge")
	}

	return utils.Success(c, fiber.StatusOK, participation)
}

// ListAchievements godoc
// @Summary List visible achievements
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /gamification/achievements [get]
func (gc *GamificationController) ListAchievements(c *fiber.Ctx) error {
	var achievements []models.Achievement
	if err := gc.DB.Where("is_active = ? AND is_hidden = ?", true, false).
		Order("required_value ASC").Find(&achievements).Error; err != nil {
		return utils.InternalServerError(c, "Could not query achievements")
	}

	return utils.Success(c, fiber.StatusOK, achievements)
}

// GetMyAchievements godoc
// @Summary List achievements earned by the authenticated user
// @Tags gamification
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /gamification/achievements/mine [get]
func (gc *GamificationController) GetMyAchievements(c *fiber.Ctx) error {
	userID, err := currentUserID(c, gc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var earned []models.UserAchievement
	if err := gc.DB.Preload("Achievement").Where("user_id = ?", userID).
		Order("date_earned DESC").Find(&earned).Error; err != nil {
		return utils.InternalServerError(c, "Could not query achievements")
	}

	return utils.Success(c, fiber.StatusOK, earned)
}

type ChallengeInput struct {
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	ChallengeType string    `json:"challenge_type" validate:"required,oneof=course_completion quiz_mastery streak engagement"`
	PointsReward  int       `json:"points_reward" validate:"gte=0"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	TargetValue   int       `json:"target_value" validate:"required,gt=0"`
	IsFeatured    bool      `json:"is_featured"`
}

// CreateChallenge godoc
// @Summary Create a challenge
// @Tags admin
// @Accept json
// @Produce json
// @Param challenge body ChallengeInput true "Challenge data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/challenges [post]
func (gc *GamificationController) CreateChallenge(c *fiber.Ctx) error {
	var input ChallengeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	challenge := models.Challenge{
		Title:         input.Title,
		Description:   input.Description,
		ChallengeType: input.ChallengeType,
		PointsReward:  input.PointsReward,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		TargetValue:   input.TargetValue,
		IsActive:      true,
		IsFeatured:    input.IsFeatured,
	}

	if err := gc.Evaluator.CreateChallenge(&challenge); err != nil {
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not create challenge")
	}

	return utils.Success(c, fiber.StatusCreated, challenge)
}

// CreateAchievement godoc
// @Summary Create an achievement
// @Tags admin
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/achievements [post]
func (gc *GamificationController) CreateAchievement(c *fiber.Ctx) error {
	type AchievementInput struct {
		Name            string `json:"name" validate:"required"`
		Description     string `json:"description"`
		AchievementType string `json:"achievement_type" validate:"required,oneof=course_completion streak quiz_score contribution skill_mastery special"`
		PointsAwarded   int    `json:"points_awarded" validate:"gte=0"`
		RequiredValue   int    `json:"required_value" validate:"required,gt=0"`
		IsHidden        bool   `json:"is_hidden"`
		BadgeID         *uint  `json:"badge_id"`
	}

	var input AchievementInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	achievement := models.Achievement{
		Name:            input.Name,
		Description:     input.Description,
		AchievementType: input.AchievementType,
		PointsAwarded:   input.PointsAwarded,
		RequiredValue:   input.RequiredValue,
		IsHidden:        input.IsHidden,
		BadgeID:         input.BadgeID,
		IsActive:        true,
	}
	if err := gc.DB.Create(&achievement).Error; err != nil {
		return utils.InternalServerError(c, "Could not create achievement")
	}

	return utils.Success(c, fiber.StatusCreated, achievement)
}

// AdjustPoints godoc
// @Summary Manually adjust a user's points
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/points [post]
func (gc *GamificationController) AdjustPoints(c *fiber.Ctx) error {
	type AdjustInput struct {
		UserID      uint   `json:"user_id" validate:"required"`
		Points      int    `json:"points" validate:"required"`
		Description string `json:"description"`
	}

	var input AdjustInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	tx, balance, err := gc.Ledger.Award(input.UserID, input.Points, models.TxAdminAdjustment, input.Description, "", nil)
	if err != nil {
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not adjust points")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"transaction": tx,
		"balance":     balance,
	})
}

// GrantStreakFreeze godoc
// @Summary Grant streak freezes to a user
// @Tags admin
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/streak-freezes [post]
func (gc *GamificationController) GrantStreakFreeze(c *fiber.Ctx) error {
	type FreezeInput struct {
		UserID uint `json:"user_id" validate:"required"`
		Count  int  `json:"count" validate:"required,gt=0"`
	}

	var input FreezeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	if err := gc.Streaks.AddFreeze(input.UserID, input.Count); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return utils.NotFound(c, "User has no streak yet")
		}
		if services.IsValidation(err) {
			return utils.Error(c, fiber.StatusUnprocessableEntity, err)
		}
		return utils.InternalServerError(c, "Could not grant freezes")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"granted": input.Count})
}
