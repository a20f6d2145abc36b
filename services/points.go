package services

import (
	"gorm.io/gorm"

	"skillforge/models"
)

// Default point awards for learning activity.
const (
	PointsContentCompleted = 5
	PointsCourseCompleted  = 50
	PointsQuizPassed       = 20
)

// PointsLedger appends immutable point transactions. A user's balance is
// always computed as the sum of their deltas so it can never drift from
// the transaction history.
type PointsLedger struct {
	DB *gorm.DB
}

func NewPointsLedger(db *gorm.DB) *PointsLedger {
	return &PointsLedger{DB: db}
}

// Award appends one transaction and returns it with the new balance.
// Delta may be negative (administrative deduction); zero is rejected.
func (pl *PointsLedger) Award(userID uint, delta int, txType, description string, relatedType string, relatedID *uint) (*models.PointTransaction, int, error) {
	if delta == 0 {
		return nil, 0, validation("points", "delta must be non-zero")
	}
	if txType == "" {
		return nil, 0, validation("transaction_type", "must not be empty")
	}

	transaction := models.PointTransaction{
		UserID:            userID,
		Points:            delta,
		TransactionType:   txType,
		Description:       description,
		RelatedObjectType: relatedType,
		RelatedObjectID:   relatedID,
	}
	if err := pl.DB.Create(&transaction).Error; err != nil {
		return nil, 0, err
	}

	balance, err := pl.Balance(userID)
	if err != nil {
		return nil, 0, err
	}
	return &transaction, balance, nil
}

// Balance sums all transaction deltas for the user.
func (pl *PointsLedger) Balance(userID uint) (int, error) {
	var balance int64
	err := pl.DB.Model(&models.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return int(balance), nil
}

// History returns the user's transactions, newest first.
func (pl *PointsLedger) History(userID uint, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var transactions []models.PointTransaction
	err := pl.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// Leaderboard returns the top users by summed points.
func (pl *PointsLedger) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var entries []LeaderboardEntry
	err := pl.DB.Model(&models.PointTransaction{}).
		Select("point_transactions.user_id, users.username, SUM(point_transactions.points) AS points").
		Joins("JOIN users ON users.id = point_transactions.user_id").
		Group("point_transactions.user_id, users.username").
		Order("points DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}
