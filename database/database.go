package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"skillforge/config"
	"skillforge/models"
)

// InitDB establishes the PostgreSQL connection and runs migrations.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs schema migrations. Exported so tests can migrate an
// in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LoginHistory{},
		&models.Category{},
		&models.Course{},
		&models.CourseModule{},
		&models.TextContent{},
		&models.VideoContent{},
		&models.ResourceContent{},
		&models.Assignment{},
		&models.Review{},
		&models.Enrollment{},
		&models.Progress{},
		&models.Badge{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Level{},
		&models.PointTransaction{},
		&models.Streak{},
		&models.Challenge{},
		&models.UserChallenge{},
		&models.Quiz{},
		&models.Question{},
		&models.QuestionOption{},
		&models.QuizAttempt{},
		&models.StudentAnswer{},
		&models.Certificate{},
		&models.VerificationRecord{},
	)
}
