package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skillforge/database"
	"skillforge/models"
)

// newTestDB opens a fresh in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// createCourseWithContent seeds a published course with one module holding
// two text items, one video, and one assignment (four content items).
func createCourseWithContent(t *testing.T, db *gorm.DB, slug string, instructorID uint) (*models.Course, *models.CourseModule, []uint) {
	t.Helper()

	course := models.Course{
		Title:        "Course " + slug,
		Slug:         slug,
		InstructorID: instructorID,
		Status:       models.CoursePublished,
	}
	require.NoError(t, db.Create(&course).Error)

	module := models.CourseModule{CourseID: course.ID, Title: "Module 1"}
	require.NoError(t, db.Create(&module).Error)

	text1 := models.TextContent{}
	text1.ModuleID = module.ID
	text1.Title = "Lesson 1"
	require.NoError(t, db.Create(&text1).Error)

	text2 := models.TextContent{}
	text2.ModuleID = module.ID
	text2.Title = "Lesson 2"
	require.NoError(t, db.Create(&text2).Error)

	video := models.VideoContent{}
	video.ModuleID = module.ID
	video.Title = "Intro video"
	require.NoError(t, db.Create(&video).Error)

	assignment := models.Assignment{}
	assignment.ModuleID = module.ID
	assignment.Title = "Homework"
	require.NoError(t, db.Create(&assignment).Error)

	return &course, &module, []uint{text1.ID, text2.ID, video.ID, assignment.ID}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
