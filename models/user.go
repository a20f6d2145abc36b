package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

type User struct {
	gorm.Model
	Username          string `gorm:"unique;not null"`
	Email             string `gorm:"unique;not null"`
	PasswordHash      string `gorm:"not null" json:"-"`
	Role              string `gorm:"default:student"` // student, instructor, admin
	Bio               string
	PreferredLanguage string `gorm:"default:en"`
	LinkedinProfile   string
	GithubProfile     string
	Website           string
}

func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type LoginHistory struct {
	gorm.Model
	UserID    uint `gorm:"index"`
	LoginTime time.Time
	IPAddress string
}
