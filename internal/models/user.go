// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"unicode/utf8"
)

// User represents an account together with its plan state and follow graph.
// Timestamps are unix milliseconds.
type User struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	Username         string    `gorm:"uniqueIndex;not null;size:30" json:"username"`
	Email            string    `gorm:"uniqueIndex;not null;size:254" json:"email"`
	Password         string    `gorm:"not null" json:"-"`
	Bio              string    `gorm:"type:text" json:"bio"`
	Avatar           string    `gorm:"size:8" json:"avatar"`
	Categories       StringSet `gorm:"serializer:json;type:text" json:"categories"`
	Plan             Plan      `gorm:"size:16;not null;default:free" json:"plan"`
	Badge            Badge     `gorm:"size:16" json:"badge"`
	IsAdmin          bool      `gorm:"not null;default:false;index" json:"is_admin"`
	Credits          int       `gorm:"not null" json:"credits"`
	LastCreditRefill int64     `json:"last_credit_refill"`
	PlanExpires      int64     `gorm:"index" json:"plan_expires"`
	Followers        StringSet `gorm:"serializer:json;type:text" json:"followers"`
	Following        StringSet `gorm:"serializer:json;type:text" json:"following"`
	CreatedAt        int64     `gorm:"autoCreateTime:milli" json:"created_at"`
}

// AvatarFor derives the avatar glyph from a username.
func AvatarFor(username string) string {
	r, _ := utf8.DecodeRuneInString(username)
	if r == utf8.RuneError {
		return ""
	}
	return strings.ToUpper(string(r))
}
