package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email       string `gorm:"unique"`
	Password    string
	Verified    bool
	LastLoginAt sql.NullTime

	Entries       []SavingsEntry
	Subscriptions []PushSubscription
}

type EmailConfirmation struct {
	UserID uint
	Nonce  string `gorm:"uniqueIndex"`
	Expiry time.Time

	User User
}

// SavingsEntry records one week of the 52-week challenge for one user.
// At most one row exists per (user, week); toggling updates it in place.
type SavingsEntry struct {
	gorm.Model
	UserID     uint `gorm:"uniqueIndex:idx_user_week"`
	WeekNumber int  `gorm:"uniqueIndex:idx_user_week"`
	Amount     int
	Saved      bool
	SavedAt    sql.NullTime
}

type SavingsEntries []SavingsEntry

// PushSubscription is one browser push delivery channel. The endpoint is the
// identity: re-registering the same endpoint refreshes owner and keys instead
// of creating a duplicate.
type PushSubscription struct {
	gorm.Model
	UserID         uint
	Endpoint       string `gorm:"uniqueIndex"`
	P256DH         string
	Auth           string
	LastReminderAt sql.NullTime
}

type PushSubscriptions []PushSubscription
