package storage

import "time"

// PageView is one tracked navigation. Rows are append-only: this core never
// updates or deletes a page view after it is written. Empty strings stand in
// for absent values.
type PageView struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp        time.Time `gorm:"index;not null"`
	Path             string    `gorm:"index;not null"`
	Referrer         string
	UserAgent        string
	IPAddress        string
	Country          string
	City             string
	DeviceType       string
	Browser          string
	OS               string
	ScreenResolution string
	SessionID        string `gorm:"index;not null"`
	IsUniqueVisitor  bool   `gorm:"not null;default:false"`
}

// TableName keeps the table name stable across naming-strategy changes.
func (PageView) TableName() string { return "page_views" }

// Session is one browser session. The id is the opaque token minted on the
// first beacon and echoed back by the client on every subsequent one.
// PageCount and UpdatedAt are monotonically non-decreasing.
type Session struct {
	ID        string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
	PageCount int `gorm:"not null;default:1"`
	IPAddress string
	UserAgent string
}

// TableName keeps the table name stable across naming-strategy changes.
func (Session) TableName() string { return "sessions" }
