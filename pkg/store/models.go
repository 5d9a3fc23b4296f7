package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type DocumentModel struct {
	ID           string `gorm:"primaryKey"`
	OwnerID      string `gorm:"not null;index"`
	Kind         string `gorm:"not null;index"`
	Title        string `gorm:"not null"`
	Author       string
	AuthorIntro  string
	FinalMessage string
	Keywords     string
	Pages        datatypes.JSON `gorm:"type:jsonb;not null"`
	RawAnswers   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

type ArticleModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Headline    string `gorm:"not null"`
	Body        string `gorm:"type:text"`
	ImageURL    string
	Style       string
	RawSummary  string         `gorm:"type:text"`
	ImagePrompt string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

type InterviewModel struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	Kind         string `gorm:"not null;index"`
	UserInfo     datatypes.JSON `gorm:"type:jsonb"`
	Conversation datatypes.JSON `gorm:"type:jsonb;not null"`
	Summary      string         `gorm:"type:text"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

type LeadModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"not null"`
	Email     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}
