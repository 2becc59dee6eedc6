package models

import "github.com/google/uuid"

// Event belongs to exactly one group; only members of that group can
// see or create it. Author fields are creation-time snapshots.
type Event struct {
	BaseModel
	GroupID    uuid.UUID `json:"groupId" gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	AuthorName string    `json:"authorName" gorm:"type:varchar(100);not null"`
	AvatarURL  string    `json:"avatarUrl" gorm:"type:text;not null;default:''"`

	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Description string `json:"description" gorm:"type:text;not null"`
	EventTime   string `json:"eventTime" gorm:"type:varchar(64);not null;default:''"`
	Location    string `json:"location" gorm:"type:text;not null;default:''"`
	Image       string `json:"image" gorm:"type:text;not null;default:''"`

	Comments []EventComment `json:"comments" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

type EventComment struct {
	BaseModel
	EventID    uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	AuthorName string    `json:"authorName" gorm:"type:varchar(100);not null"`
	AvatarURL  string    `json:"avatarUrl" gorm:"type:text;not null;default:''"`
	Text       string    `json:"text" gorm:"type:text;not null"`
}
