package models

import "github.com/google/uuid"

// Post is a feed entry. Author name and avatar are snapshots taken at
// creation time; a profile update rewrites them explicitly (see the
// users handler) rather than the fields referencing the user row live.
type Post struct {
	BaseModel
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	AuthorName string    `json:"authorName" gorm:"type:varchar(100);not null"`
	AvatarURL  string    `json:"avatarUrl" gorm:"type:text;not null;default:''"`

	Description string `json:"description" gorm:"type:text;not null"`
	// Stored as the ISO/datetime-local string the client submitted.
	EventTime string `json:"eventTime" gorm:"type:varchar(64);not null;default:''"`
	Location  string `json:"location" gorm:"type:text;not null;default:''"`

	Images []string `json:"images" gorm:"type:jsonb;serializer:json"`

	GroupID   *uuid.UUID `json:"groupId,omitempty" gorm:"type:uuid;index"`
	GroupName string     `json:"groupName" gorm:"type:varchar(150);not null;default:''"`

	Comments []PostComment `json:"comments" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
}

type PostComment struct {
	BaseModel
	PostID     uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	AuthorName string    `json:"authorName" gorm:"type:varchar(100);not null"`
	AvatarURL  string    `json:"avatarUrl" gorm:"type:text;not null;default:''"`
	Text       string    `json:"text" gorm:"type:text;not null"`
}
