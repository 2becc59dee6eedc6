package models

import "github.com/google/uuid"

type Group struct {
	BaseModel
	Name        string    `json:"name" gorm:"type:varchar(150);not null"`
	Image       string    `json:"image" gorm:"type:text;not null;default:''"`
	CreatedByID uuid.UUID `json:"createdBy" gorm:"type:uuid;not null;index"`

	Memberships []GroupMembership `json:"-" gorm:"foreignKey:GroupID"`
	Events      []Event           `json:"-" gorm:"foreignKey:GroupID"`
}
