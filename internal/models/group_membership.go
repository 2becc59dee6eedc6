package models

import "github.com/google/uuid"

// GroupMembership is the single source of truth for the user<->group
// relation: a user's joined groups and a group's member list are both
// views over these rows, so they cannot diverge.
type GroupMembership struct {
	BaseModel
	UserID  uuid.UUID `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_member_user_group"`
	GroupID uuid.UUID `json:"groupId" gorm:"type:uuid;not null;index;uniqueIndex:idx_member_user_group"`

	User  User  `json:"-" gorm:"foreignKey:UserID"`
	Group Group `json:"-" gorm:"foreignKey:GroupID"`
}
