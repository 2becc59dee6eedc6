package models

import "github.com/google/uuid"

// EventRSVP records a user's intent to attend an event. Joining
// requires current membership of the event's group; leaving the group
// later does not revoke existing RSVPs.
type EventRSVP struct {
	BaseModel
	UserID  uuid.UUID `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_rsvp_user_event"`
	EventID uuid.UUID `json:"eventId" gorm:"type:uuid;not null;index;uniqueIndex:idx_rsvp_user_event"`

	User  User  `json:"-" gorm:"foreignKey:UserID"`
	Event Event `json:"-" gorm:"foreignKey:EventID"`
}
