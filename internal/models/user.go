package models

type User struct {
	BaseModel
	Name         string `json:"name" gorm:"type:varchar(100);not null"`
	Email        string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:text;not null"`
	AvatarURL    string `json:"avatarUrl" gorm:"type:text;not null;default:''"`
	Bio          string `json:"bio" gorm:"type:text;not null;default:''"`

	GroupMemberships []GroupMembership `json:"-" gorm:"foreignKey:UserID"`
	EventRSVPs       []EventRSVP       `json:"-" gorm:"foreignKey:UserID"`
}

// PublicProfile is the shape returned by auth and profile endpoints;
// it never carries the password hash.
type PublicProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
	}
}
