package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"column:password;not null"`
	Name           string    `json:"name" gorm:"not null"`
	IsActivated    bool      `json:"isActivated" gorm:"not null;default:false"`
	ActivationLink string    `json:"-" gorm:"uniqueIndex;not null"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Token holds the single active refresh token of a user.
type Token struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID       uuid.UUID `json:"userId" gorm:"type:uuid;uniqueIndex;not null"`
	User         *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RefreshToken string    `json:"-" gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserDto is the public view of a User.
type UserDto struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	IsActivated bool      `json:"isActivated"`
}

func NewUserDto(u *User) UserDto {
	return UserDto{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActivated: u.IsActivated,
	}
}
