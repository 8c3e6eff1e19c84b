package models

import "time"

// Role values stored on User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account is the identity record shared by every kind of user.
type Account struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Password   string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	IsActive   bool      `json:"-" gorm:"not null;default:true"`
	DateJoined time.Time `json:"-" gorm:"autoCreateTime"`
}

// User is a registered member. Email is the login field.
type User struct {
	Account
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(254);not null"`
	FirstName string    `json:"first_name" gorm:"type:varchar(150);not null"`
	LastName  string    `json:"last_name" gorm:"type:varchar(150);not null"`
	Role      string    `json:"-" gorm:"type:varchar(32);not null;default:'user'"`
	UpdatedAt time.Time `json:"-"`
}
