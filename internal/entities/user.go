package entities

import "time"

// User is an account that can hold a session. PasswordHash never leaves the
// server: it is excluded from JSON and from PublicUser.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Public returns the client-safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username}
}
