package domain

import "time"

// User represents a registered account in the messaging system.
// Username is the primary key and never changes after registration.
type User struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	JoinAt       time.Time
	LastLoginAt  *time.Time
}

// Profile is the public subset of a user embedded in message payloads.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// Profile strips everything callers outside the auth flow should not see.
func (u *User) Profile() Profile {
	return Profile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
