package domain

import "time"

// Message is a short text message exchanged between two users.
// ReadAt stays nil until the recipient marks the message read; the
// transition happens at most once.
type Message struct {
	ID           int64
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time

	// Populated by the service layer when responses embed the
	// counterpart's public profile.
	FromUser *Profile
	ToUser   *Profile
}
