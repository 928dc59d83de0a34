package identity

import "time"

// User is the identity record a wallet or an email address authenticates as.
type User struct {
	ID          string
	Name        string
	Username    string
	Email       string
	Nonce       int64
	Permissions []string
	FullAccess  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PendingSignup is the partial user held while an email signup awaits its OTP.
type PendingSignup struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
