package auth

import "time"

// Credential is the persisted {username, password record} pair. It is
// immutable after registration; there is no password-change path.
type Credential struct {
	Username       string
	PasswordRecord string
	CreatedAt      time.Time
}

// Profile is the user row created alongside the credential. Its id is the
// username; image authorship references it.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
