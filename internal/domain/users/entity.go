package users

import "strings"

// User is the public part of an account; it is what the session holds.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credential is the private record stored next to the user. Only the salted
// hash of the password is kept.
type Credential struct {
	User
	PasswordHash string `json:"passwordHash"`
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
