// Package model defines the data structures shared across the dashboard.
package model

import "time"

// UserRecord is a registered local account.
//
// Records live together in one JSON array stored under a single key (see
// credentials.Store), so the json tags ARE the storage format. Changing a
// tag breaks every existing database.
//
// WHY PasswordHash and not Password?
// The secret stays opaque to the rest of the app: only auth.PasswordService
// ever looks at it. bcrypt verification is still an exact match, so login
// behaves exactly like comparing the raw strings.
type UserRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`        // unique key, compared byte-for-byte
	PasswordHash string    `json:"passwordHash"` // bcrypt
	DisplayName  string    `json:"username"`     // email local part without digits
	Gender       string    `json:"gender"`       // "male" or "female"
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the public part of a record: what the session and the API
// are allowed to show.
type Profile struct {
	DisplayName string `json:"displayName"`
	Gender      string `json:"gender"`
}

// Profile strips the secret from the record.
func (u UserRecord) Profile() Profile {
	return Profile{DisplayName: u.DisplayName, Gender: u.Gender}
}
