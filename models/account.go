package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a registered user. PasswordHash never leaves the process.
type Account struct {
	ID           uuid.UUID `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	ProfilePic   string    `json:"profilePic"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Excerpt is the public view of an account returned to clients.
type Excerpt struct {
	ID         uuid.UUID `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	ProfilePic string    `json:"profilePic"`
}

func (a Account) Excerpt() Excerpt {
	return Excerpt{ID: a.ID, Name: a.Name, Email: a.Email, ProfilePic: a.ProfilePic}
}

// Excerpts maps accounts to their public view, keeping order.
func Excerpts(accounts []Account) []Excerpt {
	out := make([]Excerpt, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Excerpt())
	}
	return out
}
