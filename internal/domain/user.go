package domain

import (
	"context"
	"slices"
	"time"
)

// Role codes carried in access tokens.
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleMember    = "member"
)

// User represents a registered club member. Users are managed outside this service and only read here.
// swagger:model User
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    string
	Roles []string
}

// HasRole reports whether the actor carries the given role code.
func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin)
}

// CanOrganize reports whether the actor may create events.
func (a Actor) CanOrganize() bool {
	return a.IsAdmin() || a.HasRole(RoleOrganizer)
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the actor it was issued to.
type TokenVerifier interface {
	Verify(token string) (Actor, error)
}

// UserRepository defines read access to user storage.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
