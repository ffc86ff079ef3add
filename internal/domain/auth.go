package domain

import "context"

// Identity is the authenticated principal resolved from a bearer token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type AuthService interface {
	ValidateToken(ctx context.Context, token string) (*Identity, error)
}
