// Package session carries the acting identity through a request and owns the
// token format and the username to display-name directory.
package session

import (
	"context"
	"time"

	"phrasedesk/internal/model"

	"github.com/google/uuid"
)

// Session is the identity snapshot taken at login. It can drift from the users
// table until the next login or refresh.
type Session struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issued_at"`
}

// FromUser snapshots u
func FromUser(u *model.User, at time.Time) *Session {
	return &Session{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.Name(),
		Role:        u.Role,
		IssuedAt:    at,
	}
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == model.RoleAdmin
}

type ctxKey struct{}

// WithSession returns a context carrying s
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
