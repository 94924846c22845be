package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"phrasedesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *model.User {
	return &model.User{ID: uuid.New(), Username: "ana", DisplayName: "Ana Souza", Role: model.RoleAdmin, Active: true}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Hour)
	u := testUser()

	token, sess, err := issuer.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", sess.DisplayName)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, "ana", got.Username)
	assert.True(t, got.IsAdmin())
}

func TestTokenIssuer_PurposeAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), time.Hour)
	u := testUser()

	setup, err := issuer.IssueSetup(u)
	require.NoError(t, err)
	_, err = issuer.Verify(setup)
	assert.ErrorIs(t, err, ErrWrongPurpose)

	claims, err := issuer.Parse(setup, PurposeSetup)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)

	issuer.now = func() time.Time { return time.Now().Add(20 * time.Minute) }
	_, err = issuer.Parse(setup, PurposeSetup)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer([]byte("other"), time.Hour)
	token, _, err := other.Issue(u)
	require.NoError(t, err)
	_, err = NewTokenIssuer([]byte("secret"), time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), &Session{Username: "ana"})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ana", s.Username)
}

type stubLister struct {
	calls int
	users []model.User
	err   error
}

func (s *stubLister) ListAll(context.Context) ([]model.User, error) {
	s.calls++
	return s.users, s.err
}

func TestDirectory_CachesUntilInvalidated(t *testing.T) {
	lister := &stubLister{users: []model.User{{Username: "ana", DisplayName: "Ana"}, {Username: "bia"}}}
	dir := NewDirectory(lister, time.Minute)
	ctx := context.Background()

	assert.Equal(t, "Ana", dir.Name(ctx, "ana"))
	assert.Equal(t, "bia", dir.Name(ctx, "bia"))
	assert.Equal(t, "ghost", dir.Name(ctx, "ghost"))
	assert.Equal(t, 1, lister.calls)

	dir.Invalidate()
	lister.users[0].DisplayName = "Ana S."
	assert.Equal(t, "Ana S.", dir.Name(ctx, "ana"))
	assert.Equal(t, 2, lister.calls)
}

func TestDirectory_ReloadFailureFallsBack(t *testing.T) {
	dir := NewDirectory(&stubLister{err: errors.New("db down")}, time.Minute)
	assert.Equal(t, "ana", dir.Name(context.Background(), "ana"))
}
